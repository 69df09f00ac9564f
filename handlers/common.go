package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/utils"
	"github.com/nimblebooks/invoicing_backend/workflow"
)

// requestIdentity pulls the authenticated caller out of the request context.
func requestIdentity(c *gin.Context) (enterpriseId string, userId int, ok bool) {
	ctx := c.Request.Context()
	enterpriseId, okEnterprise := utils.GetEnterpriseIdFromContext(ctx)
	userId, okUser := utils.GetUserIdFromContext(ctx)
	if !okEnterprise || enterpriseId == "" || !okUser {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", 0, false
	}
	return enterpriseId, userId, true
}

// respondError maps workflow failure kinds onto HTTP responses. Unknown
// errors are logged and surface as 500.
func respondError(c *gin.Context, moduleName string, funcName string, err error) {
	var stockErr *workflow.InsufficientStockError
	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, workflow.ErrInvalidStateTransition):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrInvalidState):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, workflow.ErrPreconditionFailed):
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": err.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":     "insufficient stock",
			"shortages": stockErr.Shortages,
		})
	default:
		config.LogError(config.GetLogger(), moduleName, funcName, "unhandled", nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
