package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nimblebooks/invoicing_backend/utils"
)

// Auth validates the bearer token and seeds the request context with the
// caller's identity. Handlers read the ids back out and pass them explicitly
// into workflow operations.
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		claims, err := utils.JwtValidate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		ctx := c.Request.Context()
		ctx = utils.SetUserIdInContext(ctx, claims.ID)
		ctx = utils.SetEnterpriseIdInContext(ctx, claims.EnterpriseId)
		ctx = utils.SetUsernameInContext(ctx, claims.Username)
		if _, ok := utils.GetCorrelationIdFromContext(ctx); !ok {
			ctx = utils.SetCorrelationIdInContext(ctx, uuid.NewString())
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
