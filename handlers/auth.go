package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/nimblebooks/invoicing_backend/utils"
)

type LoginInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	db := config.GetDB()
	user, err := models.GetUserByUsername(db.WithContext(c.Request.Context()), input.Username)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if user.IsActive != nil && !*user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := utils.JwtGenerate(user.ID, user.EnterpriseId, user.Username)
	if err != nil {
		respondError(c, "auth.go", "Login", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
