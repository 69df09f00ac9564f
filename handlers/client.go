package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/nimblebooks/invoicing_backend/utils"
)

func CreateClient(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	var input models.NewClient
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Email != "" && !utils.IsValidEmail(input.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email"})
		return
	}

	client := models.Client{
		EnterpriseId: enterpriseId,
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Address:      input.Address,
		TaxNumber:    input.TaxNumber,
	}
	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Create(&client).Error; err != nil {
		respondError(c, "client.go", "CreateClient", err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func GetClient(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client id"})
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	client, err := models.GetClientById(db, enterpriseId, id)
	if err != nil {
		respondError(c, "client.go", "GetClient", err)
		return
	}
	c.JSON(http.StatusOK, client)
}

func ListClients(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var clients []models.Client
	if err := db.Where("enterprise_id = ?", enterpriseId).Order("name ASC").Find(&clients).Error; err != nil {
		respondError(c, "client.go", "ListClients", err)
		return
	}
	c.JSON(http.StatusOK, clients)
}
