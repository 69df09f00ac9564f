package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/nimblebooks/invoicing_backend/workflow"
	"github.com/shopspring/decimal"
)

func productIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

func CreateProduct(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product := models.Product{
		EnterpriseId:      enterpriseId,
		Name:              input.Name,
		Sku:               input.Sku,
		Description:       input.Description,
		UnitPrice:         input.UnitPrice,
		Quantity:          input.Quantity,
		LowStockThreshold: input.LowStockThreshold,
	}
	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Create(&product).Error; err != nil {
		respondError(c, "product.go", "CreateProduct", err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func GetProduct(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, ok := productIdParam(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	product, err := models.GetProductById(db, enterpriseId, id)
	if err != nil {
		respondError(c, "product.go", "GetProduct", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":      product,
		"is_low_stock": product.IsLowStock(),
	})
}

func ListProducts(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var products []models.Product
	if err := db.Where("enterprise_id = ?", enterpriseId).Order("id ASC").Find(&products).Error; err != nil {
		respondError(c, "product.go", "ListProducts", err)
		return
	}
	c.JSON(http.StatusOK, products)
}

type RestockInput struct {
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Reason   string          `json:"reason"`
}

func RestockProduct(c *gin.Context) {
	enterpriseId, userId, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, ok := productIdParam(c)
	if !ok {
		return
	}
	var input RestockInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !input.Quantity.IsPositive() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity must be positive"})
		return
	}

	product, err := workflow.RestockProduct(config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), enterpriseId, id, input.Quantity, userId, input.Reason)
	if err != nil {
		respondError(c, "product.go", "RestockProduct", err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func RecordStockMovement(c *gin.Context) {
	enterpriseId, userId, ok := requestIdentity(c)
	if !ok {
		return
	}
	var input models.NewStockMovement
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := workflow.RecordManualStockMovement(config.GetDB().WithContext(c.Request.Context()), config.GetLogger(), enterpriseId, &input, userId)
	if err != nil {
		respondError(c, "product.go", "RecordStockMovement", err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func ListProductStockMovements(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, ok := productIdParam(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if _, err := models.GetProductById(db, enterpriseId, id); err != nil {
		respondError(c, "product.go", "ListProductStockMovements", err)
		return
	}
	movements, err := models.GetStockMovementsByProduct(db, enterpriseId, id)
	if err != nil {
		respondError(c, "product.go", "ListProductStockMovements", err)
		return
	}
	c.JSON(http.StatusOK, movements)
}
