package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/nimblebooks/invoicing_backend/workflow"
)

func invoiceIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid invoice id"})
		return 0, false
	}
	return id, true
}

func CreateInvoice(c *gin.Context) {
	enterpriseId, userId, ok := requestIdentity(c)
	if !ok {
		return
	}
	var input models.NewInvoice
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := workflow.CreateInvoice(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, userId, &input)
	if err != nil {
		respondError(c, "invoice.go", "CreateInvoice", err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

func GetInvoice(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, ok := invoiceIdParam(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	invoice, err := models.GetInvoiceWithItems(db, enterpriseId, id)
	if err != nil {
		respondError(c, "invoice.go", "GetInvoice", err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func ListInvoices(c *gin.Context) {
	enterpriseId, _, ok := requestIdentity(c)
	if !ok {
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	var invoices []models.Invoice
	query := db.Where("enterprise_id = ?", enterpriseId).Order("id DESC")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&invoices).Error; err != nil {
		respondError(c, "invoice.go", "ListInvoices", err)
		return
	}
	c.JSON(http.StatusOK, invoices)
}

func UpdateInvoiceItems(c *gin.Context) {
	enterpriseId, userId, ok := requestIdentity(c)
	if !ok {
		return
	}
	id, ok := invoiceIdParam(c)
	if !ok {
		return
	}
	var input struct {
		Items []models.NewInvoiceItem `json:"items" binding:"required,min=1,dive"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	invoice, err := workflow.UpdateInvoiceItems(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, id, userId, input.Items)
	if err != nil {
		respondError(c, "invoice.go", "UpdateInvoiceItems", err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func transitionHandler(fn func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error), funcName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		enterpriseId, userId, ok := requestIdentity(c)
		if !ok {
			return
		}
		id, ok := invoiceIdParam(c)
		if !ok {
			return
		}
		invoice, err := fn(c, enterpriseId, id, userId)
		if err != nil {
			respondError(c, "invoice.go", funcName, err)
			return
		}
		c.JSON(http.StatusOK, invoice)
	}
}

var SubmitInvoice = transitionHandler(func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error) {
	return workflow.SubmitInvoice(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, invoiceId, userId)
}, "SubmitInvoice")

var ApproveInvoice = transitionHandler(func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error) {
	return workflow.ApproveInvoice(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, invoiceId, userId)
}, "ApproveInvoice")

var MarkInvoicePaid = transitionHandler(func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error) {
	return workflow.MarkInvoicePaid(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, invoiceId, userId)
}, "MarkInvoicePaid")

var MarkInvoiceUnpaid = transitionHandler(func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error) {
	return workflow.MarkInvoiceUnpaid(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, invoiceId, userId)
}, "MarkInvoiceUnpaid")

var ValidateProforma = transitionHandler(func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error) {
	return workflow.ValidateProforma(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, invoiceId, userId)
}, "ValidateProforma")

var RequestInvoiceModification = transitionHandler(func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error) {
	return workflow.RequestInvoiceModification(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, invoiceId, userId)
}, "RequestInvoiceModification")

var ApproveInvoiceModification = transitionHandler(func(c *gin.Context, enterpriseId string, invoiceId int, userId int) (*models.Invoice, error) {
	return workflow.ApproveInvoiceModification(c.Request.Context(), config.GetDB(), config.GetLogger(), enterpriseId, invoiceId, userId)
}, "ApproveInvoiceModification")
