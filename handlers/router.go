package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/nimblebooks/invoicing_backend/middlewares"
)

// RegisterRoutes wires the public API onto the engine. Everything under /api
// except login requires a bearer token.
func RegisterRoutes(router *gin.Engine) {
	router.POST("/api/login", Login)

	api := router.Group("/api", middlewares.Auth())

	api.POST("/clients", CreateClient)
	api.GET("/clients", ListClients)
	api.GET("/clients/:id", GetClient)

	api.POST("/products", CreateProduct)
	api.GET("/products", ListProducts)
	api.GET("/products/:id", GetProduct)
	api.POST("/products/:id/restock", RestockProduct)
	api.GET("/products/:id/stock-movements", ListProductStockMovements)
	api.POST("/stock-movements", RecordStockMovement)

	api.POST("/invoices", CreateInvoice)
	api.GET("/invoices", ListInvoices)
	api.GET("/invoices/:id", GetInvoice)
	api.PUT("/invoices/:id/items", UpdateInvoiceItems)
	api.POST("/invoices/:id/submit", SubmitInvoice)
	api.POST("/invoices/:id/approve", ApproveInvoice)
	api.POST("/invoices/:id/pay", MarkInvoicePaid)
	api.POST("/invoices/:id/unpay", MarkInvoiceUnpaid)
	api.POST("/invoices/:id/validate", ValidateProforma)
	api.POST("/invoices/:id/request-modification", RequestInvoiceModification)
	api.POST("/invoices/:id/approve-modification", ApproveInvoiceModification)

	api.GET("/delivery-notes", ListDeliveryNotes)
	api.GET("/delivery-notes/:id", GetDeliveryNote)
	api.PUT("/delivery-notes/:id", UpdateDeliveryNote)
}
