package handlers

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/nimblebooks/invoicing_backend/models"
)

// Custom binding rules for the domain enums, so malformed values are rejected
// at the edge before a workflow call ever runs.
func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("invoicetype", func(fl validator.FieldLevel) bool {
		return models.InvoiceType(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("movementkind", func(fl validator.FieldLevel) bool {
		return models.StockMovementKind(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("notestatus", func(fl validator.FieldLevel) bool {
		return models.DeliveryNoteStatus(fl.Field().String()).Valid()
	})
}
