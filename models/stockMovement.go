package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockMovement is the append-only quantity journal. Rows are only ever
// created; there are deliberately no update or delete helpers.
type StockMovement struct {
	ID           int               `gorm:"primary_key" json:"id"`
	EnterpriseId string            `gorm:"index;not null" json:"enterprise_id"`
	ProductId    int               `gorm:"index;not null" json:"product_id"`
	Kind         StockMovementKind `gorm:"size:20;not null" json:"kind"`
	Quantity     decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Reason       string            `gorm:"size:100;not null" json:"reason"`
	InvoiceId    *int              `gorm:"index" json:"invoice_id"`
	CreatedBy    int               `gorm:"not null" json:"created_by"`
	CreatedAt    time.Time         `gorm:"autoCreateTime" json:"created_at"`
}

type NewStockMovement struct {
	ProductId int               `json:"product_id" binding:"required"`
	Kind      StockMovementKind `json:"kind" binding:"required,movementkind"`
	Quantity  decimal.Decimal   `json:"quantity" binding:"required"`
	Reason    string            `json:"reason" binding:"required"`
}

func CreateStockMovement(tx *gorm.DB, movement *StockMovement) error {
	return tx.Create(movement).Error
}

func GetStockMovementsByProduct(tx *gorm.DB, enterpriseId string, productId int) ([]StockMovement, error) {
	var movements []StockMovement
	err := tx.Where("enterprise_id = ? AND product_id = ?", enterpriseId, productId).
		Order("id ASC").Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}

func GetStockMovementsByInvoice(tx *gorm.DB, enterpriseId string, invoiceId int) ([]StockMovement, error) {
	var movements []StockMovement
	err := tx.Where("enterprise_id = ? AND invoice_id = ?", enterpriseId, invoiceId).
		Order("id ASC").Find(&movements).Error
	if err != nil {
		return nil, err
	}
	return movements, nil
}
