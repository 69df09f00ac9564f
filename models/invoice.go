package models

import (
	"time"

	"github.com/nimblebooks/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is the workflow aggregate. Status, stock marker and modification
// marker are owned by the workflow package; external layers read them but
// never write them directly.
type Invoice struct {
	ID            int             `gorm:"primary_key" json:"id"`
	EnterpriseId  string          `gorm:"index;not null" json:"enterprise_id"`
	InvoiceNumber string          `gorm:"size:20;not null;index" json:"invoice_number"`
	InvoiceType   InvoiceType     `gorm:"size:20;not null;default:invoice" json:"invoice_type"`
	Status        InvoiceStatus   `gorm:"size:20;not null;default:draft" json:"status"`
	ClientId      int             `gorm:"index;not null" json:"client_id"`
	Client        *Client         `gorm:"foreignKey:ClientId" json:"client,omitempty"`
	InvoiceDate   time.Time       `gorm:"not null" json:"invoice_date"`
	TaxRate       decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"tax_rate"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	Total         decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total"`
	Notes         string          `gorm:"type:text" json:"notes"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceId;constraint:OnDelete:CASCADE" json:"items"`

	CreatedBy  int        `gorm:"not null" json:"created_by"`
	ApprovedBy *int       `json:"approved_by"`
	ApprovedAt *time.Time `json:"approved_at"`
	PaidBy     *int       `json:"paid_by"`
	PaidAt     *time.Time `json:"paid_at"`

	// ModificationRequestedAt flags an open modification request on a locked
	// invoice.
	ModificationRequestedAt *time.Time `json:"modification_requested_at"`
	// StockDeductedAt is the idempotency marker for stock deduction. It is
	// read and set inside the same lock scope as the quantity mutation.
	StockDeductedAt *time.Time `json:"stock_deducted_at"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID          int             `gorm:"primary_key" json:"id"`
	InvoiceId   int             `gorm:"index;not null" json:"invoice_id"`
	ProductId   int             `gorm:"index;not null;default:0" json:"product_id"`
	Description string          `gorm:"size:255;not null" json:"description"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	LineTotal   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"line_total"`
}

type NewInvoice struct {
	InvoiceType InvoiceType      `json:"invoice_type" binding:"omitempty,invoicetype"`
	ClientId    int              `json:"client_id" binding:"required"`
	InvoiceDate time.Time        `json:"invoice_date"`
	TaxRate     decimal.Decimal  `json:"tax_rate"`
	Notes       string           `json:"notes"`
	Items       []NewInvoiceItem `json:"items" binding:"required,min=1,dive"`
}

type NewInvoiceItem struct {
	ProductId   int             `json:"product_id"`
	Description string          `json:"description" binding:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
}

// GetInvoiceWithItems loads the invoice aggregate tenant-scoped, items in
// insertion order. Cross-tenant ids surface as not-found.
func GetInvoiceWithItems(tx *gorm.DB, enterpriseId string, id int) (*Invoice, error) {
	var invoice Invoice
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("invoice_items.id ASC")
	}).Where("enterprise_id = ? AND id = ?", enterpriseId, id).First(&invoice).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &invoice, nil
}

// ReplaceInvoiceItems deletes and recreates the item rows wholesale; callers
// must recalculate totals in the same transaction.
func ReplaceInvoiceItems(tx *gorm.DB, invoice *Invoice, items []InvoiceItem) error {
	if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&InvoiceItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = 0
		items[i].InvoiceId = invoice.ID
	}
	if len(items) > 0 {
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
	}
	invoice.Items = items
	return nil
}
