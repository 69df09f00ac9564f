package models

import (
	"errors"
	"time"

	"github.com/nimblebooks/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DeliveryNote is a shipping document derived from an approved/paid invoice.
// Items are a point-in-time snapshot of the invoice line items and evolve
// independently afterwards. The unique index on InvoiceId guarantees at most
// one note per invoice even under racing markPaid calls.
type DeliveryNote struct {
	ID           int                `gorm:"primary_key" json:"id"`
	EnterpriseId string             `gorm:"index;not null" json:"enterprise_id"`
	Number       string             `gorm:"size:20;not null;index" json:"number"`
	Status       DeliveryNoteStatus `gorm:"size:20;not null;default:draft" json:"status"`
	InvoiceId    int                `gorm:"uniqueIndex;not null" json:"invoice_id"`
	ClientId     int                `gorm:"index;not null" json:"client_id"`
	DeliveryDate *time.Time         `json:"delivery_date"`
	CourierName  string             `gorm:"size:100" json:"courier_name"`
	Notes        string             `gorm:"type:text" json:"notes"`

	Items []DeliveryNoteItem `gorm:"foreignKey:DeliveryNoteId;constraint:OnDelete:CASCADE" json:"items"`

	CreatedBy int       `gorm:"not null" json:"created_by"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type DeliveryNoteItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	DeliveryNoteId int             `gorm:"index;not null" json:"delivery_note_id"`
	ProductId      int             `gorm:"index;not null;default:0" json:"product_id"`
	Description    string          `gorm:"size:255;not null" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
}

type UpdateDeliveryNoteInput struct {
	Status       *DeliveryNoteStatus       `json:"status" binding:"omitempty,notestatus"`
	DeliveryDate *time.Time                `json:"delivery_date"`
	CourierName  *string                   `json:"courier_name"`
	Notes        *string                   `json:"notes"`
	Items        []NewDeliveryNoteItem     `json:"items"`
}

type NewDeliveryNoteItem struct {
	ProductId   int             `json:"product_id"`
	Description string          `json:"description" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
}

func GetDeliveryNoteWithItems(tx *gorm.DB, enterpriseId string, id int) (*DeliveryNote, error) {
	var note DeliveryNote
	err := tx.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("delivery_note_items.id ASC")
	}).Where("enterprise_id = ? AND id = ?", enterpriseId, id).First(&note).Error
	if err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &note, nil
}

// GetDeliveryNoteByInvoice returns (nil, nil) when no note exists yet.
func GetDeliveryNoteByInvoice(tx *gorm.DB, enterpriseId string, invoiceId int) (*DeliveryNote, error) {
	var note DeliveryNote
	err := tx.Where("enterprise_id = ? AND invoice_id = ?", enterpriseId, invoiceId).First(&note).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &note, nil
}
