package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentSequence is the per (enterprise, kind) monotonic counter behind
// document numbering. The row is read and incremented under an exclusive
// lock, so concurrent allocations for the same tenant and kind serialize
// instead of handing out the same number twice.
type DocumentSequence struct {
	ID           int          `gorm:"primary_key" json:"id"`
	EnterpriseId string       `gorm:"uniqueIndex:idx_document_sequences_scope;not null" json:"enterprise_id"`
	Kind         DocumentKind `gorm:"size:20;uniqueIndex:idx_document_sequences_scope;not null" json:"kind"`
	LastNumber   int          `gorm:"not null;default:0" json:"last_number"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

// FormatDocumentNumber renders the human-facing number, e.g. INV-000042.
func FormatDocumentNumber(kind DocumentKind, n int) string {
	return fmt.Sprintf("%s-%06d", DocumentNumberPrefix(kind), n)
}

// ParseDocumentNumberSuffix extracts the numeric suffix of a formatted
// document number. Returns 0 for anything unparseable.
func ParseDocumentNumberSuffix(number string) int {
	idx := strings.LastIndex(number, "-")
	if idx < 0 || idx == len(number)-1 {
		return 0
	}
	n, err := strconv.Atoi(number[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

// NextDocumentNumber allocates the next number for (enterprise, kind) inside
// the caller's transaction. A fresh counter row is seeded from the highest
// number already present for that kind so legacy numbering continues.
func NextDocumentNumber(tx *gorm.DB, enterpriseId string, kind DocumentKind) (string, error) {
	seq := DocumentSequence{
		EnterpriseId: enterpriseId,
		Kind:         kind,
	}

	scope := tx
	if tx.Dialector.Name() != "sqlite" {
		scope = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	result := scope.Where("enterprise_id = ? AND kind = ?", enterpriseId, kind).FirstOrCreate(&seq)
	if result.Error != nil {
		return "", result.Error
	}
	if result.RowsAffected == 1 {
		last, err := seedLastNumber(tx, enterpriseId, kind)
		if err != nil {
			return "", err
		}
		seq.LastNumber = last
	}

	seq.LastNumber++
	if err := tx.Model(&DocumentSequence{}).Where("id = ?", seq.ID).
		Update("last_number", seq.LastNumber).Error; err != nil {
		return "", err
	}
	return FormatDocumentNumber(kind, seq.LastNumber), nil
}

func seedLastNumber(tx *gorm.DB, enterpriseId string, kind DocumentKind) (int, error) {
	var maxNumber *string
	var err error
	switch kind {
	case DocumentKindDeliveryNote:
		err = tx.Model(&DeliveryNote{}).
			Where("enterprise_id = ?", enterpriseId).
			Select("MAX(number)").Scan(&maxNumber).Error
	default:
		invoiceType := InvoiceTypeInvoice
		if kind == DocumentKindProforma {
			invoiceType = InvoiceTypeProforma
		}
		err = tx.Model(&Invoice{}).
			Where("enterprise_id = ? AND invoice_type = ?", enterpriseId, invoiceType).
			Select("MAX(invoice_number)").Scan(&maxNumber).Error
	}
	if err != nil {
		return 0, err
	}
	if maxNumber == nil {
		return 0, nil
	}
	return ParseDocumentNumberSuffix(*maxNumber), nil
}
