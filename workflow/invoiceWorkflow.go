package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RecalcInvoiceTotals recomputes line totals, subtotal and total from the
// current line items and tax rate. Pure recomputation, no error path. Must be
// invoked inside the same transaction immediately after any line-item
// mutation.
func RecalcInvoiceTotals(invoice *models.Invoice) {
	subtotal := decimal.NewFromInt(0)
	for i := range invoice.Items {
		invoice.Items[i].LineTotal = invoice.Items[i].UnitPrice.Mul(invoice.Items[i].Quantity)
		subtotal = subtotal.Add(invoice.Items[i].LineTotal)
	}
	invoice.Subtotal = subtotal
	taxFactor := decimal.NewFromInt(1).Add(invoice.TaxRate.Div(decimal.NewFromInt(100)))
	invoice.Total = subtotal.Mul(taxFactor)
}

func mapInvoiceItems(input []models.NewInvoiceItem) ([]models.InvoiceItem, error) {
	one := decimal.NewFromInt(1)
	items := make([]models.InvoiceItem, 0, len(input))
	for i, in := range input {
		if in.Quantity.LessThan(one) {
			return nil, fmt.Errorf("item %d: quantity must be at least 1", i+1)
		}
		items = append(items, models.InvoiceItem{
			ProductId:   in.ProductId,
			Description: in.Description,
			UnitPrice:   in.UnitPrice,
			Quantity:    in.Quantity,
		})
	}
	return items, nil
}

// CreateInvoice creates a draft invoice with its line items, allocating the
// document number from the tenant's sequence.
func CreateInvoice(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, actorId int, input *models.NewInvoice) (*models.Invoice, error) {
	invoiceType := input.InvoiceType
	if invoiceType == "" {
		invoiceType = models.InvoiceTypeInvoice
	}
	if !invoiceType.Valid() {
		return nil, fmt.Errorf("invalid invoice type %q", input.InvoiceType)
	}

	items, err := mapInvoiceItems(input.Items)
	if err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := models.GetClientById(tx, enterpriseId, input.ClientId); err != nil {
			return err
		}

		kind := models.DocumentKindInvoice
		if invoiceType == models.InvoiceTypeProforma {
			kind = models.DocumentKindProforma
		}
		number, err := models.NextDocumentNumber(tx, enterpriseId, kind)
		if err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "CreateInvoice", "NextDocumentNumber", kind, err)
			return err
		}

		invoiceDate := input.InvoiceDate
		if invoiceDate.IsZero() {
			invoiceDate = time.Now().UTC()
		}

		inv := models.Invoice{
			EnterpriseId:  enterpriseId,
			InvoiceNumber: number,
			InvoiceType:   invoiceType,
			Status:        models.InvoiceStatusDraft,
			ClientId:      input.ClientId,
			InvoiceDate:   invoiceDate,
			TaxRate:       input.TaxRate,
			Notes:         input.Notes,
			Items:         items,
			CreatedBy:     actorId,
		}
		RecalcInvoiceTotals(&inv)

		if err := tx.Create(&inv).Error; err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "CreateInvoice", "Create", inv, err)
			return err
		}
		invoice = &inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// UpdateInvoiceItems replaces the invoice's line items wholesale and
// recalculates totals in the same transaction. Legal only while the invoice
// is editable (draft, or pending after a modification approval).
func UpdateInvoiceItems(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int, input []models.NewInvoiceItem) (*models.Invoice, error) {
	items, err := mapInvoiceItems(input)
	if err != nil {
		return nil, err
	}

	var invoice *models.Invoice
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := models.GetInvoiceWithItems(tx, enterpriseId, invoiceId)
		if err != nil {
			return err
		}
		if inv.Status != models.InvoiceStatusDraft && inv.Status != models.InvoiceStatusPending {
			return invalidTransition("update items", inv.InvoiceType, inv.Status)
		}

		if err := models.ReplaceInvoiceItems(tx, inv, items); err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "UpdateInvoiceItems", "ReplaceInvoiceItems", invoiceId, err)
			return err
		}
		RecalcInvoiceTotals(inv)
		err = tx.Model(&models.Invoice{}).Where("id = ?", inv.ID).
			Updates(map[string]interface{}{"subtotal": inv.Subtotal, "total": inv.Total}).Error
		if err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "UpdateInvoiceItems", "UpdateTotals", invoiceId, err)
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// SubmitInvoice moves a draft invoice to pending.
func SubmitInvoice(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int) (*models.Invoice, error) {
	return runTransition(ctx, db, enterpriseId, invoiceId, func(tx *gorm.DB, invoice *models.Invoice) error {
		if invoice.InvoiceType != models.InvoiceTypeInvoice || invoice.Status != models.InvoiceStatusDraft {
			return invalidTransition("submit", invoice.InvoiceType, invoice.Status)
		}
		invoice.Status = models.InvoiceStatusPending
		return tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Update("status", invoice.Status).Error
	})
}

// ApproveInvoice validates availability, commits the approved status and
// deducts stock, all in one transaction. The availability pre-check runs
// before the transaction opens so obvious shortfalls fail fast without
// taking locks.
func ApproveInvoice(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int) (*models.Invoice, error) {
	precheck, err := models.GetInvoiceWithItems(db.WithContext(ctx), enterpriseId, invoiceId)
	if err != nil {
		return nil, err
	}
	if precheck.InvoiceType != models.InvoiceTypeInvoice || precheck.Status != models.InvoiceStatusPending {
		return nil, invalidTransition("approve", precheck.InvoiceType, precheck.Status)
	}
	if err := ValidateInvoiceStockAvailability(db.WithContext(ctx), logger, precheck); err != nil {
		return nil, err
	}

	return runTransition(ctx, db, enterpriseId, invoiceId, func(tx *gorm.DB, invoice *models.Invoice) error {
		if invoice.InvoiceType != models.InvoiceTypeInvoice || invoice.Status != models.InvoiceStatusPending {
			return invalidTransition("approve", invoice.InvoiceType, invoice.Status)
		}

		now := time.Now().UTC()
		invoice.Status = models.InvoiceStatusApproved
		invoice.ApprovedBy = &actorId
		invoice.ApprovedAt = &now
		err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"status":      invoice.Status,
				"approved_by": actorId,
				"approved_at": now,
			}).Error
		if err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "ApproveInvoice", "UpdateStatus", invoiceId, err)
			return err
		}

		return DeductInvoiceStock(tx, logger, invoice, actorId)
	})
}

// MarkInvoicePaid records payment and materializes the delivery note if none
// exists yet. Stock is untouched: it was already deducted at approval.
func MarkInvoicePaid(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int) (*models.Invoice, error) {
	return runTransition(ctx, db, enterpriseId, invoiceId, func(tx *gorm.DB, invoice *models.Invoice) error {
		if invoice.Status != models.InvoiceStatusApproved {
			return invalidTransition("mark paid", invoice.InvoiceType, invoice.Status)
		}

		now := time.Now().UTC()
		invoice.Status = models.InvoiceStatusPaid
		invoice.PaidBy = &actorId
		invoice.PaidAt = &now
		err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"status":  invoice.Status,
				"paid_by": actorId,
				"paid_at": now,
			}).Error
		if err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "MarkInvoicePaid", "UpdateStatus", invoiceId, err)
			return err
		}

		existing, err := models.GetDeliveryNoteByInvoice(tx, enterpriseId, invoice.ID)
		if err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "MarkInvoicePaid", "GetDeliveryNoteByInvoice", invoiceId, err)
			return err
		}
		if existing != nil {
			return nil
		}
		if _, err := CreateDeliveryNoteFromInvoice(tx, logger, invoice, actorId); err != nil {
			// The unique index on invoice_id may reject a racing duplicate;
			// the note exists, which is all this step guarantees.
			if isDuplicateKeyErr(err) {
				return nil
			}
			return err
		}
		return nil
	})
}

// MarkInvoiceUnpaid restores stock and reverts the invoice to pending so it
// can be re-approved from scratch.
func MarkInvoiceUnpaid(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int) (*models.Invoice, error) {
	return runTransition(ctx, db, enterpriseId, invoiceId, func(tx *gorm.DB, invoice *models.Invoice) error {
		if invoice.Status != models.InvoiceStatusPaid {
			return invalidTransition("mark unpaid", invoice.InvoiceType, invoice.Status)
		}

		if err := RestoreInvoiceStock(tx, logger, invoice, actorId); err != nil {
			return err
		}

		invoice.Status = models.InvoiceStatusPending
		invoice.ApprovedBy = nil
		invoice.ApprovedAt = nil
		invoice.PaidBy = nil
		invoice.PaidAt = nil
		err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"status":      invoice.Status,
				"approved_by": nil,
				"approved_at": nil,
				"paid_by":     nil,
				"paid_at":     nil,
			}).Error
		if err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "MarkInvoiceUnpaid", "UpdateStatus", invoiceId, err)
			return err
		}
		return nil
	})
}

// ValidateProforma moves a draft proforma to its terminal sent status. No
// stock effect ever.
func ValidateProforma(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int) (*models.Invoice, error) {
	return runTransition(ctx, db, enterpriseId, invoiceId, func(tx *gorm.DB, invoice *models.Invoice) error {
		if invoice.InvoiceType != models.InvoiceTypeProforma || invoice.Status != models.InvoiceStatusDraft {
			return invalidTransition("validate proforma", invoice.InvoiceType, invoice.Status)
		}
		invoice.Status = models.InvoiceStatusSent
		return tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Update("status", invoice.Status).Error
	})
}

// RequestInvoiceModification flags a locked (approved/paid) invoice for
// modification without changing its status.
func RequestInvoiceModification(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int) (*models.Invoice, error) {
	return runTransition(ctx, db, enterpriseId, invoiceId, func(tx *gorm.DB, invoice *models.Invoice) error {
		if invoice.Status != models.InvoiceStatusApproved && invoice.Status != models.InvoiceStatusPaid {
			return invalidTransition("request modification", invoice.InvoiceType, invoice.Status)
		}
		now := time.Now().UTC()
		invoice.ModificationRequestedAt = &now
		return tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Update("modification_requested_at", now).Error
	})
}

// ApproveInvoiceModification returns a flagged invoice to the editable
// pending state, restoring stock first when it had been deducted.
func ApproveInvoiceModification(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, invoiceId int, actorId int) (*models.Invoice, error) {
	return runTransition(ctx, db, enterpriseId, invoiceId, func(tx *gorm.DB, invoice *models.Invoice) error {
		if invoice.ModificationRequestedAt == nil {
			return fmt.Errorf("no open modification request on invoice %d: %w", invoice.ID, ErrPreconditionFailed)
		}

		if invoice.Status == models.InvoiceStatusApproved || invoice.Status == models.InvoiceStatusPaid {
			if err := RestoreInvoiceStock(tx, logger, invoice, actorId); err != nil {
				return err
			}
		}

		invoice.Status = models.InvoiceStatusPending
		invoice.ModificationRequestedAt = nil
		invoice.ApprovedBy = nil
		invoice.ApprovedAt = nil
		invoice.PaidBy = nil
		invoice.PaidAt = nil
		err := tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
			Updates(map[string]interface{}{
				"status":                    invoice.Status,
				"modification_requested_at": nil,
				"approved_by":               nil,
				"approved_at":               nil,
				"paid_by":                   nil,
				"paid_at":                   nil,
			}).Error
		if err != nil {
			config.LogError(logger, "invoiceWorkflow.go", "ApproveInvoiceModification", "UpdateStatus", invoiceId, err)
			return err
		}
		return nil
	})
}

// runTransition is the scoped unit of work every status transition goes
// through: per-invoice serialization, one transaction, aggregate loaded
// fresh inside it. Any error rolls the whole operation back; partial status
// or stock changes are structurally impossible.
func runTransition(ctx context.Context, db *gorm.DB, enterpriseId string, invoiceId int, fn func(tx *gorm.DB, invoice *models.Invoice) error) (*models.Invoice, error) {
	lock, err := AcquireInvoiceTransitionLock(ctx, enterpriseId, invoiceId)
	if err != nil {
		return nil, err
	}
	defer ReleaseInvoiceTransitionLock(ctx, lock)

	var invoice *models.Invoice
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		inv, err := models.GetInvoiceWithItems(tx, enterpriseId, invoiceId)
		if err != nil {
			return err
		}
		if err := fn(tx, inv); err != nil {
			return err
		}
		invoice = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}
