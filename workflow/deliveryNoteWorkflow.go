package workflow

import (
	"context"
	"errors"
	"strings"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func isDuplicateKeyErr(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	// SQLite (tests) reports constraint violations as plain strings.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateDeliveryNoteFromInvoice derives a draft shipping document from an
// approved or paid invoice, copying its line items as a point-in-time
// snapshot. Runs inside the caller's transaction.
func CreateDeliveryNoteFromInvoice(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, actorId int) (*models.DeliveryNote, error) {
	if invoice.Status != models.InvoiceStatusApproved && invoice.Status != models.InvoiceStatusPaid {
		return nil, ErrInvalidState
	}

	number, err := models.NextDocumentNumber(tx, invoice.EnterpriseId, models.DocumentKindDeliveryNote)
	if err != nil {
		config.LogError(logger, "deliveryNoteWorkflow.go", "CreateDeliveryNoteFromInvoice", "NextDocumentNumber", invoice.ID, err)
		return nil, err
	}

	items := make([]models.DeliveryNoteItem, 0, len(invoice.Items))
	for _, item := range invoice.Items {
		items = append(items, models.DeliveryNoteItem{
			ProductId:   item.ProductId,
			Description: item.Description,
			Quantity:    item.Quantity,
		})
	}

	note := models.DeliveryNote{
		EnterpriseId: invoice.EnterpriseId,
		Number:       number,
		Status:       models.DeliveryNoteStatusDraft,
		InvoiceId:    invoice.ID,
		ClientId:     invoice.ClientId,
		Items:        items,
		CreatedBy:    actorId,
	}
	if err := tx.Create(&note).Error; err != nil {
		config.LogError(logger, "deliveryNoteWorkflow.go", "CreateDeliveryNoteFromInvoice", "Create", note, err)
		return nil, err
	}
	return &note, nil
}

// UpdateDeliveryNote patches header fields and, when items are supplied,
// replaces the item list wholesale. A partial item list therefore drops the
// omitted items; the shipping workflow owns the note independently of the
// invoice from generation onwards.
func UpdateDeliveryNote(ctx context.Context, db *gorm.DB, logger *logrus.Logger, enterpriseId string, noteId int, input *models.UpdateDeliveryNoteInput) (*models.DeliveryNote, error) {
	var note *models.DeliveryNote
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := models.GetDeliveryNoteWithItems(tx, enterpriseId, noteId)
		if err != nil {
			return err
		}

		updates := map[string]interface{}{}
		if input.Status != nil {
			if !input.Status.Valid() {
				return errors.New("invalid delivery note status")
			}
			n.Status = *input.Status
			updates["status"] = n.Status
		}
		if input.DeliveryDate != nil {
			n.DeliveryDate = input.DeliveryDate
			updates["delivery_date"] = input.DeliveryDate
		}
		if input.CourierName != nil {
			n.CourierName = *input.CourierName
			updates["courier_name"] = n.CourierName
		}
		if input.Notes != nil {
			n.Notes = *input.Notes
			updates["notes"] = n.Notes
		}
		if len(updates) > 0 {
			if err := tx.Model(&models.DeliveryNote{}).Where("id = ?", n.ID).Updates(updates).Error; err != nil {
				config.LogError(logger, "deliveryNoteWorkflow.go", "UpdateDeliveryNote", "UpdateHeader", noteId, err)
				return err
			}
		}

		if input.Items != nil {
			if err := tx.Where("delivery_note_id = ?", n.ID).Delete(&models.DeliveryNoteItem{}).Error; err != nil {
				config.LogError(logger, "deliveryNoteWorkflow.go", "UpdateDeliveryNote", "DeleteItems", noteId, err)
				return err
			}
			items := make([]models.DeliveryNoteItem, 0, len(input.Items))
			for _, in := range input.Items {
				items = append(items, models.DeliveryNoteItem{
					DeliveryNoteId: n.ID,
					ProductId:      in.ProductId,
					Description:    in.Description,
					Quantity:       in.Quantity,
				})
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					config.LogError(logger, "deliveryNoteWorkflow.go", "UpdateDeliveryNote", "CreateItems", noteId, err)
					return err
				}
			}
			n.Items = items
		}

		note = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}
