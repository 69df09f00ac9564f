package workflow

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/nimblebooks/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// aggregateRequestedQuantities sums requested quantity per product across all
// line items. A product referenced on two lines must be summed, never checked
// line by line. Free-text lines (product id 0) are skipped.
func aggregateRequestedQuantities(items []models.InvoiceItem) ([]int, map[int]decimal.Decimal) {
	requested := make(map[int]decimal.Decimal)
	ids := make([]int, 0)
	for _, item := range items {
		if item.ProductId <= 0 {
			continue
		}
		if _, ok := requested[item.ProductId]; !ok {
			ids = append(ids, item.ProductId)
		}
		requested[item.ProductId] = requested[item.ProductId].Add(item.Quantity)
	}
	slices.Sort(ids)
	return ids, requested
}

func computeShortages(products []models.Product, requested map[int]decimal.Decimal) []StockShortage {
	shortages := make([]StockShortage, 0)
	for _, p := range products {
		req := requested[p.ID]
		if req.GreaterThan(p.Quantity) {
			shortages = append(shortages, StockShortage{
				ProductId:   p.ID,
				ProductName: p.Name,
				Requested:   req,
				Available:   p.Quantity,
			})
		}
	}
	return shortages
}

// ValidateInvoiceStockAvailability is the side-effect-free pre-check run
// before the mutating transaction. The result can go stale; DeductInvoiceStock
// re-validates under lock before committing.
func ValidateInvoiceStockAvailability(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice) error {
	ids, requested := aggregateRequestedQuantities(invoice.Items)
	if len(ids) == 0 {
		return nil
	}
	products, err := models.GetProductsByIds(tx, invoice.EnterpriseId, ids)
	if err != nil {
		config.LogError(logger, "stockLedger.go", "ValidateInvoiceStockAvailability", "GetProductsByIds", ids, err)
		return err
	}
	if len(products) != len(ids) {
		return utils.ErrorRecordNotFound
	}
	if shortages := computeShortages(products, requested); len(shortages) > 0 {
		return &InsufficientStockError{Shortages: shortages}
	}
	return nil
}

// lockInvoiceRow re-reads the invoice under an exclusive row lock so the
// stock_deducted_at check-and-set is atomic with the quantity mutation it
// guards.
func lockInvoiceRow(tx *gorm.DB, invoice *models.Invoice) (*models.Invoice, error) {
	scope := tx
	if tx.Dialector.Name() != "sqlite" {
		scope = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var locked models.Invoice
	err := scope.Where("enterprise_id = ? AND id = ?", invoice.EnterpriseId, invoice.ID).First(&locked).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &locked, nil
}

// DeductInvoiceStock decrements product quantities by the invoice's aggregated
// line quantities and journals one OUT movement per line item. Idempotent:
// once stock_deducted_at is set a second call is a no-op.
func DeductInvoiceStock(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, actorId int) error {
	locked, err := lockInvoiceRow(tx, invoice)
	if err != nil {
		config.LogError(logger, "stockLedger.go", "DeductInvoiceStock", "LockInvoice", invoice.ID, err)
		return err
	}
	if locked.StockDeductedAt != nil {
		invoice.StockDeductedAt = locked.StockDeductedAt
		return nil
	}

	ids, requested := aggregateRequestedQuantities(invoice.Items)
	if len(ids) > 0 {
		products, err := models.GetProductsForUpdate(tx, invoice.EnterpriseId, ids)
		if err != nil {
			config.LogError(logger, "stockLedger.go", "DeductInvoiceStock", "GetProductsForUpdate", ids, err)
			return err
		}
		// The pre-check may be stale by now; re-validate under lock.
		if shortages := computeShortages(products, requested); len(shortages) > 0 {
			return &InsufficientStockError{Shortages: shortages}
		}

		for _, product := range products {
			err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
				Update("quantity", gorm.Expr("quantity - ?", requested[product.ID])).Error
			if err != nil {
				config.LogError(logger, "stockLedger.go", "DeductInvoiceStock", "DecrementQuantity", product.ID, err)
				return err
			}
		}

		for _, item := range invoice.Items {
			if item.ProductId <= 0 {
				continue
			}
			movement := models.StockMovement{
				EnterpriseId: invoice.EnterpriseId,
				ProductId:    item.ProductId,
				Kind:         models.StockMovementKindOut,
				Quantity:     item.Quantity,
				Reason:       models.StockMovementReasonInvoiceApproved,
				InvoiceId:    utils.NewInt(invoice.ID),
				CreatedBy:    actorId,
			}
			if err := models.CreateStockMovement(tx, &movement); err != nil {
				config.LogError(logger, "stockLedger.go", "DeductInvoiceStock", "CreateStockMovement", movement, err)
				return err
			}
		}
	}

	now := time.Now().UTC()
	err = tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		Update("stock_deducted_at", now).Error
	if err != nil {
		config.LogError(logger, "stockLedger.go", "DeductInvoiceStock", "SetStockDeductedAt", invoice.ID, err)
		return err
	}
	invoice.StockDeductedAt = &now
	return nil
}

// RestoreInvoiceStock is the exact inverse of DeductInvoiceStock: increments
// per line item, IN movements, marker cleared. Idempotent when the marker is
// not set.
func RestoreInvoiceStock(tx *gorm.DB, logger *logrus.Logger, invoice *models.Invoice, actorId int) error {
	locked, err := lockInvoiceRow(tx, invoice)
	if err != nil {
		config.LogError(logger, "stockLedger.go", "RestoreInvoiceStock", "LockInvoice", invoice.ID, err)
		return err
	}
	if locked.StockDeductedAt == nil {
		invoice.StockDeductedAt = nil
		return nil
	}

	ids, restored := aggregateRequestedQuantities(invoice.Items)
	if len(ids) > 0 {
		products, err := models.GetProductsForUpdate(tx, invoice.EnterpriseId, ids)
		if err != nil {
			config.LogError(logger, "stockLedger.go", "RestoreInvoiceStock", "GetProductsForUpdate", ids, err)
			return err
		}
		for _, product := range products {
			err := tx.Model(&models.Product{}).Where("id = ?", product.ID).
				Update("quantity", gorm.Expr("quantity + ?", restored[product.ID])).Error
			if err != nil {
				config.LogError(logger, "stockLedger.go", "RestoreInvoiceStock", "IncrementQuantity", product.ID, err)
				return err
			}
		}

		for _, item := range invoice.Items {
			if item.ProductId <= 0 {
				continue
			}
			movement := models.StockMovement{
				EnterpriseId: invoice.EnterpriseId,
				ProductId:    item.ProductId,
				Kind:         models.StockMovementKindIn,
				Quantity:     item.Quantity,
				Reason:       models.StockMovementReasonInvoiceUnpaid,
				InvoiceId:    utils.NewInt(invoice.ID),
				CreatedBy:    actorId,
			}
			if err := models.CreateStockMovement(tx, &movement); err != nil {
				config.LogError(logger, "stockLedger.go", "RestoreInvoiceStock", "CreateStockMovement", movement, err)
				return err
			}
		}
	}

	err = tx.Model(&models.Invoice{}).Where("id = ?", invoice.ID).
		Update("stock_deducted_at", nil).Error
	if err != nil {
		config.LogError(logger, "stockLedger.go", "RestoreInvoiceStock", "ClearStockDeductedAt", invoice.ID, err)
		return err
	}
	invoice.StockDeductedAt = nil
	return nil
}

// RestockProduct increments on-hand quantity for manual replenishment
// unrelated to invoices.
func RestockProduct(db *gorm.DB, logger *logrus.Logger, enterpriseId string, productId int, quantity decimal.Decimal, actorId int, reason string) (*models.Product, error) {
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("restock quantity must be positive")
	}
	if reason == "" {
		reason = models.StockMovementReasonRestock
	}

	var product *models.Product
	err := db.Transaction(func(tx *gorm.DB) error {
		products, err := models.GetProductsForUpdate(tx, enterpriseId, []int{productId})
		if err != nil {
			config.LogError(logger, "stockLedger.go", "RestockProduct", "GetProductsForUpdate", productId, err)
			return err
		}
		err = tx.Model(&models.Product{}).Where("id = ?", productId).
			Update("quantity", gorm.Expr("quantity + ?", quantity)).Error
		if err != nil {
			config.LogError(logger, "stockLedger.go", "RestockProduct", "IncrementQuantity", productId, err)
			return err
		}
		movement := models.StockMovement{
			EnterpriseId: enterpriseId,
			ProductId:    productId,
			Kind:         models.StockMovementKindIn,
			Quantity:     quantity,
			Reason:       reason,
			CreatedBy:    actorId,
		}
		if err := models.CreateStockMovement(tx, &movement); err != nil {
			config.LogError(logger, "stockLedger.go", "RestockProduct", "CreateStockMovement", movement, err)
			return err
		}
		products[0].Quantity = products[0].Quantity.Add(quantity)
		product = &products[0]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// RecordManualStockMovement journals an ad-hoc correction. IN increments,
// OUT decrements after an availability check. ADJUSTMENT only journals: the
// sign and intent of an adjustment are ambiguous, so quantity is deliberately
// left untouched pending an explicit product decision.
func RecordManualStockMovement(db *gorm.DB, logger *logrus.Logger, enterpriseId string, input *models.NewStockMovement, actorId int) (*models.StockMovement, error) {
	if !input.Kind.Valid() {
		return nil, fmt.Errorf("invalid stock movement kind %q", input.Kind)
	}
	if !input.Quantity.IsPositive() {
		return nil, fmt.Errorf("stock movement quantity must be positive")
	}

	var movement *models.StockMovement
	err := db.Transaction(func(tx *gorm.DB) error {
		products, err := models.GetProductsForUpdate(tx, enterpriseId, []int{input.ProductId})
		if err != nil {
			config.LogError(logger, "stockLedger.go", "RecordManualStockMovement", "GetProductsForUpdate", input.ProductId, err)
			return err
		}
		product := products[0]

		switch input.Kind {
		case models.StockMovementKindIn:
			err = tx.Model(&models.Product{}).Where("id = ?", product.ID).
				Update("quantity", gorm.Expr("quantity + ?", input.Quantity)).Error
		case models.StockMovementKindOut:
			if input.Quantity.GreaterThan(product.Quantity) {
				return &InsufficientStockError{Shortages: []StockShortage{{
					ProductId:   product.ID,
					ProductName: product.Name,
					Requested:   input.Quantity,
					Available:   product.Quantity,
				}}}
			}
			err = tx.Model(&models.Product{}).Where("id = ?", product.ID).
				Update("quantity", gorm.Expr("quantity - ?", input.Quantity)).Error
		case models.StockMovementKindAdjustment:
			// journal only
		}
		if err != nil {
			config.LogError(logger, "stockLedger.go", "RecordManualStockMovement", "UpdateQuantity", input, err)
			return err
		}

		m := models.StockMovement{
			EnterpriseId: enterpriseId,
			ProductId:    input.ProductId,
			Kind:         input.Kind,
			Quantity:     input.Quantity,
			Reason:       input.Reason,
			CreatedBy:    actorId,
		}
		if err := models.CreateStockMovement(tx, &m); err != nil {
			config.LogError(logger, "stockLedger.go", "RecordManualStockMovement", "CreateStockMovement", m, err)
			return err
		}
		movement = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}
