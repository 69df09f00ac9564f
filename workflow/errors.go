package workflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidStateTransition rejects a transition that is illegal for the
	// invoice's current (type, status) pair. Nothing is mutated.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrPreconditionFailed rejects an operation whose required prior state
	// (e.g. an open modification request) is absent.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrInvalidState rejects delivery note generation for an invoice that is
	// not yet approved or paid.
	ErrInvalidState = errors.New("invoice not eligible for delivery note")
)

func invalidTransition(op string, invoiceType models.InvoiceType, status models.InvoiceStatus) error {
	return fmt.Errorf("%s: not allowed for %s in status %s: %w", op, invoiceType, status, ErrInvalidStateTransition)
}

// StockShortage carries the requested-vs-available figures for one product
// that cannot cover an invoice.
type StockShortage struct {
	ProductId   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Requested   decimal.Decimal `json:"requested"`
	Available   decimal.Decimal `json:"available"`
}

// InsufficientStockError reports every short product, not just the first.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (product %d): requested %s, available %s",
			s.ProductName, s.ProductId, s.Requested.String(), s.Available.String()))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// IsInsufficientStock reports whether err (or anything it wraps) is an
// InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
