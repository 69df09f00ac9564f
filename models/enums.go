package models

// InvoiceType separates binding invoices from proforma drafts.
// Proformas never touch stock.
type InvoiceType string

const (
	InvoiceTypeInvoice  InvoiceType = "invoice"
	InvoiceTypeProforma InvoiceType = "proforma"
)

func (t InvoiceType) Valid() bool {
	switch t {
	case InvoiceTypeInvoice, InvoiceTypeProforma:
		return true
	}
	return false
}

type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "draft"
	InvoiceStatusPending  InvoiceStatus = "pending"
	InvoiceStatusApproved InvoiceStatus = "approved"
	InvoiceStatusPaid     InvoiceStatus = "paid"
	// InvoiceStatusSent is the terminal proforma status.
	InvoiceStatusSent InvoiceStatus = "sent"
)

type DeliveryNoteStatus string

const (
	DeliveryNoteStatusDraft     DeliveryNoteStatus = "draft"
	DeliveryNoteStatusShipped   DeliveryNoteStatus = "shipped"
	DeliveryNoteStatusDelivered DeliveryNoteStatus = "delivered"
)

func (s DeliveryNoteStatus) Valid() bool {
	switch s {
	case DeliveryNoteStatusDraft, DeliveryNoteStatusShipped, DeliveryNoteStatusDelivered:
		return true
	}
	return false
}

type StockMovementKind string

const (
	StockMovementKindIn         StockMovementKind = "IN"
	StockMovementKindOut        StockMovementKind = "OUT"
	StockMovementKindAdjustment StockMovementKind = "ADJUSTMENT"
)

func (k StockMovementKind) Valid() bool {
	switch k {
	case StockMovementKindIn, StockMovementKindOut, StockMovementKindAdjustment:
		return true
	}
	return false
}

// Movement reasons written by the workflow. Manual movements carry
// caller-supplied reasons.
const (
	StockMovementReasonInvoiceApproved = "invoice_approved"
	StockMovementReasonInvoiceUnpaid   = "invoice_unpaid"
	StockMovementReasonRestock         = "restock"
)

// DocumentKind keys the per-tenant number sequences.
type DocumentKind string

const (
	DocumentKindInvoice      DocumentKind = "invoice"
	DocumentKindProforma     DocumentKind = "proforma"
	DocumentKindDeliveryNote DocumentKind = "delivery_note"
)

// DocumentNumberPrefix returns the fixed human-facing prefix per kind.
func DocumentNumberPrefix(kind DocumentKind) string {
	switch kind {
	case DocumentKindProforma:
		return "PRO"
	case DocumentKindDeliveryNote:
		return "DN"
	default:
		return "INV"
	}
}
