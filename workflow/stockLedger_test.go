package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/nimblebooks/invoicing_backend/models"
	"gorm.io/gorm"
)

func TestAggregateRequestedQuantities(t *testing.T) {
	items := []models.InvoiceItem{
		{ProductId: 3, Quantity: dec(t, "4")},
		{ProductId: 1, Quantity: dec(t, "2")},
		{ProductId: 3, Quantity: dec(t, "3")},
		{ProductId: 0, Quantity: dec(t, "99")}, // free-text line, no product
	}
	ids, requested := aggregateRequestedQuantities(items)

	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Fatalf("ids = %v, want [1 3]", ids)
	}
	if !requested[1].Equal(dec(t, "2")) {
		t.Errorf("requested[1] = %s, want 2", requested[1])
	}
	if !requested[3].Equal(dec(t, "7")) {
		t.Errorf("requested[3] = %s, want 7", requested[3])
	}
}

// A product split across two lines must be checked against the summed
// quantity: 3+4 of a product with 6 on hand is a shortage even though each
// line fits individually.
func TestApproveAggregatesAcrossLines(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	logger := testLogger()
	enterpriseId, client := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "6")

	invoice := mustCreateInvoice(t, db, enterpriseId, &models.NewInvoice{
		ClientId: client.ID,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Description: "Widget batch A", UnitPrice: dec(t, "10"), Quantity: dec(t, "3")},
			{ProductId: product.ID, Description: "Widget batch B", UnitPrice: dec(t, "10"), Quantity: dec(t, "4")},
		},
	})
	mustReachPending(t, db, enterpriseId, invoice.ID)

	_, err := ApproveInvoice(ctx, db, logger, enterpriseId, invoice.ID, 1)
	if !IsInsufficientStock(err) {
		t.Fatalf("approve: err = %v, want InsufficientStockError", err)
	}
	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatalf("error %v does not unwrap to InsufficientStockError", err)
	}
	if len(stockErr.Shortages) != 1 {
		t.Fatalf("shortage count = %d, want 1", len(stockErr.Shortages))
	}
	s := stockErr.Shortages[0]
	if s.ProductId != product.ID || !s.Requested.Equal(dec(t, "7")) || !s.Available.Equal(dec(t, "6")) {
		t.Errorf("shortage = %+v, want product %d requested 7 available 6", s, product.ID)
	}

	// Failed approval mutated nothing.
	reloaded, err := models.GetInvoiceWithItems(db, enterpriseId, invoice.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.InvoiceStatusPending {
		t.Errorf("status = %s, want pending", reloaded.Status)
	}
	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "6")) {
		t.Errorf("quantity = %s, want 6", got)
	}

	// 3+3 of 6 fits exactly.
	if _, err := UpdateInvoiceItems(ctx, db, logger, enterpriseId, invoice.ID, 1, []models.NewInvoiceItem{
		{ProductId: product.ID, Description: "Widget batch A", UnitPrice: dec(t, "10"), Quantity: dec(t, "3")},
		{ProductId: product.ID, Description: "Widget batch B", UnitPrice: dec(t, "10"), Quantity: dec(t, "3")},
	}); err != nil {
		t.Fatalf("update items: %v", err)
	}
	if _, err := ApproveInvoice(ctx, db, logger, enterpriseId, invoice.ID, 1); err != nil {
		t.Fatalf("approve exact fit: %v", err)
	}
	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "0")) {
		t.Errorf("quantity after exact fit = %s, want 0", got)
	}
}

func TestDeductInvoiceStockIdempotent(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	enterpriseId, client := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "10")

	invoice := mustCreateInvoice(t, db, enterpriseId, &models.NewInvoice{
		ClientId: client.ID,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Description: "Widget", UnitPrice: dec(t, "10"), Quantity: dec(t, "4")},
		},
	})

	deduct := func() error {
		return db.Transaction(func(tx *gorm.DB) error {
			inv, err := models.GetInvoiceWithItems(tx, enterpriseId, invoice.ID)
			if err != nil {
				return err
			}
			return DeductInvoiceStock(tx, logger, inv, 1)
		})
	}

	if err := deduct(); err != nil {
		t.Fatalf("first deduct: %v", err)
	}
	if err := deduct(); err != nil {
		t.Fatalf("second deduct: %v", err)
	}

	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "6")) {
		t.Errorf("quantity = %s, want 6 (deducted once)", got)
	}
	movements, err := models.GetStockMovementsByInvoice(db, enterpriseId, invoice.ID)
	if err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Errorf("movement count = %d, want 1", len(movements))
	}
}

func TestRestoreWithoutDeductIsNoop(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	enterpriseId, client := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "10")

	invoice := mustCreateInvoice(t, db, enterpriseId, &models.NewInvoice{
		ClientId: client.ID,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Description: "Widget", UnitPrice: dec(t, "10"), Quantity: dec(t, "4")},
		},
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		inv, err := models.GetInvoiceWithItems(tx, enterpriseId, invoice.ID)
		if err != nil {
			return err
		}
		return RestoreInvoiceStock(tx, logger, inv, 1)
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}

	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "10")) {
		t.Errorf("quantity = %s, want 10 (untouched)", got)
	}
	movements, err := models.GetStockMovementsByInvoice(db, enterpriseId, invoice.ID)
	if err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 0 {
		t.Errorf("movement count = %d, want 0", len(movements))
	}
}

func TestDeductRestoreRoundTrip(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	enterpriseId, client := seedTenant(t, db)
	widget := seedProduct(t, db, enterpriseId, "Widget", "10")
	gadget := seedProduct(t, db, enterpriseId, "Gadget", "3.5")

	invoice := mustCreateInvoice(t, db, enterpriseId, &models.NewInvoice{
		ClientId: client.ID,
		Items: []models.NewInvoiceItem{
			{ProductId: widget.ID, Description: "Widget", UnitPrice: dec(t, "10"), Quantity: dec(t, "4")},
			{ProductId: gadget.ID, Description: "Gadget", UnitPrice: dec(t, "7"), Quantity: dec(t, "1.5")},
		},
	})

	err := db.Transaction(func(tx *gorm.DB) error {
		inv, err := models.GetInvoiceWithItems(tx, enterpriseId, invoice.ID)
		if err != nil {
			return err
		}
		if err := DeductInvoiceStock(tx, logger, inv, 1); err != nil {
			return err
		}
		return RestoreInvoiceStock(tx, logger, inv, 1)
	})
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}

	if got := productQuantity(t, db, enterpriseId, widget.ID); !got.Equal(dec(t, "10")) {
		t.Errorf("widget quantity = %s, want 10", got)
	}
	if got := productQuantity(t, db, enterpriseId, gadget.ID); !got.Equal(dec(t, "3.5")) {
		t.Errorf("gadget quantity = %s, want 3.5", got)
	}

	// The journal keeps both sides of the round trip.
	movements, err := models.GetStockMovementsByInvoice(db, enterpriseId, invoice.ID)
	if err != nil {
		t.Fatalf("load movements: %v", err)
	}
	ins, outs := 0, 0
	for _, m := range movements {
		switch m.Kind {
		case models.StockMovementKindIn:
			ins++
		case models.StockMovementKindOut:
			outs++
		}
	}
	if outs != 2 || ins != 2 {
		t.Errorf("movements = %d OUT / %d IN, want 2/2", outs, ins)
	}
}

func TestRestockProduct(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	enterpriseId, _ := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "2")

	restocked, err := RestockProduct(db, logger, enterpriseId, product.ID, dec(t, "5"), 1, "")
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if !restocked.Quantity.Equal(dec(t, "7")) {
		t.Errorf("returned quantity = %s, want 7", restocked.Quantity)
	}
	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "7")) {
		t.Errorf("persisted quantity = %s, want 7", got)
	}

	movements, err := models.GetStockMovementsByProduct(db, enterpriseId, product.ID)
	if err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movement count = %d, want 1", len(movements))
	}
	if movements[0].Kind != models.StockMovementKindIn || movements[0].Reason != models.StockMovementReasonRestock {
		t.Errorf("movement = %+v, want IN/restock", movements[0])
	}

	if _, err := RestockProduct(db, logger, enterpriseId, product.ID, dec(t, "0"), 1, ""); err == nil {
		t.Error("expected error for non-positive restock quantity")
	}
	if _, err := RestockProduct(db, logger, enterpriseId, 9999, dec(t, "1"), 1, ""); err == nil {
		t.Error("expected error for unknown product")
	}
}

func TestRecordManualStockMovement(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	enterpriseId, _ := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "10")

	// IN increments.
	if _, err := RecordManualStockMovement(db, logger, enterpriseId, &models.NewStockMovement{
		ProductId: product.ID,
		Kind:      models.StockMovementKindIn,
		Quantity:  dec(t, "2"),
		Reason:    "found in warehouse",
	}, 1); err != nil {
		t.Fatalf("manual IN: %v", err)
	}
	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "12")) {
		t.Errorf("quantity after IN = %s, want 12", got)
	}

	// OUT decrements after an availability check.
	if _, err := RecordManualStockMovement(db, logger, enterpriseId, &models.NewStockMovement{
		ProductId: product.ID,
		Kind:      models.StockMovementKindOut,
		Quantity:  dec(t, "3"),
		Reason:    "damaged",
	}, 1); err != nil {
		t.Fatalf("manual OUT: %v", err)
	}
	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "9")) {
		t.Errorf("quantity after OUT = %s, want 9", got)
	}

	// OUT beyond availability is rejected.
	_, err := RecordManualStockMovement(db, logger, enterpriseId, &models.NewStockMovement{
		ProductId: product.ID,
		Kind:      models.StockMovementKindOut,
		Quantity:  dec(t, "100"),
		Reason:    "oops",
	}, 1)
	if !IsInsufficientStock(err) {
		t.Errorf("oversized OUT: err = %v, want InsufficientStockError", err)
	}
	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "9")) {
		t.Errorf("quantity after rejected OUT = %s, want 9", got)
	}
}

// ADJUSTMENT rows are journal-only: the movement is recorded but quantity is
// left untouched.
func TestAdjustmentIsJournalOnly(t *testing.T) {
	db := openTestDB(t)
	logger := testLogger()
	enterpriseId, _ := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "10")

	movement, err := RecordManualStockMovement(db, logger, enterpriseId, &models.NewStockMovement{
		ProductId: product.ID,
		Kind:      models.StockMovementKindAdjustment,
		Quantity:  dec(t, "4"),
		Reason:    "cycle count variance",
	}, 1)
	if err != nil {
		t.Fatalf("adjustment: %v", err)
	}
	if movement.Kind != models.StockMovementKindAdjustment {
		t.Errorf("kind = %s, want ADJUSTMENT", movement.Kind)
	}

	if got := productQuantity(t, db, enterpriseId, product.ID); !got.Equal(dec(t, "10")) {
		t.Errorf("quantity = %s, want 10 (untouched)", got)
	}
	movements, err := models.GetStockMovementsByProduct(db, enterpriseId, product.ID)
	if err != nil {
		t.Fatalf("load movements: %v", err)
	}
	if len(movements) != 1 {
		t.Errorf("movement count = %d, want 1", len(movements))
	}
}
