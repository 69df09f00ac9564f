package workflow

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/nimblebooks/invoicing_backend/models"
	"gorm.io/gorm"
)

// Aggregation must be deterministic regardless of line order or concurrent
// callers: the deduction amount for an invoice is a pure function of its
// items.
func TestAggregationDeterministic(t *testing.T) {
	base := []models.InvoiceItem{
		{ProductId: 5, Quantity: dec(t, "1.5")},
		{ProductId: 2, Quantity: dec(t, "3")},
		{ProductId: 5, Quantity: dec(t, "2")},
		{ProductId: 9, Quantity: dec(t, "1")},
		{ProductId: 2, Quantity: dec(t, "0.25")},
	}
	wantIds, wantRequested := aggregateRequestedQuantities(base)

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			shuffled := make([]models.InvoiceItem, len(base))
			copy(shuffled, base)
			rng := rand.New(rand.NewSource(seed))
			rng.Shuffle(len(shuffled), func(i, j int) {
				shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
			})

			ids, requested := aggregateRequestedQuantities(shuffled)
			if len(ids) != len(wantIds) {
				t.Errorf("ids = %v, want %v", ids, wantIds)
				return
			}
			for i := range ids {
				if ids[i] != wantIds[i] {
					t.Errorf("ids = %v, want %v", ids, wantIds)
					return
				}
			}
			for id, want := range wantRequested {
				if !requested[id].Equal(want) {
					t.Errorf("requested[%d] = %s, want %s", id, requested[id], want)
				}
			}
		}(int64(g))
	}
	wg.Wait()
}

// Two callers racing to approve the same invoice: the transition lock and the
// in-transaction status re-check guarantee exactly one wins and stock is
// deducted exactly once.
func TestDoubleApproveDeductsOnce(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	logger := testLogger()
	enterpriseId, client := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "10")

	invoice := mustCreateInvoice(t, db, enterpriseId, &models.NewInvoice{
		ClientId: client.ID,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Description: "Widget", UnitPrice: dec(t, "10"), Quantity: dec(t, "4")},
		},
	})
	mustReachPending(t, db, enterpriseId, invoice.ID)

	if _, err := ApproveInvoice(ctx, db, logger, enterpriseId, invoice.ID, 1); err != nil {
		t.Fatalf("first approve: %v", err)
	}
	_, err := ApproveInvoice(ctx, db, logger, enterpriseId, invoice.ID, 2)
	if !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("second approve: err = %v, want ErrInvalidStateTransition", err)
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

// The unique index on delivery_notes.invoice_id is the last line of defense
// against racing markPaid calls; the constraint violation must be recognized
// as a duplicate so the caller treats the note as already generated.
func TestDuplicateDeliveryNoteHitsUniqueIndex(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	logger := testLogger()
	enterpriseId, client := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "10")

	invoice := mustCreateInvoice(t, db, enterpriseId, &models.NewInvoice{
		ClientId: client.ID,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Description: "Widget", UnitPrice: dec(t, "10"), Quantity: dec(t, "1")},
		},
	})
	mustReachPending(t, db, enterpriseId, invoice.ID)
	approved, err := ApproveInvoice(ctx, db, logger, enterpriseId, invoice.ID, 1)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := CreateDeliveryNoteFromInvoice(tx, logger, approved, 1)
		return err
	})
	if err != nil {
		t.Fatalf("first note: %v", err)
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := CreateDeliveryNoteFromInvoice(tx, logger, approved, 1)
		return err
	})
	if err == nil {
		t.Fatal("second note creation succeeded, want unique violation")
	}
	if !isDuplicateKeyErr(err) {
		t.Errorf("err = %v, not recognized as duplicate key", err)
	}

	var count int64
	if err := db.Model(&models.DeliveryNote{}).Where("invoice_id = ?", invoice.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("note count = %d, want 1", count)
	}
}

// markPaid after the note already exists reuses it instead of failing.
func TestMarkPaidToleratesExistingNote(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	logger := testLogger()
	enterpriseId, client := seedTenant(t, db)
	product := seedProduct(t, db, enterpriseId, "Widget", "10")

	invoice := mustCreateInvoice(t, db, enterpriseId, &models.NewInvoice{
		ClientId: client.ID,
		Items: []models.NewInvoiceItem{
			{ProductId: product.ID, Description: "Widget", UnitPrice: dec(t, "10"), Quantity: dec(t, "1")},
		},
	})
	mustReachPending(t, db, enterpriseId, invoice.ID)
	approved, err := ApproveInvoice(ctx, db, logger, enterpriseId, invoice.ID, 1)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}

	// Note generated out of band before payment lands.
	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := CreateDeliveryNoteFromInvoice(tx, logger, approved, 1)
		return err
	})
	if err != nil {
		t.Fatalf("pre-create note: %v", err)
	}

	if _, err := MarkInvoicePaid(ctx, db, logger, enterpriseId, invoice.ID, 1); err != nil {
		t.Fatalf("pay with existing note: %v", err)
	}

	var count int64
	if err := db.Model(&models.DeliveryNote{}).Where("invoice_id = ?", invoice.ID).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("note count = %d, want 1", count)
	}
}
