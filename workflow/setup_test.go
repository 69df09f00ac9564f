package workflow

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&models.Enterprise{}, &models.User{},
		&models.Client{},
		&models.Product{},
		&models.Invoice{}, &models.InvoiceItem{},
		&models.StockMovement{},
		&models.DeliveryNote{}, &models.DeliveryNoteItem{},
		&models.DocumentSequence{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func seedTenant(t *testing.T, db *gorm.DB) (enterpriseId string, client models.Client) {
	t.Helper()
	enterprise := models.Enterprise{Name: "Test Enterprise"}
	if err := db.Create(&enterprise).Error; err != nil {
		t.Fatalf("create enterprise: %v", err)
	}
	client = models.Client{EnterpriseId: enterprise.ID.String(), Name: "Test Client"}
	if err := db.Create(&client).Error; err != nil {
		t.Fatalf("create client: %v", err)
	}
	return enterprise.ID.String(), client
}

func seedProduct(t *testing.T, db *gorm.DB, enterpriseId string, name string, quantity string) models.Product {
	t.Helper()
	product := models.Product{
		EnterpriseId: enterpriseId,
		Name:         name,
		UnitPrice:    dec(t, "10"),
		Quantity:     dec(t, quantity),
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return product
}

func productQuantity(t *testing.T, db *gorm.DB, enterpriseId string, productId int) decimal.Decimal {
	t.Helper()
	product, err := models.GetProductById(db, enterpriseId, productId)
	if err != nil {
		t.Fatalf("reload product %d: %v", productId, err)
	}
	return product.Quantity
}

func mustCreateInvoice(t *testing.T, db *gorm.DB, enterpriseId string, input *models.NewInvoice) *models.Invoice {
	t.Helper()
	invoice, err := CreateInvoice(context.Background(), db, testLogger(), enterpriseId, 1, input)
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return invoice
}

// mustReachPending walks a fresh invoice to pending via submit.
func mustReachPending(t *testing.T, db *gorm.DB, enterpriseId string, invoiceId int) *models.Invoice {
	t.Helper()
	invoice, err := SubmitInvoice(context.Background(), db, testLogger(), enterpriseId, invoiceId, 1)
	if err != nil {
		t.Fatalf("submit invoice %d: %v", invoiceId, err)
	}
	return invoice
}
