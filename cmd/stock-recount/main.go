// stock-recount rebuilds every product's on-hand quantity from the stock
// movement journal and reports drift between the stored quantity and the
// journal-derived one. By default it only reports; pass -fix to also write
// the corrected quantities back.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func main() {
	enterpriseId := flag.String("enterprise", "", "Limit the recount to one enterprise id (default: all)")
	fix := flag.Bool("fix", false, "Write journal-derived quantities back to products")
	flag.Parse()

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	var products []models.Product
	scope := db.Session(&gorm.Session{})
	if *enterpriseId != "" {
		scope = scope.Where("enterprise_id = ?", *enterpriseId)
	}
	if err := scope.Order("enterprise_id, id").Find(&products).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to load products: %v\n", err)
		os.Exit(1)
	}

	drifted := 0
	for _, product := range products {
		derived, err := journalQuantity(db, product.EnterpriseId, product.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "product %d: failed to sum movements: %v\n", product.ID, err)
			os.Exit(1)
		}
		if derived.Equal(product.Quantity) {
			continue
		}
		drifted++
		fmt.Printf("product %d (%s) enterprise %s: stored=%s journal=%s drift=%s\n",
			product.ID, product.Name, product.EnterpriseId,
			product.Quantity.String(), derived.String(), derived.Sub(product.Quantity).String())
		if *fix {
			err := db.Model(&models.Product{}).
				Where("enterprise_id = ? AND id = ?", product.EnterpriseId, product.ID).
				Update("quantity", derived).Error
			if err != nil {
				fmt.Fprintf(os.Stderr, "product %d: failed to update quantity: %v\n", product.ID, err)
				os.Exit(1)
			}
		}
	}

	if drifted == 0 {
		fmt.Printf("checked %d products, no drift\n", len(products))
		return
	}
	if *fix {
		fmt.Printf("checked %d products, corrected %d\n", len(products), drifted)
	} else {
		fmt.Printf("checked %d products, %d drifted (re-run with -fix to correct)\n", len(products), drifted)
	}
}

// journalQuantity folds the append-only movement journal into an on-hand
// quantity. ADJUSTMENT rows are journal-only records and do not contribute.
func journalQuantity(db *gorm.DB, enterpriseId string, productId int) (decimal.Decimal, error) {
	var movements []models.StockMovement
	err := db.Where("enterprise_id = ? AND product_id = ?", enterpriseId, productId).
		Order("id").Find(&movements).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, movement := range movements {
		switch movement.Kind {
		case models.StockMovementKindIn:
			total = total.Add(movement.Quantity)
		case models.StockMovementKindOut:
			total = total.Sub(movement.Quantity)
		}
	}
	return total, nil
}
