package models

import (
	"log"

	"github.com/nimblebooks/invoicing_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Enterprise{}, &User{},
		&Client{},
		&Product{},
		&Invoice{}, &InvoiceItem{},
		&StockMovement{},
		&DeliveryNote{}, &DeliveryNoteItem{},
		&DocumentSequence{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
