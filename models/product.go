package models

import (
	"slices"
	"time"

	"github.com/nimblebooks/invoicing_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Product struct {
	ID                int              `gorm:"primary_key" json:"id"`
	EnterpriseId      string           `gorm:"index;not null" json:"enterprise_id"`
	Name              string           `gorm:"size:100;not null" json:"name" binding:"required"`
	Sku               string           `gorm:"size:100" json:"sku"`
	Description       string           `gorm:"type:text" json:"description"`
	UnitPrice         decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	Quantity          decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"quantity"`
	LowStockThreshold *decimal.Decimal `gorm:"type:decimal(20,4)" json:"low_stock_threshold"`
	IsActive          *bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt         time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name              string           `json:"name" binding:"required"`
	Sku               string           `json:"sku"`
	Description       string           `json:"description"`
	UnitPrice         decimal.Decimal  `json:"unit_price"`
	Quantity          decimal.Decimal  `json:"quantity"`
	LowStockThreshold *decimal.Decimal `json:"low_stock_threshold"`
}

// IsLowStock reports whether on-hand quantity has fallen to or below the
// configured threshold. Products without a threshold never flag.
func (p Product) IsLowStock() bool {
	if p.LowStockThreshold == nil {
		return false
	}
	return p.Quantity.LessThanOrEqual(*p.LowStockThreshold)
}

func GetProductById(tx *gorm.DB, enterpriseId string, id int) (*Product, error) {
	var product Product
	if err := tx.Where("enterprise_id = ? AND id = ?", enterpriseId, id).First(&product).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &product, nil
}

func GetProductsByIds(tx *gorm.DB, enterpriseId string, ids []int) ([]Product, error) {
	var products []Product
	if err := tx.Where("enterprise_id = ? AND id IN (?)", enterpriseId, ids).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// GetProductsForUpdate loads the given products under exclusive row locks.
// Ids are locked in ascending order so two transactions touching overlapping
// product sets cannot deadlock. All ledger mutations go through this single
// entry point.
//
// SQLite (used by tests) rejects FOR UPDATE; its single-writer transaction
// model already serializes the mutation, so the clause is skipped there.
func GetProductsForUpdate(tx *gorm.DB, enterpriseId string, ids []int) ([]Product, error) {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	scope := tx
	if tx.Dialector.Name() != "sqlite" {
		scope = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var products []Product
	if err := scope.Where("enterprise_id = ? AND id IN (?)", enterpriseId, sorted).
		Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	if len(products) != len(sorted) {
		return nil, utils.ErrorRecordNotFound
	}
	return products, nil
}
