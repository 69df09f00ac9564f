package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/nimblebooks/invoicing_backend/utils"
	"gorm.io/gorm"
)

// Enterprise is the tenant boundary. Every other row is scoped to exactly one
// enterprise through EnterpriseId.
type Enterprise struct {
	ID        uuid.UUID `gorm:"type:char(36);primary_key" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:100" json:"email"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Address   string    `gorm:"size:255" json:"address"`
	TaxNumber string    `gorm:"size:50" json:"tax_number"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (e *Enterprise) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

func GetEnterpriseById(tx *gorm.DB, enterpriseId string) (*Enterprise, error) {
	var enterprise Enterprise
	if err := tx.Where("id = ?", enterpriseId).First(&enterprise).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &enterprise, nil
}
