package models

import (
	"time"

	"github.com/nimblebooks/invoicing_backend/utils"
	"gorm.io/gorm"
)

type Client struct {
	ID           int       `gorm:"primary_key" json:"id"`
	EnterpriseId string    `gorm:"index;not null" json:"enterprise_id"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        string    `gorm:"size:100" json:"email"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Address      string    `gorm:"size:255" json:"address"`
	TaxNumber    string    `gorm:"size:50" json:"tax_number"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewClient struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	TaxNumber string `json:"tax_number"`
}

func GetClientById(tx *gorm.DB, enterpriseId string, id int) (*Client, error) {
	var client Client
	if err := tx.Where("enterprise_id = ? AND id = ?", enterpriseId, id).First(&client).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &client, nil
}
