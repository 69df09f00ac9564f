package models

import (
	"html"
	"strings"
	"time"

	"github.com/nimblebooks/invoicing_backend/utils"
	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin UserRole = "A"
	UserRoleOwner UserRole = "O"
	UserRoleClerk UserRole = "C"
)

type User struct {
	ID           int       `gorm:"primary_key" json:"id"`
	EnterpriseId string    `gorm:"index" json:"enterprise_id"`
	Username     string    `gorm:"size:100;not null;unique" json:"username" binding:"required"`
	Name         string    `gorm:"size:100;not null" json:"name" binding:"required"`
	Email        *string   `gorm:"size:100" json:"email"`
	Password     string    `gorm:"size:255;not null" json:"-"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	Role         UserRole  `gorm:"size:1;default:C" json:"role"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (user *User) BeforeCreate(tx *gorm.DB) error {
	hashed, err := utils.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = string(hashed)
	user.Username = html.EscapeString(strings.TrimSpace(user.Username))
	return nil
}

func GetUserByUsername(tx *gorm.DB, username string) (*User, error) {
	var user User
	if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}

func GetUserById(tx *gorm.DB, enterpriseId string, id int) (*User, error) {
	var user User
	if err := tx.Where("enterprise_id = ? AND id = ?", enterpriseId, id).First(&user).Error; err != nil {
		return nil, utils.ErrorRecordNotFound
	}
	return &user, nil
}
