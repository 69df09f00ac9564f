// seed-admin bootstraps an enterprise and its admin user.
//
// Usage:
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//	  go run ./cmd/seed-admin -enterprise "Acme" -username admin -password secret
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/nimblebooks/invoicing_backend/config"
	"github.com/nimblebooks/invoicing_backend/models"
	"github.com/nimblebooks/invoicing_backend/utils"
	"gorm.io/gorm"
)

func main() {
	enterpriseName := flag.String("enterprise", "", "Required: enterprise name")
	username := flag.String("username", "admin", "Admin username")
	password := flag.String("password", "", "Required: admin password")
	name := flag.String("name", "Administrator", "Admin display name")
	flag.Parse()

	if strings.TrimSpace(*enterpriseName) == "" || strings.TrimSpace(*password) == "" {
		fmt.Fprintln(os.Stderr, "-enterprise and -password are required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	var enterprise models.Enterprise
	err := db.Where("name = ?", *enterpriseName).First(&enterprise).Error
	if err == gorm.ErrRecordNotFound {
		enterprise = models.Enterprise{Name: *enterpriseName, IsActive: utils.NewTrue()}
		err = db.Create(&enterprise).Error
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve enterprise: %v\n", err)
		os.Exit(1)
	}

	var existing models.User
	if err := db.Where("username = ?", *username).First(&existing).Error; err == nil {
		fmt.Printf("user %q already exists (id=%d)\n", *username, existing.ID)
		return
	}

	user := models.User{
		EnterpriseId: enterprise.ID.String(),
		Username:     *username,
		Name:         *name,
		Password:     *password,
		Role:         models.UserRoleAdmin,
		IsActive:     utils.NewTrue(),
	}
	if err := db.Create(&user).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("created enterprise %s and admin user %q (id=%d)\n", enterprise.ID, user.Username, user.ID)
}
