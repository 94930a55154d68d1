// Package testutil holds helpers shared by package tests.
package testutil

import (
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"medibook-server/internal/models"
)

// NewDB opens a migrated in-memory sqlite database. A single connection
// keeps every query on the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	cfg := models.GormConfig(false)
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(":memory:"), cfg)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// CreateUser inserts a user with the given role and password "password123".
func CreateUser(t *testing.T, db *gorm.DB, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, FirstName: "Test", LastName: string(role), Role: role}
	if err := u.SetPassword("password123"); err != nil {
		t.Fatalf("set password: %v", err)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}
