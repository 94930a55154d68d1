package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// BaseModel contains common columns for all tables
type BaseModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN     string
	Verbose bool
}

// InitDB opens the MySQL connection. Schema changes are applied separately by Migrate.
func InitDB(config DatabaseConfig) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(config.DSN), GormConfig(config.Verbose))
}

// GormConfig is shared by the MySQL connection and the sqlite databases used in tests.
// TranslateError turns driver specific unique violations into gorm.ErrDuplicatedKey.
func GormConfig(verbose bool) *gorm.Config {
	level := logger.Warn
	if verbose {
		level = logger.Info
	}
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(level),
	}
}

// Migrate creates or updates every table of the application.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&DoctorProfile{},
		&Appointment{},
		&Notification{},
		&Chat{},
		&ChatMessage{},
		&Review{},
		&Prescription{},
		&MedicalRecord{},
		&MedicalRecordAttachment{},
	)
}
