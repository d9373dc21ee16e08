// Package directory maps sender phone numbers to their ledger
// spreadsheets.
package directory

import (
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// User binds a phone number to its provisioned ledger. The binding is
// created once during onboarding and immutable thereafter.
type User struct {
	gorm.Model
	PhoneNumber   string `gorm:"uniqueIndex"`
	SpreadsheetID string
	Email         string
}

// Store is the sqlite-backed directory.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the directory database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("directory: open database: %w", err)
	}
	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("directory: migrate schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Lookup returns the user registered for a phone number, or nil when the
// sender is unregistered.
func (s *Store) Lookup(phoneNumber string) (*User, error) {
	var user User
	err := s.db.Where("phone_number = ?", phoneNumber).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("directory: lookup %s: %w", phoneNumber, err)
	}
	return &user, nil
}

// Register records a newly provisioned ledger for a sender.
func (s *Store) Register(phoneNumber, spreadsheetID, email string) error {
	user := User{
		PhoneNumber:   phoneNumber,
		SpreadsheetID: spreadsheetID,
		Email:         email,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return fmt.Errorf("directory: register %s: %w", phoneNumber, err)
	}
	return nil
}
