package db

import (
	"fmt"     // Error formatting
	"strings" // Email normalization

	"art_market/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"gorm.io/gorm"               // GORM ORM library
)

// Migrate performs automatic migration for the database schema
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	if err := db.AutoMigrate(&domain.User{}, &domain.Listing{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logrus.Info("Migration completed.") // Log successful migration
	return nil
}

// PromoteAdmin grants the admin role to the account registered with email
func PromoteAdmin(db *gorm.DB, email string) error {
	email = strings.ToLower(strings.TrimSpace(email)) // Emails are stored lowercased
	res := db.Model(&domain.User{}).Where("email = ?", email).Update("role", domain.RoleAdmin)
	if res.Error != nil {
		return fmt.Errorf("promoting %s: %w", email, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("promoting %s: %w", email, domain.ErrNotFound)
	}
	logrus.WithField("email", email).Info("User promoted to admin")
	return nil
}
