package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/reservio/reservio/internal/domain/session"
)

// RunMigrations runs all database migrations
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(session.Model()); err != nil {
		return fmt.Errorf("failed to make migrations: %w", err)
	}
	return nil
}
