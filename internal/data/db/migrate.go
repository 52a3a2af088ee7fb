package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/coursegen-backend/internal/data/docstore"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(&docstore.Row{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
