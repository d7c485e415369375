package media

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenDB opens (or creates) the index database and migrates its tables.
func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open media index: %w", err)
	}
	if err := db.AutoMigrate(&MediaFile{}, &Contact{}); err != nil {
		return nil, fmt.Errorf("migrate media index: %w", err)
	}
	return db, nil
}
