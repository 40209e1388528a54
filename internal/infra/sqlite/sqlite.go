package sqlite

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/sifan077/PowerOTP/internal/infra/gormdb"
	"gorm.io/gorm"
)

// Open opens (or creates) the SQLite database at path through GORM.
// A single connection serializes writers, which the access counter relies on.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormdb.Config())
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite: retrieve sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return db, nil
}
