package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tokenex/exchange-core/internal/ledger"
	"github.com/tokenex/exchange-core/internal/orderstore"
	"github.com/tokenex/exchange-core/internal/types"
)

// NewDatabase initializes the sqlite-backed collaborator store and migrates
// the ledger and order store schemas.
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&types.Order{},
		&ledger.BalanceRecord{},
		&ledger.ActivityRecord{},
		&orderstore.BookSnapshot{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return db, nil
}
