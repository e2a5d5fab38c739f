package orderstore

import (
	"time"

	"gorm.io/gorm"
)

// BookSnapshot is one persisted order book snapshot. Levels are stored as
// JSON arrays of {rate, quantity}; snapshots are write-once.
type BookSnapshot struct {
	gorm.Model `json:"-"`
	Pair       string    `gorm:"index:idx_book_pair_exchange_ts" json:"pair"`
	Exchange   string    `gorm:"index:idx_book_pair_exchange_ts" json:"exchange"`
	Timestamp  int64     `gorm:"index:idx_book_pair_exchange_ts" json:"timestamp"`
	Asks       string    `json:"asks"`
	Bids       string    `json:"bids"`
	CreatedAt  time.Time `json:"created_at"`
}
