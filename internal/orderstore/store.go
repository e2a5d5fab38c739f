// Package orderstore holds the order persistence and snapshot-loading
// collaborator the exchange core is handed at construction, plus an
// in-memory and a gorm-backed implementation.
package orderstore

import (
	"github.com/tokenex/exchange-core/internal/types"
)

// Store persists orders and supplies order-book snapshots.
type Store interface {
	// LoadBook returns the order book snapshot for (pair, exchange) closest
	// at or before timestamp. A missing snapshot is a NOT_FOUND error; the
	// core degrades it to an empty book, never a fatal failure.
	LoadBook(pair, exchange string, timestamp int64) (*types.OrderBook, error)

	// Add persists a new order.
	Add(order *types.Order) error

	// Get returns the order with the given id, or NOT_FOUND.
	Get(orderID string) (*types.Order, error)

	// GetAll returns orders for a pair, or every order when pair is empty.
	GetAll(pair string) ([]types.Order, error)

	// Remove deletes an order. A second remove of the same id fails with
	// NOT_FOUND, which is what makes cancellation idempotent-safe.
	Remove(orderID string) error
}
