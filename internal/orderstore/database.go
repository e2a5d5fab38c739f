package orderstore

import (
	"encoding/json"
	"errors"

	"gorm.io/gorm"

	"github.com/tokenex/exchange-core/internal/types"
)

// Database is the gorm-backed Store implementation.
type Database struct {
	db *gorm.DB
}

var _ Store = (*Database)(nil)

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// SaveBook persists a snapshot for later LoadBook calls.
func (d *Database) SaveBook(exchange string, book types.OrderBook) error {
	asks, err := json.Marshal(book.Asks)
	if err != nil {
		return types.Wrap(types.KindExternalFailure, err, "encode ask levels")
	}
	bids, err := json.Marshal(book.Bids)
	if err != nil {
		return types.Wrap(types.KindExternalFailure, err, "encode bid levels")
	}
	rec := BookSnapshot{
		Pair:      book.Pair,
		Exchange:  exchange,
		Timestamp: book.Timestamp,
		Asks:      string(asks),
		Bids:      string(bids),
	}
	if err := d.db.Create(&rec).Error; err != nil {
		return types.Wrap(types.KindExternalFailure, err, "save book snapshot %s/%s", book.Pair, exchange)
	}
	return nil
}

func (d *Database) LoadBook(pair, exchange string, timestamp int64) (*types.OrderBook, error) {
	var rec BookSnapshot
	err := d.db.Where("pair = ? AND exchange = ? AND timestamp <= ?", pair, exchange, timestamp).
		Order("timestamp DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.E(types.KindNotFound, "no %s book snapshot for %s at %d", exchange, pair, timestamp)
	}
	if err != nil {
		return nil, types.Wrap(types.KindExternalFailure, err, "load book snapshot %s/%s", pair, exchange)
	}

	book := types.OrderBook{Pair: rec.Pair, Timestamp: rec.Timestamp}
	if err := json.Unmarshal([]byte(rec.Asks), &book.Asks); err != nil {
		return nil, types.Wrap(types.KindExternalFailure, err, "decode ask levels")
	}
	if err := json.Unmarshal([]byte(rec.Bids), &book.Bids); err != nil {
		return nil, types.Wrap(types.KindExternalFailure, err, "decode bid levels")
	}
	return &book, nil
}

func (d *Database) Add(order *types.Order) error {
	if err := d.db.Create(order).Error; err != nil {
		return types.Wrap(types.KindExternalFailure, err, "save order %s", order.OrderID)
	}
	return nil
}

func (d *Database) Get(orderID string) (*types.Order, error) {
	var order types.Order
	err := d.db.Where("order_id = ?", orderID).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.E(types.KindNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return nil, types.Wrap(types.KindExternalFailure, err, "fetch order %s", orderID)
	}
	return &order, nil
}

func (d *Database) GetAll(pair string) ([]types.Order, error) {
	var orders []types.Order
	q := d.db.Order("created_at ASC")
	if pair != "" {
		q = q.Where("pair = ?", pair)
	}
	if err := q.Find(&orders).Error; err != nil {
		return nil, types.Wrap(types.KindExternalFailure, err, "fetch orders")
	}
	return orders, nil
}

func (d *Database) Remove(orderID string) error {
	res := d.db.Where("order_id = ?", orderID).Delete(&types.Order{})
	if res.Error != nil {
		return types.Wrap(types.KindExternalFailure, res.Error, "remove order %s", orderID)
	}
	if res.RowsAffected == 0 {
		return types.E(types.KindNotFound, "order %s not found", orderID)
	}
	return nil
}
