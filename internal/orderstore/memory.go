package orderstore

import (
	"sort"
	"sync"

	"github.com/tokenex/exchange-core/internal/types"
)

// Memory is the in-process Store implementation used by tests and the
// simulator binary.
type Memory struct {
	mu     sync.Mutex
	orders map[string]types.Order
	books  map[string][]types.OrderBook // keyed pair+"/"+exchange, ascending by timestamp
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		orders: make(map[string]types.Order),
		books:  make(map[string][]types.OrderBook),
	}
}

func bookKey(pair, exchange string) string { return pair + "/" + exchange }

// SaveBook registers a snapshot so later LoadBook calls can find it.
func (m *Memory) SaveBook(exchange string, book types.OrderBook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := bookKey(book.Pair, exchange)
	m.books[key] = append(m.books[key], book)
	sort.Slice(m.books[key], func(i, j int) bool {
		return m.books[key][i].Timestamp < m.books[key][j].Timestamp
	})
}

func (m *Memory) LoadBook(pair, exchange string, timestamp int64) (*types.OrderBook, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	books := m.books[bookKey(pair, exchange)]
	for i := len(books) - 1; i >= 0; i-- {
		if books[i].Timestamp <= timestamp {
			book := books[i]
			return &book, nil
		}
	}
	return nil, types.E(types.KindNotFound, "no %s book snapshot for %s at %d", exchange, pair, timestamp)
}

func (m *Memory) Add(order *types.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, dup := m.orders[order.OrderID]; dup {
		return types.E(types.KindInvariantViolation, "order %s already exists", order.OrderID)
	}
	m.orders[order.OrderID] = *order
	return nil
}

func (m *Memory) Get(orderID string) (*types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, types.E(types.KindNotFound, "order %s not found", orderID)
	}
	return &order, nil
}

func (m *Memory) GetAll(pair string) ([]types.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Order, 0, len(m.orders))
	for _, order := range m.orders {
		if pair == "" || order.Pair == pair {
			out = append(out, order)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) Remove(orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[orderID]; !ok {
		return types.E(types.KindNotFound, "order %s not found", orderID)
	}
	delete(m.orders, orderID)
	return nil
}
