package orderstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tokenex/exchange-core/internal/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "orders.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&types.Order{}, &BookSnapshot{}))
	return NewDatabase(db)
}

type fixture struct {
	store    Store
	saveBook func(t *testing.T, exchange string, book types.OrderBook)
}

func forEachImplementation(t *testing.T, run func(t *testing.T, fx fixture)) {
	t.Run("memory", func(t *testing.T) {
		m := NewMemory()
		run(t, fixture{
			store: m,
			saveBook: func(t *testing.T, exchange string, book types.OrderBook) {
				m.SaveBook(exchange, book)
			},
		})
	})
	t.Run("database", func(t *testing.T) {
		d := newTestDatabase(t)
		run(t, fixture{
			store: d,
			saveBook: func(t *testing.T, exchange string, book types.OrderBook) {
				require.NoError(t, d.SaveBook(exchange, book))
			},
		})
	})
}

func testOrder(id, pair string, createdAt time.Time) *types.Order {
	return &types.Order{
		OrderID:         id,
		UserID:          "alice",
		Pair:            pair,
		Side:            types.SideBuy,
		Rate:            dec("1.1"),
		RequestedAmount: dec("8"),
		ExecutedAmount:  dec("5"),
		RemainingAmount: dec("3"),
		CreatedAt:       createdAt,
	}
}

func TestAddGetRemove(t *testing.T) {
	forEachImplementation(t, func(t *testing.T, fx fixture) {
		now := time.Now().Truncate(time.Second)
		require.NoError(t, fx.store.Add(testOrder("ord-1", "knc_eth", now)))

		order, err := fx.store.Get("ord-1")
		require.NoError(t, err)
		assert.Equal(t, "alice", order.UserID)
		assert.Equal(t, "knc_eth", order.Pair)
		assert.True(t, order.RemainingAmount.Equal(dec("3")))

		require.NoError(t, fx.store.Remove("ord-1"))

		_, err = fx.store.Get("ord-1")
		require.Error(t, err)
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})
}

// The second remove of the same id must fail so that cancellation cannot
// release the same lock twice.
func TestRemoveTwiceFailsNotFound(t *testing.T) {
	forEachImplementation(t, func(t *testing.T, fx fixture) {
		require.NoError(t, fx.store.Add(testOrder("ord-1", "knc_eth", time.Now())))
		require.NoError(t, fx.store.Remove("ord-1"))

		err := fx.store.Remove("ord-1")
		require.Error(t, err)
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})
}

func TestGetAllFiltersByPair(t *testing.T) {
	forEachImplementation(t, func(t *testing.T, fx fixture) {
		base := time.Now().Truncate(time.Second)
		require.NoError(t, fx.store.Add(testOrder("ord-1", "knc_eth", base)))
		require.NoError(t, fx.store.Add(testOrder("ord-2", "omg_eth", base.Add(time.Second))))
		require.NoError(t, fx.store.Add(testOrder("ord-3", "knc_eth", base.Add(2*time.Second))))

		knc, err := fx.store.GetAll("knc_eth")
		require.NoError(t, err)
		require.Len(t, knc, 2)
		assert.Equal(t, "ord-1", knc[0].OrderID)
		assert.Equal(t, "ord-3", knc[1].OrderID)

		all, err := fx.store.GetAll("")
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestLoadBookPicksLatestAtOrBefore(t *testing.T) {
	forEachImplementation(t, func(t *testing.T, fx fixture) {
		for _, ts := range []int64{100, 200, 300} {
			fx.saveBook(t, "liqui", types.OrderBook{
				Pair:      "knc_eth",
				Timestamp: ts,
				Asks:      []types.BookLevel{{Rate: dec("1.0"), Quantity: dec("5")}},
				Bids:      []types.BookLevel{{Rate: dec("0.9"), Quantity: dec("10")}},
			})
		}

		book, err := fx.store.LoadBook("knc_eth", "liqui", 250)
		require.NoError(t, err)
		assert.Equal(t, int64(200), book.Timestamp)
		require.Len(t, book.Asks, 1)
		assert.True(t, book.Asks[0].Rate.Equal(dec("1.0")))

		book, err = fx.store.LoadBook("knc_eth", "liqui", 300)
		require.NoError(t, err)
		assert.Equal(t, int64(300), book.Timestamp)

		_, err = fx.store.LoadBook("knc_eth", "liqui", 50)
		require.Error(t, err)
		assert.Equal(t, types.KindNotFound, types.KindOf(err))

		_, err = fx.store.LoadBook("omg_eth", "liqui", 250)
		require.Error(t, err)
		assert.Equal(t, types.KindNotFound, types.KindOf(err))
	})
}

func TestAddDuplicateOrderID(t *testing.T) {
	m := NewMemory()
	require.NoError(t, m.Add(testOrder("ord-1", "knc_eth", time.Now())))

	err := m.Add(testOrder("ord-1", "knc_eth", time.Now()))
	require.Error(t, err)
	assert.Equal(t, types.KindInvariantViolation, types.KindOf(err))
}
