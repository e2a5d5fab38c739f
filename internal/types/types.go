package types

import (
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Side of a trade request.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide normalizes a user-supplied side string.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(s)) {
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	default:
		return "", E(KindInvalidOrder, "invalid order side %q", s)
	}
}

// BalanceKind names one of the two buckets a user's funds live in.
type BalanceKind string

const (
	BalanceAvailable BalanceKind = "available"
	BalanceLocked    BalanceKind = "locked"
)

// BalanceKinds is the default set read back by balance queries.
var BalanceKinds = []BalanceKind{BalanceAvailable, BalanceLocked}

// ActivityKind classifies an activity history record.
type ActivityKind string

const (
	ActivityDeposit  ActivityKind = "deposit"
	ActivityWithdraw ActivityKind = "withdraw"
)

// Order is a user's trade request together with its fill state.
// ExecutedAmount + RemainingAmount always equals RequestedAmount.
type Order struct {
	gorm.Model      `json:"-"`
	OrderID         string          `gorm:"uniqueIndex" json:"order_id"`
	UserID          string          `gorm:"index" json:"user_id"`
	Pair            string          `gorm:"index" json:"pair"`
	Side            Side            `json:"side"`
	Rate            decimal.Decimal `gorm:"type:decimal(32,18)" json:"rate"`
	RequestedAmount decimal.Decimal `gorm:"type:decimal(32,18)" json:"requested_amount"`
	ExecutedAmount  decimal.Decimal `gorm:"type:decimal(32,18)" json:"executed_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(32,18)" json:"remaining_amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Active reports whether any of the requested amount is still unfilled.
func (o *Order) Active() bool {
	return o.RemainingAmount.IsPositive()
}

const maxLegacyOrderID = 1 << 31

// LegacyNumericID derives the 31-bit order id older API clients key on:
// hash(pair "." rate "." quantity) mod 2^31. It is not unique (truncated
// hash, and two identical requests collide); new code uses OrderID.
func (o *Order) LegacyNumericID() uint32 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%s.%s.%s", o.Pair, o.Rate.String(), o.RequestedAmount.String())
	return h.Sum32() % maxLegacyOrderID
}

// BookLevel is one resting price level of an order book snapshot.
type BookLevel struct {
	Rate     decimal.Decimal `json:"rate"`
	Quantity decimal.Decimal `json:"quantity"`
}

// OrderBook is an immutable, point-in-time view of the resting
// counter-liquidity for a pair. Asks are ascending by rate, bids descending.
// Matching never mutates it.
type OrderBook struct {
	Pair      string      `json:"pair"`
	Timestamp int64       `json:"timestamp"`
	Asks      []BookLevel `json:"asks"`
	Bids      []BookLevel `json:"bids"`
}
