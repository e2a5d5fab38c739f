// Package matching computes fills for incoming trade requests against a
// point-in-time order book snapshot. The snapshot is treated as external
// liquidity: it is never mutated, and partial consumption of a level is not
// persisted back.
package matching

import (
	"github.com/shopspring/decimal"

	"github.com/tokenex/exchange-core/internal/types"
)

// Match walks the opposing side of the book in price priority and returns the
// filled base quantity and its quote counter-value. A buy consumes asks
// (ascending by rate), a sell consumes bids (descending by rate). Matching
// stops at the first level whose rate is worse than the limit, or as soon as
// the requested amount is fully filled. A nil or empty book fills nothing.
func Match(side types.Side, rate, amount decimal.Decimal, book *types.OrderBook) (filledBase, filledQuote decimal.Decimal, err error) {
	if rate.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, types.E(types.KindInvalidOrder, "rate must be positive, got %s", rate)
	}
	if amount.Sign() <= 0 {
		return decimal.Zero, decimal.Zero, types.E(types.KindInvalidOrder, "amount must be positive, got %s", amount)
	}

	var levels []types.BookLevel
	switch side {
	case types.SideBuy:
		if book != nil {
			levels = book.Asks
		}
	case types.SideSell:
		if book != nil {
			levels = book.Bids
		}
	default:
		return decimal.Zero, decimal.Zero, types.E(types.KindInvalidOrder, "invalid order side %q", side)
	}

	filledBase, filledQuote = decimal.Zero, decimal.Zero
	for _, level := range levels {
		badRate := (side == types.SideBuy && level.Rate.GreaterThan(rate)) ||
			(side == types.SideSell && level.Rate.LessThan(rate))
		if badRate {
			break
		}

		needed := amount.Sub(filledBase)
		tradeQty := decimal.Min(level.Quantity, needed)

		filledBase = filledBase.Add(tradeQty)
		filledQuote = filledQuote.Add(level.Rate.Mul(tradeQty))

		if tradeQty.Equal(needed) {
			break
		}
	}
	return filledBase, filledQuote, nil
}
