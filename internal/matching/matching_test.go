package matching

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenex/exchange-core/internal/types"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func levels(pairs ...string) []types.BookLevel {
	out := make([]types.BookLevel, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, types.BookLevel{Rate: dec(pairs[i]), Quantity: dec(pairs[i+1])})
	}
	return out
}

func assertDec(t *testing.T, expected string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, got.Equal(dec(expected)), "expected %s, got %s", expected, got)
}

func TestMatch(t *testing.T) {
	book := &types.OrderBook{
		Pair: "knc_eth",
		Asks: levels("1.0", "5", "1.2", "5"),
		Bids: levels("0.9", "10"),
	}

	tests := []struct {
		name       string
		side       types.Side
		rate       string
		amount     string
		book       *types.OrderBook
		wantBase   string
		wantQuote  string
	}{
		{
			name: "buy stops at the limit rate",
			side: types.SideBuy, rate: "1.1", amount: "8", book: book,
			wantBase: "5", wantQuote: "5",
		},
		{
			name: "buy full fill at exact boundary",
			side: types.SideBuy, rate: "1.0", amount: "5", book: book,
			wantBase: "5", wantQuote: "5",
		},
		{
			name: "buy crosses into the second level",
			side: types.SideBuy, rate: "1.2", amount: "8", book: book,
			wantBase: "8", wantQuote: "8.6",
		},
		{
			name: "buy takes part of the first level",
			side: types.SideBuy, rate: "1.1", amount: "3", book: book,
			wantBase: "3", wantQuote: "3",
		},
		{
			name: "sell fills against the bid",
			side: types.SideSell, rate: "0.9", amount: "4", book: book,
			wantBase: "4", wantQuote: "3.6",
		},
		{
			name: "sell does not cross below the limit",
			side: types.SideSell, rate: "0.95", amount: "4", book: book,
			wantBase: "0", wantQuote: "0",
		},
		{
			name: "buy against an empty book",
			side: types.SideBuy, rate: "1.0", amount: "5",
			book:     &types.OrderBook{Pair: "knc_eth"},
			wantBase: "0", wantQuote: "0",
		},
		{
			name: "nil book fills nothing",
			side: types.SideBuy, rate: "1.0", amount: "5", book: nil,
			wantBase: "0", wantQuote: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, quote, err := Match(tt.side, dec(tt.rate), dec(tt.amount), tt.book)
			require.NoError(t, err)
			assertDec(t, tt.wantBase, base)
			assertDec(t, tt.wantQuote, quote)
		})
	}
}

func TestMatchRejectsInvalidInput(t *testing.T) {
	book := &types.OrderBook{Asks: levels("1.0", "5")}

	tests := []struct {
		name   string
		side   types.Side
		rate   string
		amount string
	}{
		{"zero rate", types.SideBuy, "0", "5"},
		{"negative rate", types.SideBuy, "-1", "5"},
		{"zero amount", types.SideBuy, "1.0", "0"},
		{"negative amount", types.SideSell, "1.0", "-2"},
		{"unknown side", types.Side("hold"), "1.0", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Match(tt.side, dec(tt.rate), dec(tt.amount), book)
			require.Error(t, err)
			assert.Equal(t, types.KindInvalidOrder, types.KindOf(err))
		})
	}
}

func TestMatchDoesNotMutateBook(t *testing.T) {
	book := &types.OrderBook{Asks: levels("1.0", "5", "1.2", "5")}

	_, _, err := Match(types.SideBuy, dec("1.2"), dec("7"), book)
	require.NoError(t, err)

	assertDec(t, "5", book.Asks[0].Quantity)
	assertDec(t, "5", book.Asks[1].Quantity)
}
