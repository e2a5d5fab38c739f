package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokenex/exchange-core/internal/types"
)

func testCatalog() []Token {
	return []Token{
		{Symbol: "eth", Address: "0x00", Decimals: 18},
		{Symbol: "knc", Address: "0x01", Decimals: 18},
		{Symbol: "omg", Address: "0x02", Decimals: 6},
	}
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name       string
		settlement string
		tokens     []Token
	}{
		{"empty settlement", "", testCatalog()},
		{"empty catalog", "eth", nil},
		{"settlement not listed", "btc", testCatalog()},
		{"duplicate symbol", "eth", append(testCatalog(), Token{Symbol: "KNC", Address: "0x03"})},
		{"negative decimals", "eth", []Token{{Symbol: "eth", Decimals: -1}}},
		{"empty symbol", "eth", []Token{{Symbol: "", Decimals: 18}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.settlement, tt.tokens)
			require.Error(t, err)
		})
	}
}

func TestResolve(t *testing.T) {
	r, err := NewRegistry("eth", testCatalog())
	require.NoError(t, err)

	tok, err := r.Resolve("KNC")
	require.NoError(t, err)
	assert.Equal(t, "knc", tok.Symbol)
	assert.Equal(t, "0x01", tok.Address)

	_, err = r.Resolve("btc")
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestSupports(t *testing.T) {
	r, err := NewRegistry("eth", testCatalog())
	require.NoError(t, err)

	assert.NoError(t, r.Supports("knc_eth"))
	assert.NoError(t, r.Supports("OMG_ETH"))

	for _, pair := range []string{"btc_eth", "knc_usd", "knc", "knc_eth_x", "_eth", "knc_"} {
		err := r.Supports(pair)
		require.Error(t, err, "pair %s", pair)
		assert.Equal(t, types.KindInvalidOrder, types.KindOf(err), "pair %s", pair)
	}
}

func TestCatalogOrderIsStable(t *testing.T) {
	r, err := NewRegistry("eth", testCatalog())
	require.NoError(t, err)

	tokens := r.Tokens()
	addresses := r.Addresses()
	require.Len(t, tokens, 3)
	require.Len(t, addresses, 3)
	for i, tok := range tokens {
		assert.Equal(t, tok.Address, addresses[i])
	}
	assert.Equal(t, "eth", tokens[0].Symbol)
	assert.Equal(t, "knc", tokens[1].Symbol)
	assert.Equal(t, "omg", tokens[2].Symbol)
}
