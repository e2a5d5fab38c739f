package token

import (
	"strings"

	"github.com/tokenex/exchange-core/internal/types"
)

// Token describes one tradable asset: its symbol, on-chain contract address
// and declared decimal precision. Identity is the symbol.
type Token struct {
	Symbol   string `yaml:"symbol" json:"symbol"`
	Address  string `yaml:"address" json:"address"`
	Decimals int32  `yaml:"decimals" json:"decimals"`
}

// Registry is the static catalog of supported tokens. It is built once at
// startup and immutable afterwards, so concurrent reads need no locking.
type Registry struct {
	settlement string
	ordered    []Token
	bySymbol   map[string]Token
}

// NewRegistry builds a registry from the configured catalog. The settlement
// asset is the fixed quote side of every pair and must itself be listed.
func NewRegistry(settlement string, tokens []Token) (*Registry, error) {
	settlement = strings.ToLower(settlement)
	if settlement == "" {
		return nil, types.E(types.KindInvalidOrder, "settlement asset is required")
	}
	if len(tokens) == 0 {
		return nil, types.E(types.KindInvalidOrder, "token catalog is empty")
	}

	r := &Registry{
		settlement: settlement,
		ordered:    make([]Token, 0, len(tokens)),
		bySymbol:   make(map[string]Token, len(tokens)),
	}
	for _, t := range tokens {
		t.Symbol = strings.ToLower(t.Symbol)
		if t.Symbol == "" {
			return nil, types.E(types.KindInvalidOrder, "token with empty symbol in catalog")
		}
		if t.Decimals < 0 {
			return nil, types.E(types.KindInvalidOrder, "token %s has negative decimals", t.Symbol)
		}
		if _, dup := r.bySymbol[t.Symbol]; dup {
			return nil, types.E(types.KindInvalidOrder, "duplicate token %s in catalog", t.Symbol)
		}
		r.bySymbol[t.Symbol] = t
		r.ordered = append(r.ordered, t)
	}
	if _, ok := r.bySymbol[settlement]; !ok {
		return nil, types.E(types.KindInvalidOrder, "settlement asset %s is not in the token catalog", settlement)
	}
	return r, nil
}

// Resolve looks up a token by symbol.
func (r *Registry) Resolve(symbol string) (Token, error) {
	t, ok := r.bySymbol[strings.ToLower(symbol)]
	if !ok {
		return Token{}, types.E(types.KindNotFound, "unknown token %s", symbol)
	}
	return t, nil
}

// Settlement returns the symbol of the network's base settlement asset.
func (r *Registry) Settlement() string { return r.settlement }

// Tokens returns the catalog in configuration order. The order matters: batch
// on-chain calls return balances positionally.
func (r *Registry) Tokens() []Token {
	out := make([]Token, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Addresses returns the contract addresses in the same order as Tokens.
func (r *Registry) Addresses() []string {
	out := make([]string, len(r.ordered))
	for i, t := range r.ordered {
		out[i] = t.Address
	}
	return out
}

// SplitPair breaks a "base_quote" pair identifier into its two symbols.
func SplitPair(pair string) (base, quote string, err error) {
	parts := strings.Split(strings.ToLower(pair), "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", types.E(types.KindInvalidOrder, "invalid pair %q", pair)
	}
	return parts[0], parts[1], nil
}

// Supports validates a trading pair: the base must be a listed token and the
// quote must be the settlement asset.
func (r *Registry) Supports(pair string) error {
	base, quote, err := SplitPair(pair)
	if err != nil {
		return err
	}
	if _, ok := r.bySymbol[base]; !ok {
		return types.E(types.KindInvalidOrder, "invalid pair %s: base %s is not supported", pair, base)
	}
	if quote != r.settlement {
		return types.E(types.KindInvalidOrder, "invalid pair %s: quote must be %s", pair, r.settlement)
	}
	return nil
}
