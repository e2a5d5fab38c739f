package ledger

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokenex/exchange-core/internal/types"
)

// entry is one (user, token) balance pair. Its mutex serializes all
// mutations for that pair, which is the atomicity unit the contract asks for.
type entry struct {
	mu        sync.Mutex
	available decimal.Decimal
	locked    decimal.Decimal
}

// Memory is the reference Ledger implementation. It keeps everything in
// process memory and is safe for concurrent use.
type Memory struct {
	mu         sync.Mutex // guards the maps below, not the entries
	entries    map[string]map[string]*entry
	activities map[types.ActivityKind][]Activity
	seen       map[types.ActivityKind]map[string]struct{}
}

var _ Ledger = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries:    make(map[string]map[string]*entry),
		activities: make(map[types.ActivityKind][]Activity),
		seen:       make(map[types.ActivityKind]map[string]struct{}),
	}
}

func (m *Memory) entryFor(user, token string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	byToken, ok := m.entries[user]
	if !ok {
		byToken = make(map[string]*entry)
		m.entries[user] = byToken
	}
	e, ok := byToken[token]
	if !ok {
		e = &entry{available: decimal.Zero, locked: decimal.Zero}
		byToken[token] = e
	}
	return e
}

func checkAmount(amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return types.E(types.KindInvariantViolation, "negative amount %s", amount)
	}
	return nil
}

func (m *Memory) Get(user, token string, kind types.BalanceKind) (decimal.Decimal, error) {
	e := m.entryFor(user, token)
	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case types.BalanceAvailable:
		return e.available, nil
	case types.BalanceLocked:
		return e.locked, nil
	default:
		return decimal.Zero, types.E(types.KindInvalidOrder, "unknown balance kind %q", kind)
	}
}

func (m *Memory) Balances(user string, kind types.BalanceKind) (map[string]decimal.Decimal, error) {
	m.mu.Lock()
	byToken := m.entries[user]
	tokens := make([]string, 0, len(byToken))
	for t := range byToken {
		tokens = append(tokens, t)
	}
	m.mu.Unlock()

	out := make(map[string]decimal.Decimal, len(tokens))
	for _, t := range tokens {
		v, err := m.Get(user, t, kind)
		if err != nil {
			return nil, err
		}
		out[t] = v
	}
	return out, nil
}

func (m *Memory) Lock(user, token string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	e := m.entryFor(user, token)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.available.LessThan(amount) {
		return types.E(types.KindInsufficientBalance,
			"cannot lock %s %s: available %s", amount, token, e.available)
	}
	e.available = e.available.Sub(amount)
	e.locked = e.locked.Add(amount)
	return nil
}

func (m *Memory) Unlock(user, token string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	e := m.entryFor(user, token)
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked.LessThan(amount) {
		return types.E(types.KindInvariantViolation,
			"cannot unlock %s %s: locked %s", amount, token, e.locked)
	}
	e.locked = e.locked.Sub(amount)
	e.available = e.available.Add(amount)
	return nil
}

func (m *Memory) Deposit(user, token string, amount decimal.Decimal, kind types.BalanceKind) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	e := m.entryFor(user, token)
	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case types.BalanceAvailable:
		e.available = e.available.Add(amount)
	case types.BalanceLocked:
		e.locked = e.locked.Add(amount)
	default:
		return types.E(types.KindInvalidOrder, "unknown balance kind %q", kind)
	}
	return nil
}

func (m *Memory) Withdraw(user, token string, amount decimal.Decimal, kind types.BalanceKind) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	e := m.entryFor(user, token)
	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case types.BalanceAvailable:
		if e.available.LessThan(amount) {
			return types.E(types.KindInsufficientBalance,
				"cannot withdraw %s %s: available %s", amount, token, e.available)
		}
		e.available = e.available.Sub(amount)
	case types.BalanceLocked:
		if e.locked.LessThan(amount) {
			return types.E(types.KindInsufficientBalance,
				"cannot withdraw %s %s from lock: locked %s", amount, token, e.locked)
		}
		e.locked = e.locked.Sub(amount)
	default:
		return types.E(types.KindInvalidOrder, "unknown balance kind %q", kind)
	}
	return nil
}

func (m *Memory) AddActivity(kind types.ActivityKind, amount decimal.Decimal, address, transactionID, tokenSymbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen, ok := m.seen[kind]
	if !ok {
		seen = make(map[string]struct{})
		m.seen[kind] = seen
	}
	if _, dup := seen[transactionID]; dup {
		return types.E(types.KindInvariantViolation,
			"duplicate %s activity for transaction %s", kind, transactionID)
	}
	seen[transactionID] = struct{}{}
	m.activities[kind] = append(m.activities[kind], Activity{
		Kind:          kind,
		Amount:        amount,
		Address:       address,
		TransactionID: transactionID,
		Token:         tokenSymbol,
		CreatedAt:     time.Now(),
	})
	return nil
}

func (m *Memory) History(kind types.ActivityKind) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{}, len(m.seen[kind]))
	for id := range m.seen[kind] {
		out[id] = struct{}{}
	}
	return out, nil
}

// Activities returns a copy of the full history for kind, oldest first.
func (m *Memory) Activities(kind types.ActivityKind) []Activity {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Activity, len(m.activities[kind]))
	copy(out, m.activities[kind])
	return out
}
