// Package ledger holds the per-user, per-token balance contract the exchange
// core is handed at construction, plus two implementations of it: an
// in-memory reference and a gorm-backed one.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tokenex/exchange-core/internal/types"
)

// Activity is one append-only history record. The transaction id is the
// dedup key: a given id must appear at most once per kind.
type Activity struct {
	Kind          types.ActivityKind `json:"kind"`
	Amount        decimal.Decimal    `json:"amount"`
	Address       string             `json:"address"`
	TransactionID string             `json:"transaction_id"`
	Token         string             `json:"token"`
	CreatedAt     time.Time          `json:"created_at"`
}

// Ledger is the balance collaborator contract. Every operation must be atomic
// with respect to concurrent calls for the same (user, token) pair; two
// concurrent locks must not both pass the available-funds check.
//
// Available and locked never go negative. Locked only grows via Lock and only
// shrinks via Unlock or a Withdraw from the locked bucket.
type Ledger interface {
	// Get returns the named bucket for one (user, token) entry.
	Get(user, token string, kind types.BalanceKind) (decimal.Decimal, error)

	// Balances returns the named bucket for every token the user holds.
	Balances(user string, kind types.BalanceKind) (map[string]decimal.Decimal, error)

	// Lock moves amount from available to locked. Fails with
	// INSUFFICIENT_BALANCE when available is short.
	Lock(user, token string, amount decimal.Decimal) error

	// Unlock moves amount from locked back to available. Fails with
	// INVARIANT_VIOLATION when locked is short: nothing outside the trade
	// and cancel paths may shrink a lock.
	Unlock(user, token string, amount decimal.Decimal) error

	// Deposit increases the named bucket.
	Deposit(user, token string, amount decimal.Decimal, kind types.BalanceKind) error

	// Withdraw decreases the named bucket, failing with
	// INSUFFICIENT_BALANCE when it is short.
	Withdraw(user, token string, amount decimal.Decimal, kind types.BalanceKind) error

	// AddActivity appends a history record. Callers check History first;
	// implementations still reject a duplicate (kind, transaction id) as a
	// backstop for the exactly-once crediting invariant.
	AddActivity(kind types.ActivityKind, amount decimal.Decimal, address, transactionID, tokenSymbol string) error

	// History returns the set of transaction ids already recorded for kind.
	History(kind types.ActivityKind) (map[string]struct{}, error)
}
