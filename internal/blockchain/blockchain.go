// Package blockchain defines the on-chain collaborator contracts the
// exchange core depends on. The real RPC client lives outside this
// repository; Simulator is an in-process stand-in for development and tests.
//
// All amounts cross these interfaces in integer base units. Converting to and
// from user-facing decimal quantities is the exchange core's job.
package blockchain

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"
)

// Client is the on-chain collaborator.
type Client interface {
	// Balances returns the balance held at address for each token contract,
	// positionally matching tokenAddresses.
	Balances(ctx context.Context, address string, tokenAddresses []string) ([]*big.Int, error)

	// ClearDeposits sweeps the given balances from the deposit address to
	// the exchange reserve and returns the transaction reference.
	ClearDeposits(ctx context.Context, signingKey, address string, tokenAddresses []string, amounts []*big.Int) (string, error)

	// Withdraw transfers amount of the token from the exchange address to
	// the destination and returns the transaction reference.
	Withdraw(ctx context.Context, signingKey, fromAddress, tokenAddress string, amount *big.Int, toAddress string) (string, error)
}

// PendingTransaction is one user deposit awaiting crediting.
type PendingTransaction struct {
	TransactionID string          `json:"tx"`
	Amount        decimal.Decimal `json:"amount"`
}

// PendingSource is the external index of deposit transactions pending for an
// exchange, keyed by token symbol and ordered oldest first.
type PendingSource interface {
	PendingTransactions(ctx context.Context, exchange string) (map[string][]PendingTransaction, error)
}
