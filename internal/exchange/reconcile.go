package exchange

import (
	"context"
	"math/big"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tokenex/exchange-core/internal/blockchain"
	"github.com/tokenex/exchange-core/internal/token"
	"github.com/tokenex/exchange-core/internal/types"
)

// maybeReconcile runs a deposit reconciliation cycle when the configured
// delay has elapsed since the last successful one. It is called at the top of
// balance-touching operations instead of on a timer. Concurrent triggers are
// debounced by the reconciling flag, and the cycle itself is idempotent via
// the transaction-id dedup in the activity history, which is the guarantee
// actually relied upon. Failures are logged, never surfaced to the caller.
func (s *Service) maybeReconcile(ctx context.Context, user string) {
	s.mu.Lock()
	now := s.now()
	if now.Sub(s.lastCheck) < s.reconcileEvery || s.reconciling {
		s.mu.Unlock()
		return
	}
	s.reconciling = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.reconciling = false
		s.mu.Unlock()
	}()

	logger := log.With().Str("service", "exchange").Str("user", user).Logger()
	logger.Debug().Msg("checking deposits")

	if err := s.checkDeposits(ctx, user); err != nil {
		logger.Error().Err(err).Msg("deposit reconciliation failed")
		return
	}

	// Only a fully successful cycle advances the clock; a failed one is
	// retried by the next balance-touching call.
	s.mu.Lock()
	s.lastCheck = now
	s.mu.Unlock()
}

// checkDeposits runs one reconciliation cycle: read the on-chain balances at
// the deposit address, sweep them to the reserve, credit the cleared
// quantities and consume the matching pending transactions exactly once.
func (s *Service) checkDeposits(ctx context.Context, user string) error {
	tokens := s.tokens.Tokens()
	addresses := s.tokens.Addresses()

	cctx, cancel := context.WithTimeout(ctx, s.chainTimeout)
	defer cancel()

	balances, err := s.chain.Balances(cctx, s.depositAddress, addresses)
	if err != nil {
		return types.Wrap(types.KindExternalFailure, err, "query deposit balances")
	}
	if len(balances) != len(tokens) {
		return types.E(types.KindExternalFailure,
			"deposit balance count mismatch: %d tokens, %d balances", len(tokens), len(balances))
	}

	pending, err := s.pending.PendingTransactions(cctx, s.name)
	if err != nil {
		return types.Wrap(types.KindExternalFailure, err, "fetch pending transactions")
	}

	total := new(big.Int)
	for _, b := range balances {
		total.Add(total, b)
	}
	if total.Sign() > 0 {
		txRef, err := s.chain.ClearDeposits(cctx, s.signingKey, s.depositAddress, addresses, balances)
		if err != nil {
			return types.Wrap(types.KindExternalFailure, err, "sweep deposits to reserve")
		}
		log.Debug().
			Str("service", "exchange").
			Str("tx", txRef).
			Str("total_units", total.String()).
			Msg("swept deposits to reserve")
	}

	for i, tok := range tokens {
		qty := decimal.NewFromBigInt(balances[i], -tok.Decimals)
		if !qty.IsPositive() {
			continue
		}
		if err := s.ledger.Deposit(user, tok.Symbol, qty, types.BalanceAvailable); err != nil {
			return err
		}
		if err := s.completeTransactions(qty, pending[tok.Symbol], tok); err != nil {
			return err
		}
	}
	return nil
}

// completeTransactions consumes pending deposit transactions against a
// cleared quantity, oldest first. Transactions whose id already appears in
// the deposit history were credited by an earlier cycle and are skipped,
// which is what makes a retried cycle credit exactly once.
func (s *Service) completeTransactions(clearedQty decimal.Decimal, pending []blockchain.PendingTransaction, tok token.Token) error {
	history, err := s.ledger.History(types.ActivityDeposit)
	if err != nil {
		return err
	}

	remaining := clearedQty
	for _, tnx := range pending {
		if !remaining.IsPositive() {
			break
		}
		if _, seen := history[tnx.TransactionID]; seen {
			continue
		}
		amount := decimal.Min(remaining, tnx.Amount)
		if err := s.ledger.AddActivity(types.ActivityDeposit, amount, s.depositAddress, tnx.TransactionID, tok.Symbol); err != nil {
			return err
		}
		remaining = remaining.Sub(amount)
	}
	return nil
}
