package exchange

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tokenex/exchange-core/internal/types"
)

// Withdraw sends amount of a token to the destination address on-chain, then
// debits the user's available balance and records a withdraw activity entry.
//
// The debit does not route through a lock step, unlike the trade path. The
// available balance is checked up front to reject obviously short requests
// before the transfer, but a concurrent spend between the check and the debit
// is still possible.
func (s *Service) Withdraw(ctx context.Context, user, symbol, address string, amount decimal.Decimal) (string, error) {
	logger := log.With().
		Str("service", "exchange").
		Str("user", user).
		Str("token", symbol).
		Str("address", address).
		Logger()

	if amount.Sign() <= 0 {
		return "", types.E(types.KindInvalidOrder, "amount must be positive, got %s", amount)
	}
	tok, err := s.tokens.Resolve(symbol)
	if err != nil {
		return "", err
	}

	units := amount.Shift(tok.Decimals)
	if !units.IsInteger() {
		return "", types.E(types.KindInvariantViolation,
			"amount %s is finer than %s precision (%d decimals)", amount, tok.Symbol, tok.Decimals)
	}

	available, err := s.ledger.Get(user, tok.Symbol, types.BalanceAvailable)
	if err != nil {
		return "", err
	}
	if available.LessThan(amount) {
		return "", types.E(types.KindInsufficientBalance,
			"cannot withdraw %s %s: available %s", amount, tok.Symbol, available)
	}

	cctx, cancel := context.WithTimeout(ctx, s.chainTimeout)
	defer cancel()

	txRef, err := s.chain.Withdraw(cctx, s.signingKey, s.depositAddress, tok.Address, units.BigInt(), address)
	if err != nil {
		return "", types.Wrap(types.KindExternalFailure, err, "on-chain withdraw")
	}

	if err := s.ledger.Withdraw(user, tok.Symbol, amount, types.BalanceAvailable); err != nil {
		// The transfer is already on chain; the ledger no longer matches it.
		logger.Error().
			Err(err).
			Str("tx", txRef).
			Msg("on-chain transfer sent but ledger debit failed, manual reconciliation required")
		return "", err
	}

	if err := s.ledger.AddActivity(types.ActivityWithdraw, amount, address, txRef, tok.Symbol); err != nil {
		// Retrying would risk a double debit on replay, so the record is
		// left for manual reconciliation.
		logger.Error().
			Err(err).
			Str("tx", txRef).
			Msg("failed to record withdraw activity, manual reconciliation required")
	}

	logger.Info().
		Str("tx", txRef).
		Str("amount", amount.String()).
		Msg("withdrawal processed")
	return txRef, nil
}
