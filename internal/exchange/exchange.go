// Package exchange implements the exchange core: trade execution against
// snapshot order books, cancellation, balance queries, deposit reconciliation
// and withdrawal authorization. Storage and the chain are injected
// collaborators; the core owns nothing it did not create.
package exchange

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tokenex/exchange-core/internal/blockchain"
	"github.com/tokenex/exchange-core/internal/ledger"
	"github.com/tokenex/exchange-core/internal/matching"
	"github.com/tokenex/exchange-core/internal/orderstore"
	"github.com/tokenex/exchange-core/internal/token"
	"github.com/tokenex/exchange-core/internal/types"
)

const (
	defaultReconcileDelay = 5 * time.Minute
	defaultChainTimeout   = 10 * time.Second
)

// Config carries the static identity and tuning of the exchange core.
type Config struct {
	// Name identifies this exchange in snapshot lookups and the pending
	// transaction index.
	Name string
	// DepositAddress is the on-chain address users deposit into.
	DepositAddress string
	// SigningKey signs sweep and withdraw transactions.
	SigningKey string
	// ReconcileDelay is the minimum interval between deposit
	// reconciliation cycles. Defaults to 5 minutes.
	ReconcileDelay time.Duration
	// ChainTimeout bounds each on-chain collaborator call. Defaults to 10s.
	ChainTimeout time.Duration
}

// Service is the exchange core.
type Service struct {
	name           string
	depositAddress string
	signingKey     string
	reconcileEvery time.Duration
	chainTimeout   time.Duration

	tokens  *token.Registry
	ledger  ledger.Ledger
	orders  orderstore.Store
	chain   blockchain.Client
	pending blockchain.PendingSource

	now func() time.Time

	mu          sync.Mutex
	lastCheck   time.Time
	reconciling bool
}

// NewService wires the exchange core with its collaborators.
func NewService(cfg Config, tokens *token.Registry, lg ledger.Ledger, store orderstore.Store, chain blockchain.Client, pending blockchain.PendingSource) *Service {
	if cfg.ReconcileDelay <= 0 {
		cfg.ReconcileDelay = defaultReconcileDelay
	}
	if cfg.ChainTimeout <= 0 {
		cfg.ChainTimeout = defaultChainTimeout
	}
	return &Service{
		name:           cfg.Name,
		depositAddress: cfg.DepositAddress,
		signingKey:     cfg.SigningKey,
		reconcileEvery: cfg.ReconcileDelay,
		chainTimeout:   cfg.ChainTimeout,
		tokens:         tokens,
		ledger:         lg,
		orders:         store,
		chain:          chain,
		pending:        pending,
		now:            time.Now,
	}
}

// TradeResult is the caller-visible outcome of a trade request.
type TradeResult struct {
	OrderID   string          `json:"order_id"`
	Received  decimal.Decimal `json:"received"`
	Remaining decimal.Decimal `json:"remaining"`
}

// Trade executes a buy or sell request against the book snapshot for
// (pair, timestamp): validate, lock the committed balance, match, persist the
// resulting order, settle the filled portion and unlock any unused commitment
// once the order is no longer active.
//
// The commitment is locked before matching so concurrent trades from the same
// user cannot both spend the same available funds.
func (s *Service) Trade(ctx context.Context, user string, side types.Side, rate decimal.Decimal, pair string, amount decimal.Decimal, timestamp int64) (*TradeResult, error) {
	logger := log.With().
		Str("service", "exchange").
		Str("user", user).
		Str("pair", pair).
		Str("side", string(side)).
		Logger()

	s.maybeReconcile(ctx, user)

	if err := s.tokens.Supports(pair); err != nil {
		return nil, err
	}
	base, quote, err := token.SplitPair(pair)
	if err != nil {
		return nil, err
	}
	if side != types.SideBuy && side != types.SideSell {
		return nil, types.E(types.KindInvalidOrder, "invalid order side %q", side)
	}
	if rate.Sign() <= 0 {
		return nil, types.E(types.KindInvalidOrder, "rate must be positive, got %s", rate)
	}
	if amount.Sign() <= 0 {
		return nil, types.E(types.KindInvalidOrder, "amount must be positive, got %s", amount)
	}

	// 1. Lock the committed balance: quote for a buy, base for a sell.
	lockToken, lockAmount := base, amount
	if side == types.SideBuy {
		lockToken, lockAmount = quote, rate.Mul(amount)
	}
	if err := s.ledger.Lock(user, lockToken, lockAmount); err != nil {
		return nil, err
	}

	// 2. Snapshot and match. A missing snapshot is an empty book.
	book := s.loadBook(pair, timestamp, logger)
	filledBase, filledQuote, err := matching.Match(side, rate, amount, book)
	if err != nil {
		s.releaseLock(user, lockToken, lockAmount, logger)
		return nil, err
	}

	// 3. Persist the order with its final fill state.
	order := &types.Order{
		OrderID:         uuid.New().String(),
		UserID:          user,
		Pair:            pair,
		Side:            side,
		Rate:            rate,
		RequestedAmount: amount,
		ExecutedAmount:  filledBase,
		RemainingAmount: amount.Sub(filledBase),
		CreatedAt:       s.now(),
	}
	if err := s.orders.Add(order); err != nil {
		s.releaseLock(user, lockToken, lockAmount, logger)
		return nil, err
	}

	// 4. Settle the filled portion: credit the counter-asset into available
	// and consume the matched part of the locked commitment.
	creditToken, creditAmount := base, filledBase
	debitAmount := filledQuote
	if side == types.SideSell {
		creditToken, creditAmount = quote, filledQuote
		debitAmount = filledBase
	}
	if filledBase.IsPositive() {
		if err := s.settle(user, creditToken, creditAmount, lockToken, debitAmount, lockAmount, logger); err != nil {
			return nil, err
		}
	}

	// 5. Fully filled orders release whatever part of the commitment the
	// settlement did not consume.
	if !order.Active() {
		surplus := lockAmount.Sub(debitAmount)
		if surplus.IsPositive() {
			s.releaseLock(user, lockToken, surplus, logger)
		}
	}

	logger.Info().
		Str("order_id", order.OrderID).
		Str("received", order.ExecutedAmount.String()).
		Str("remaining", order.RemainingAmount.String()).
		Msg("trade executed")

	return &TradeResult{
		OrderID:   order.OrderID,
		Received:  order.ExecutedAmount,
		Remaining: order.RemainingAmount,
	}, nil
}

// settle applies the two ledger movements of a fill. If the debit from the
// locked bucket fails the credit is reversed, so a mid-sequence failure never
// strands funds: the whole commitment is released and the error surfaced.
func (s *Service) settle(user, creditToken string, creditAmount decimal.Decimal, lockToken string, debitAmount, lockAmount decimal.Decimal, logger zerolog.Logger) error {
	if err := s.ledger.Deposit(user, creditToken, creditAmount, types.BalanceAvailable); err != nil {
		logger.Error().Err(err).Msg("settlement credit failed, releasing locked commitment")
		s.releaseLock(user, lockToken, lockAmount, logger)
		return err
	}
	if err := s.ledger.Withdraw(user, lockToken, debitAmount, types.BalanceLocked); err != nil {
		logger.Error().Err(err).Msg("settlement debit failed, reversing credit and releasing locked commitment")
		if rerr := s.ledger.Withdraw(user, creditToken, creditAmount, types.BalanceAvailable); rerr != nil {
			logger.Error().Err(rerr).Msg("settlement credit reversal failed, ledger requires manual reconciliation")
		}
		s.releaseLock(user, lockToken, lockAmount, logger)
		return err
	}
	return nil
}

// releaseLock returns part of a commitment to available. An unlock failure
// here is a ledger invariant violation and is logged, never swallowed.
func (s *Service) releaseLock(user, token string, amount decimal.Decimal, logger zerolog.Logger) {
	if err := s.ledger.Unlock(user, token, amount); err != nil {
		logger.Error().
			Err(err).
			Str("token", token).
			Str("amount", amount.String()).
			Msg("failed to release locked funds")
	}
}

// Cancel removes an open order and returns its remaining commitment to the
// user's available balance. The store's removal semantics make a second
// cancel fail with NOT_FOUND before any unlock happens.
func (s *Service) Cancel(ctx context.Context, user, orderID string) error {
	logger := log.With().
		Str("service", "exchange").
		Str("user", user).
		Str("order_id", orderID).
		Logger()

	order, err := s.orders.Get(orderID)
	if err != nil {
		return err
	}
	if order.UserID != user {
		return types.E(types.KindNotFound, "order %s not found", orderID)
	}
	base, quote, err := token.SplitPair(order.Pair)
	if err != nil {
		return err
	}

	// Remove first: the winner of a concurrent double cancel is the only
	// caller that reaches the unlock.
	if err := s.orders.Remove(orderID); err != nil {
		return err
	}

	unlockToken, unlockAmount := base, order.RemainingAmount
	if order.Side == types.SideBuy {
		unlockToken, unlockAmount = quote, order.RemainingAmount.Mul(order.Rate)
	}
	if unlockAmount.IsPositive() {
		if err := s.ledger.Unlock(user, unlockToken, unlockAmount); err != nil {
			logger.Error().Err(err).Msg("failed to unlock cancelled order commitment")
			return err
		}
	}

	logger.Info().Str("pair", order.Pair).Msg("order cancelled")
	return nil
}

// GetBalance reads the requested balance buckets for a user. It first gives
// deposit reconciliation a chance to run; reconciliation failures are logged
// and swallowed so balance reads never fail because of them.
func (s *Service) GetBalance(ctx context.Context, user string, kinds []types.BalanceKind) (map[types.BalanceKind]map[string]decimal.Decimal, error) {
	s.maybeReconcile(ctx, user)

	if len(kinds) == 0 {
		kinds = types.BalanceKinds
	}
	out := make(map[types.BalanceKind]map[string]decimal.Decimal, len(kinds))
	for _, kind := range kinds {
		balances, err := s.ledger.Balances(user, kind)
		if err != nil {
			return nil, err
		}
		out[kind] = balances
	}
	return out, nil
}

// OrderBook returns the snapshot for (pair, timestamp), degrading a missing
// snapshot to an empty book.
func (s *Service) OrderBook(ctx context.Context, pair string, timestamp int64) (*types.OrderBook, error) {
	if err := s.tokens.Supports(pair); err != nil {
		return nil, err
	}
	logger := log.With().Str("service", "exchange").Str("pair", pair).Logger()
	return s.loadBook(pair, timestamp, logger), nil
}

// GetOrder returns one order by id.
func (s *Service) GetOrder(orderID string) (*types.Order, error) {
	return s.orders.Get(orderID)
}

// ActiveOrders returns the open orders for a pair, or for all pairs when pair
// is empty.
func (s *Service) ActiveOrders(pair string) ([]types.Order, error) {
	if pair != "" {
		if err := s.tokens.Supports(pair); err != nil {
			return nil, err
		}
	}
	orders, err := s.orders.GetAll(pair)
	if err != nil {
		return nil, err
	}
	active := make([]types.Order, 0, len(orders))
	for _, order := range orders {
		if order.Active() {
			active = append(active, order)
		}
	}
	return active, nil
}

func (s *Service) loadBook(pair string, timestamp int64, logger zerolog.Logger) *types.OrderBook {
	book, err := s.orders.LoadBook(pair, s.name, timestamp)
	if err != nil {
		logger.Info().
			Err(err).
			Int64("timestamp", timestamp).
			Msg("order book snapshot missing, treating as empty")
		return &types.OrderBook{Pair: pair, Timestamp: timestamp}
	}
	return book
}
