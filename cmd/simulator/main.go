package main

import (
	"context"
	"flag"
	"math/big"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/tokenex/exchange-core/internal/blockchain"
	"github.com/tokenex/exchange-core/internal/config"
	"github.com/tokenex/exchange-core/internal/database"
	"github.com/tokenex/exchange-core/internal/exchange"
	"github.com/tokenex/exchange-core/internal/ledger"
	"github.com/tokenex/exchange-core/internal/orderstore"
	"github.com/tokenex/exchange-core/internal/types"
)

// init configures console logging for the simulator run. Debug logging can
// be enabled via the DEBUG environment variable.
func init() {
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main drives a scripted session against the exchange core: an on-chain
// deposit is reconciled into the ledger, a buy is partially filled against a
// seeded snapshot, the remainder is cancelled, and the proceeds withdrawn.
func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	registry, err := cfg.Registry()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token registry")
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	balances := ledger.NewDatabase(db)
	orders := orderstore.NewDatabase(db)
	chain := blockchain.NewSimulator()

	svc := exchange.NewService(exchange.Config{
		Name:           cfg.Exchange.Name,
		DepositAddress: cfg.Exchange.DepositAddress,
		SigningKey:     cfg.Exchange.SigningKey,
		ReconcileDelay: cfg.ReconcileDelay(),
		ChainTimeout:   cfg.ChainTimeout(),
	}, registry, balances, orders, chain, chain)

	ctx := context.Background()
	user := "demo-trader"
	base := registry.Tokens()[0]
	if base.Symbol == registry.Settlement() && len(registry.Tokens()) > 1 {
		base = registry.Tokens()[1]
	}
	pair := base.Symbol + "_" + registry.Settlement()
	now := time.Now().UnixMilli()

	// A user deposit of 100 base tokens is waiting on chain, together with
	// enough of the settlement asset to trade with.
	settlement, err := registry.Resolve(registry.Settlement())
	if err != nil {
		log.Fatal().Err(err).Msg("settlement asset missing from registry")
	}
	chain.FundDeposit(base.Address, units(decimal.RequireFromString("100"), base.Decimals))
	chain.FundDeposit(settlement.Address, units(decimal.RequireFromString("50"), settlement.Decimals))
	chain.QueuePending(base.Symbol, blockchain.PendingTransaction{
		TransactionID: "0xdeadbeef01",
		Amount:        decimal.RequireFromString("100"),
	})
	chain.QueuePending(settlement.Symbol, blockchain.PendingTransaction{
		TransactionID: "0xdeadbeef02",
		Amount:        decimal.RequireFromString("50"),
	})

	// Resting liquidity for the session.
	orderBook := types.OrderBook{
		Pair:      pair,
		Timestamp: now,
		Asks: []types.BookLevel{
			{Rate: decimal.RequireFromString("1.0"), Quantity: decimal.RequireFromString("5")},
			{Rate: decimal.RequireFromString("1.2"), Quantity: decimal.RequireFromString("5")},
		},
		Bids: []types.BookLevel{
			{Rate: decimal.RequireFromString("0.9"), Quantity: decimal.RequireFromString("10")},
		},
	}
	if err := orders.SaveBook(cfg.Exchange.Name, orderBook); err != nil {
		log.Fatal().Err(err).Msg("failed to seed order book snapshot")
	}

	// 1. Balance read triggers deposit reconciliation.
	report(svc, ctx, user, "balances after deposit reconciliation")

	// 2. Buy 8 base at limit 1.1: only the first ask level qualifies.
	result, err := svc.Trade(ctx, user, types.SideBuy, decimal.RequireFromString("1.1"), pair, decimal.RequireFromString("8"), now)
	if err != nil {
		log.Fatal().Err(err).Msg("trade failed")
	}
	log.Info().
		Str("order_id", result.OrderID).
		Str("received", result.Received.String()).
		Str("remaining", result.Remaining.String()).
		Msg("buy executed")
	report(svc, ctx, user, "balances after trade")

	// 3. Cancel the unfilled remainder.
	if err := svc.Cancel(ctx, user, result.OrderID); err != nil {
		log.Fatal().Err(err).Msg("cancel failed")
	}
	report(svc, ctx, user, "balances after cancel")

	// 4. Withdraw part of the received base tokens.
	txRef, err := svc.Withdraw(ctx, user, base.Symbol, "0xrecipient", decimal.RequireFromString("2"))
	if err != nil {
		log.Fatal().Err(err).Msg("withdraw failed")
	}
	log.Info().Str("tx", txRef).Msg("withdrawal submitted")
	report(svc, ctx, user, "final balances")
}

func report(svc *exchange.Service, ctx context.Context, user, msg string) {
	balances, err := svc.GetBalance(ctx, user, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("balance read failed")
	}
	event := log.Info()
	for kind, byToken := range balances {
		for sym, amount := range byToken {
			event = event.Str(string(kind)+"_"+sym, amount.String())
		}
	}
	event.Msg(msg)
}

func units(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}
