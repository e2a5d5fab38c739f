package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/rs/zerolog/log"
)

// Simulator implements Client and PendingSource against in-process state.
// Deposits are funded through FundDeposit, swept by ClearDeposits into a
// reserve, and pending transactions are queued through QueuePending.
type Simulator struct {
	mu       sync.Mutex
	deposits map[string]*big.Int // token address -> unswept balance at the deposit address
	reserve  map[string]*big.Int // token address -> swept balance
	pending  map[string][]PendingTransaction
	txSeq    uint64
}

var (
	_ Client        = (*Simulator)(nil)
	_ PendingSource = (*Simulator)(nil)
)

func NewSimulator() *Simulator {
	return &Simulator{
		deposits: make(map[string]*big.Int),
		reserve:  make(map[string]*big.Int),
		pending:  make(map[string][]PendingTransaction),
	}
}

// FundDeposit places amount base units of a token at the deposit address, as
// if a user had transferred it on-chain.
func (s *Simulator) FundDeposit(tokenAddress string, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.deposits[tokenAddress]
	if !ok {
		cur = new(big.Int)
		s.deposits[tokenAddress] = cur
	}
	cur.Add(cur, amount)
}

// QueuePending appends a pending deposit transaction for a token symbol.
func (s *Simulator) QueuePending(symbol string, tnx PendingTransaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[symbol] = append(s.pending[symbol], tnx)
}

func (s *Simulator) Balances(ctx context.Context, address string, tokenAddresses []string) ([]*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*big.Int, len(tokenAddresses))
	for i, addr := range tokenAddresses {
		out[i] = new(big.Int)
		if cur, ok := s.deposits[addr]; ok {
			out[i].Set(cur)
		}
	}
	return out, nil
}

func (s *Simulator) ClearDeposits(ctx context.Context, signingKey, address string, tokenAddresses []string, amounts []*big.Int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(tokenAddresses) != len(amounts) {
		return "", fmt.Errorf("clear deposits: %d addresses but %d amounts", len(tokenAddresses), len(amounts))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, addr := range tokenAddresses {
		if amounts[i] == nil || amounts[i].Sign() == 0 {
			continue
		}
		cur, ok := s.deposits[addr]
		if !ok || cur.Cmp(amounts[i]) < 0 {
			return "", fmt.Errorf("clear deposits: %s exceeds balance at %s", amounts[i], addr)
		}
		cur.Sub(cur, amounts[i])
		res, ok := s.reserve[addr]
		if !ok {
			res = new(big.Int)
			s.reserve[addr] = res
		}
		res.Add(res, amounts[i])
	}
	ref := s.nextRef()
	log.Debug().Str("component", "chain_simulator").Str("tx", ref).Msg("cleared deposits to reserve")
	return ref, nil
}

func (s *Simulator) Withdraw(ctx context.Context, signingKey, fromAddress, tokenAddress string, amount *big.Int, toAddress string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", fmt.Errorf("withdraw: non-positive amount")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := s.nextRef()
	log.Debug().
		Str("component", "chain_simulator").
		Str("token", tokenAddress).
		Str("to", toAddress).
		Str("amount", amount.String()).
		Str("tx", ref).
		Msg("submitted withdraw transfer")
	return ref, nil
}

func (s *Simulator) PendingTransactions(ctx context.Context, exchange string) (map[string][]PendingTransaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]PendingTransaction, len(s.pending))
	for symbol, tnxs := range s.pending {
		cp := make([]PendingTransaction, len(tnxs))
		copy(cp, tnxs)
		out[symbol] = cp
	}
	return out, nil
}

// Reserve returns the swept balance for a token contract.
func (s *Simulator) Reserve(tokenAddress string) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := new(big.Int)
	if cur, ok := s.reserve[tokenAddress]; ok {
		out.Set(cur)
	}
	return out
}

func (s *Simulator) nextRef() string {
	s.txSeq++
	return fmt.Sprintf("0xsim%016x", s.txSeq)
}
