package ledger

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tokenex/exchange-core/internal/types"
)

// Database is the gorm-backed Ledger implementation. Each mutation runs
// inside a transaction on its (user, token) row, which gives the per-pair
// atomicity the contract requires.
type Database struct {
	db *gorm.DB
}

var _ Ledger = (*Database)(nil)

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) Get(user, token string, kind types.BalanceKind) (decimal.Decimal, error) {
	var rec BalanceRecord
	err := d.db.Where("user_id = ? AND token = ?", user, token).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, types.Wrap(types.KindExternalFailure, err, "fetch balance %s/%s", user, token)
	}
	return bucket(&rec, kind)
}

func (d *Database) Balances(user string, kind types.BalanceKind) (map[string]decimal.Decimal, error) {
	var recs []BalanceRecord
	if err := d.db.Where("user_id = ?", user).Find(&recs).Error; err != nil {
		return nil, types.Wrap(types.KindExternalFailure, err, "fetch balances for %s", user)
	}
	out := make(map[string]decimal.Decimal, len(recs))
	for i := range recs {
		v, err := bucket(&recs[i], kind)
		if err != nil {
			return nil, err
		}
		out[recs[i].Token] = v
	}
	return out, nil
}

func bucket(rec *BalanceRecord, kind types.BalanceKind) (decimal.Decimal, error) {
	switch kind {
	case types.BalanceAvailable:
		return rec.Available, nil
	case types.BalanceLocked:
		return rec.Locked, nil
	default:
		return decimal.Zero, types.E(types.KindInvalidOrder, "unknown balance kind %q", kind)
	}
}

// mutate loads (or initializes) the row for one (user, token) pair inside a
// transaction, applies fn, and saves the result.
func (d *Database) mutate(user, token string, fn func(rec *BalanceRecord) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var rec BalanceRecord
		err := tx.Where("user_id = ? AND token = ?", user, token).First(&rec).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			rec = BalanceRecord{UserID: user, Token: token, Available: decimal.Zero, Locked: decimal.Zero}
		case err != nil:
			return types.Wrap(types.KindExternalFailure, err, "fetch balance %s/%s", user, token)
		}
		if err := fn(&rec); err != nil {
			return err
		}
		if err := tx.Save(&rec).Error; err != nil {
			return types.Wrap(types.KindExternalFailure, err, "save balance %s/%s", user, token)
		}
		return nil
	})
}

func (d *Database) Lock(user, token string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return d.mutate(user, token, func(rec *BalanceRecord) error {
		if rec.Available.LessThan(amount) {
			return types.E(types.KindInsufficientBalance,
				"cannot lock %s %s: available %s", amount, token, rec.Available)
		}
		rec.Available = rec.Available.Sub(amount)
		rec.Locked = rec.Locked.Add(amount)
		return nil
	})
}

func (d *Database) Unlock(user, token string, amount decimal.Decimal) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return d.mutate(user, token, func(rec *BalanceRecord) error {
		if rec.Locked.LessThan(amount) {
			return types.E(types.KindInvariantViolation,
				"cannot unlock %s %s: locked %s", amount, token, rec.Locked)
		}
		rec.Locked = rec.Locked.Sub(amount)
		rec.Available = rec.Available.Add(amount)
		return nil
	})
}

func (d *Database) Deposit(user, token string, amount decimal.Decimal, kind types.BalanceKind) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return d.mutate(user, token, func(rec *BalanceRecord) error {
		switch kind {
		case types.BalanceAvailable:
			rec.Available = rec.Available.Add(amount)
		case types.BalanceLocked:
			rec.Locked = rec.Locked.Add(amount)
		default:
			return types.E(types.KindInvalidOrder, "unknown balance kind %q", kind)
		}
		return nil
	})
}

func (d *Database) Withdraw(user, token string, amount decimal.Decimal, kind types.BalanceKind) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return d.mutate(user, token, func(rec *BalanceRecord) error {
		switch kind {
		case types.BalanceAvailable:
			if rec.Available.LessThan(amount) {
				return types.E(types.KindInsufficientBalance,
					"cannot withdraw %s %s: available %s", amount, token, rec.Available)
			}
			rec.Available = rec.Available.Sub(amount)
		case types.BalanceLocked:
			if rec.Locked.LessThan(amount) {
				return types.E(types.KindInsufficientBalance,
					"cannot withdraw %s %s from lock: locked %s", amount, token, rec.Locked)
			}
			rec.Locked = rec.Locked.Sub(amount)
		default:
			return types.E(types.KindInvalidOrder, "unknown balance kind %q", kind)
		}
		return nil
	})
}

func (d *Database) AddActivity(kind types.ActivityKind, amount decimal.Decimal, address, transactionID, tokenSymbol string) error {
	rec := ActivityRecord{
		Kind:          string(kind),
		TransactionID: transactionID,
		Amount:        amount,
		Address:       address,
		Token:         tokenSymbol,
	}
	if err := d.db.Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return types.E(types.KindInvariantViolation,
				"duplicate %s activity for transaction %s", kind, transactionID)
		}
		return types.Wrap(types.KindExternalFailure, err, "append %s activity", kind)
	}
	return nil
}

func (d *Database) History(kind types.ActivityKind) (map[string]struct{}, error) {
	var ids []string
	if err := d.db.Model(&ActivityRecord{}).
		Where("kind = ?", string(kind)).
		Pluck("transaction_id", &ids).Error; err != nil {
		return nil, types.Wrap(types.KindExternalFailure, err, "fetch %s history", kind)
	}
	out := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		out[id] = struct{}{}
	}
	return out, nil
}
