package ledger

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceRecord is one persisted (user, token) balance pair.
type BalanceRecord struct {
	gorm.Model `json:"-"`
	UserID     string          `gorm:"uniqueIndex:idx_balance_user_token" json:"user_id"`
	Token      string          `gorm:"uniqueIndex:idx_balance_user_token" json:"token"`
	Available  decimal.Decimal `gorm:"type:decimal(32,18)" json:"available"`
	Locked     decimal.Decimal `gorm:"type:decimal(32,18)" json:"locked"`
}

// ActivityRecord is one persisted history entry. The unique index on
// (kind, transaction_id) is the database-level backstop for the exactly-once
// crediting invariant.
type ActivityRecord struct {
	gorm.Model    `json:"-"`
	Kind          string          `gorm:"uniqueIndex:idx_activity_kind_tnx" json:"kind"`
	TransactionID string          `gorm:"uniqueIndex:idx_activity_kind_tnx" json:"transaction_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(32,18)" json:"amount"`
	Address       string          `json:"address"`
	Token         string          `json:"token"`
	CreatedAt     time.Time       `json:"created_at"`
}
