package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FlagKind says which step left an account out of step with its transactions.
type FlagKind string

const (
	// FlagBalanceUpdateFailed: rows were written but the balance write failed.
	FlagBalanceUpdateFailed FlagKind = "balance_update_failed"
	// FlagPartialMutation: an edit or delete reverted the old effect but did
	// not finish applying the new state.
	FlagPartialMutation FlagKind = "partial_mutation"
)

// ReconciliationFlag marks a known inconsistency between an account's stored
// balance and its transaction history. Delta is the signed amount that should
// have been applied but was not.
type ReconciliationFlag struct {
	Base
	UserID     string          `gorm:"size:64;not null;index" json:"user_id"`
	AccountID  string          `gorm:"type:uuid;not null;index" json:"account_id"`
	Kind       FlagKind        `gorm:"size:32;not null" json:"kind"`
	Source     string          `gorm:"size:32;not null" json:"source"`
	Delta      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"delta"`
	Message    string          `json:"message"`
	ResolvedAt *time.Time      `json:"resolved_at,omitempty"`
}
