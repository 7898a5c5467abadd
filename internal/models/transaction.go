package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionType represents the direction of a transaction
type TransactionType string

const (
	TransactionTypeIncome   TransactionType = "income"
	TransactionTypeExpense  TransactionType = "expense"
	TransactionTypeTransfer TransactionType = "transfer"
)

// DefaultCategory is used when a transaction has no category label.
const DefaultCategory = "Uncategorized"

// Valid reports whether t is one of the known transaction types.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeIncome, TransactionTypeExpense, TransactionTypeTransfer:
		return true
	}
	return false
}

// Effect returns the signed change a transaction of type t and magnitude
// amount has on its account. Transfers are booked as the sending leg.
func Effect(t TransactionType, amount decimal.Decimal) decimal.Decimal {
	if t == TransactionTypeIncome {
		return amount
	}
	return amount.Neg()
}

// Transaction represents a financial transaction in the system.
// Amount is always positive; the direction is carried by Type.
type Transaction struct {
	Base
	UserID      string          `gorm:"size:64;not null;index" json:"user_id"`
	AccountID   *string         `gorm:"type:uuid;index" json:"account_id,omitempty"`
	Date        Date            `gorm:"not null;index" json:"date"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Type        TransactionType `gorm:"size:16;not null" json:"type"`
	Category    string          `gorm:"size:128;not null;default:'Uncategorized'" json:"category"`
	Description *string         `gorm:"size:500" json:"description,omitempty"`
	Notes       *string         `json:"notes,omitempty"`
}

// Effect returns the signed change this transaction has on its linked account.
func (t *Transaction) Effect() decimal.Decimal {
	return Effect(t.Type, t.Amount)
}

// DescriptionText returns the description or "" when it is unset.
func (t *Transaction) DescriptionText() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// NotesText returns the notes or "" when they are unset.
func (t *Transaction) NotesText() string {
	if t.Notes == nil {
		return ""
	}
	return *t.Notes
}

// LinkedTo reports whether the transaction is linked to the given account.
func (t *Transaction) LinkedTo(accountID string) bool {
	return t.AccountID != nil && *t.AccountID == accountID
}

// NormalizeCategory trims a category label, falling back to DefaultCategory.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	if category == "" {
		return DefaultCategory
	}
	return category
}

// OptionalText trims s and returns nil when nothing is left.
func OptionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
