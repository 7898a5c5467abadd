package models

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// AccountType is an open enum; these are the types the dashboard offers.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCredit     AccountType = "credit"
	AccountTypeCash       AccountType = "cash"
	AccountTypeInvestment AccountType = "investment"
)

const defaultAccountColor = "#3b82f6"

// Account represents a financial account in the system.
// Balance is a stored scalar that every linked transaction mutation adjusts;
// OpeningBalance is the value the account was created with.
type Account struct {
	Base
	UserID         string          `gorm:"size:64;not null;index" json:"user_id"`
	Name           string          `gorm:"size:128;not null" json:"name"`
	Type           AccountType     `gorm:"size:32;not null" json:"type"`
	Balance        decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"balance"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"opening_balance"`
	Color          string          `gorm:"size:16" json:"color,omitempty"`
}

// BeforeCreate fills defaults and assigns the primary key.
func (a *Account) BeforeCreate(tx *gorm.DB) error {
	if strings.TrimSpace(string(a.Type)) == "" {
		a.Type = AccountTypeChecking
	}
	if a.Color == "" {
		a.Color = defaultAccountColor
	}
	return a.Base.BeforeCreate(tx)
}
