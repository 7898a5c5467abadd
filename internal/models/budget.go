package models

import "github.com/shopspring/decimal"

// BudgetPeriod represents the period type for a budget
type BudgetPeriod string

const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodYearly  BudgetPeriod = "yearly"
)

// Budget caps spending in one category over a recurring period.
type Budget struct {
	Base
	UserID    string          `gorm:"size:64;not null;index" json:"user_id"`
	Category  string          `gorm:"size:128;not null" json:"category"`
	Name      string          `gorm:"size:128;not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Period    BudgetPeriod    `gorm:"size:16;not null" json:"period"`
	StartDate Date            `gorm:"not null" json:"start_date"`
	EndDate   *Date           `json:"end_date,omitempty"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`
}
