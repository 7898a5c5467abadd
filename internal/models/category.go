package models

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
)

// Category is a user-defined label. Transactions reference categories by
// name, so the name is unique per user regardless of case.
type Category struct {
	Base
	UserID string       `gorm:"size:64;not null;index" json:"user_id"`
	Name   string       `gorm:"size:128;not null" json:"name"`
	Type   CategoryType `gorm:"size:16;not null" json:"type"`
	Color  string       `gorm:"size:16" json:"color,omitempty"`
}
