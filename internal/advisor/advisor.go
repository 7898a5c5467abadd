// Package advisor asks a language model to review transactions and to read
// receipts. Model output is untrusted: anything missing or malformed in a
// single record means "no suggestion" for that record.
package advisor

import (
	"context"

	"github.com/shopspring/decimal"

	"pennywise/internal/models"
)

// Summary is the minimized view of a transaction sent to the model.
type Summary struct {
	ID          string                 `json:"id"`
	Date        string                 `json:"date"`
	Description string                 `json:"description"`
	Amount      decimal.Decimal        `json:"amount"`
	Category    string                 `json:"category"`
	Type        models.TransactionType `json:"type"`
	Account     string                 `json:"account,omitempty"`
}

// Summarize builds a Summary. accountName may be empty.
func Summarize(t *models.Transaction, accountName string) Summary {
	return Summary{
		ID:          t.ID,
		Date:        t.Date.String(),
		Description: t.DescriptionText(),
		Amount:      t.Amount,
		Category:    t.Category,
		Type:        t.Type,
		Account:     accountName,
	}
}

// Suggestion is a proposed change to one transaction. Nil fields are left
// as they are.
type Suggestion struct {
	TransactionID string                  `json:"transaction_id"`
	Category      *string                 `json:"category,omitempty"`
	Description   *string                 `json:"description,omitempty"`
	Type          *models.TransactionType `json:"type,omitempty"`
	Reason        string                  `json:"reason,omitempty"`
}

// Empty reports whether the suggestion changes nothing.
func (s Suggestion) Empty() bool {
	return s.Category == nil && s.Description == nil && s.Type == nil
}

// Receipt is a transaction draft read off a receipt image. It is not stored.
type Receipt struct {
	Date        models.Date            `json:"date"`
	Amount      decimal.Decimal        `json:"amount"`
	Description string                 `json:"description"`
	Category    string                 `json:"category"`
	Type        models.TransactionType `json:"type"`
}

// Suggester is the AI suggestion service.
type Suggester interface {
	Suggest(ctx context.Context, batch []Summary, instructions string) ([]Suggestion, error)
	ScanReceipt(ctx context.Context, image []byte, mimeType string, categories []string) (*Receipt, error)
}
