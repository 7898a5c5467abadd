// Package dedupe recognizes statement rows that were already imported.
//
// Two rows are the same transaction when their calendar date, amount rounded
// to cents and trimmed, case-folded description all match. This is a content
// address rather than an identity check, so two genuinely distinct purchases
// with the same date, amount and description collapse into one.
package dedupe

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"

	"pennywise/internal/models"
)

// Key builds the composite lookup key for one row. A Caser carries state, so
// a fresh one is taken per call.
func Key(date models.Date, amount decimal.Decimal, description string) string {
	var b strings.Builder
	b.WriteString(date.String())
	b.WriteByte('|')
	b.WriteString(amount.Abs().StringFixed(2))
	b.WriteByte('|')
	b.WriteString(cases.Fold().String(strings.TrimSpace(description)))
	return b.String()
}

// Index is a set of keys built once per import so each candidate is checked
// in constant time. It is not safe for concurrent use.
type Index struct {
	keys map[string]struct{}
}

// NewIndex builds an index over existing transactions.
func NewIndex(existing []models.Transaction) *Index {
	idx := &Index{keys: make(map[string]struct{}, len(existing))}
	for i := range existing {
		t := &existing[i]
		idx.Add(t.Date, t.Amount, t.DescriptionText())
	}
	return idx
}

// Add records a row in the index.
func (i *Index) Add(date models.Date, amount decimal.Decimal, description string) {
	i.keys[Key(date, amount, description)] = struct{}{}
}

// Contains reports whether a row with the same key is already indexed.
func (i *Index) Contains(date models.Date, amount decimal.Decimal, description string) bool {
	_, ok := i.keys[Key(date, amount, description)]
	return ok
}

// Len is the number of distinct keys.
func (i *Index) Len() int { return len(i.keys) }
