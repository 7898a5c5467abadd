package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pennywise/internal/csvimport"
	"pennywise/internal/models"
)

// ErrMalformed means the model answer held no usable JSON at all.
var ErrMalformed = errors.New("malformed model response")

// cleanModelJSON strips Markdown fences and any chatter around the first JSON
// object or array in raw.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	start := strings.IndexAny(s, "[{")
	if start == -1 {
		return s
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > start {
		s = s[start : end+1]
	}
	return strings.TrimSpace(s)
}

// ParseSuggestions reads a model answer of the form {"suggestions":[...]} or
// a bare array. Entries for ids outside known, entries without an id and
// entries that change nothing are dropped. A nil known accepts any id.
func ParseSuggestions(raw string, known map[string]bool) ([]Suggestion, error) {
	var top any
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &top); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var items []any
	switch v := top.(type) {
	case []any:
		items = v
	case map[string]any:
		for _, key := range []string{"suggestions", "transactions", "results"} {
			if list, ok := v[key].([]any); ok {
				items = list
				break
			}
		}
	default:
		return nil, fmt.Errorf("%w: unexpected %T", ErrMalformed, top)
	}

	out := make([]Suggestion, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s := Suggestion{
			TransactionID: firstString(obj, "transaction_id", "id"),
			Category:      optionalString(obj, "category", "new_category", "suggested_category"),
			Description:   optionalString(obj, "description", "new_description", "new_merchant"),
			Reason:        firstString(obj, "reason", "explanation"),
		}
		if typ := optionalString(obj, "type", "new_type"); typ != nil {
			t := models.TransactionType(strings.ToLower(*typ))
			if t.Valid() {
				s.Type = &t
			}
		}
		if s.TransactionID == "" || (known != nil && !known[s.TransactionID]) || s.Empty() {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

// ParseReceipt reads a model answer describing one receipt. A missing date
// means today; a missing or non-positive amount is an error because nothing
// useful can be drafted without it.
func ParseReceipt(raw string, now time.Time) (*Receipt, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	amount, ok := decimalValue(obj["amount"])
	if !ok || !amount.Abs().IsPositive() {
		return nil, fmt.Errorf("%w: receipt has no amount", ErrMalformed)
	}

	r := &Receipt{
		Date:        models.NewDate(now),
		Amount:      amount.Abs().Round(2),
		Description: firstString(obj, "description", "merchant", "store"),
		Category:    models.NormalizeCategory(firstString(obj, "category")),
		Type:        models.TransactionTypeExpense,
	}
	if d := firstString(obj, "date"); d != "" {
		if parsed, err := csvimport.ParseDate(d); err == nil {
			r.Date = parsed
		}
	}
	if strings.EqualFold(firstString(obj, "type"), string(models.TransactionTypeIncome)) {
		r.Type = models.TransactionTypeIncome
	}
	return r, nil
}

func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func optionalString(obj map[string]any, keys ...string) *string {
	if s := firstString(obj, keys...); s != "" {
		return &s
	}
	return nil
}

func decimalValue(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), true
	case string:
		d, err := csvimport.ParseAmount(n)
		return d, err == nil
	}
	return decimal.Zero, false
}
