package csvimport

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pennywise/internal/models"
)

// dateLayouts are tried in order. Slash dates are read month first.
var dateLayouts = []string{
	models.DateLayout,
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"1-2-2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-06",
	"20060102",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
}

var errEmptyValue = errors.New("empty value")

// ParseDate reads a statement date in any of the supported layouts and
// normalizes it to a calendar day. Time of day and zone are discarded.
func ParseDate(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Date{}, errEmptyValue
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return models.NewDate(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("unrecognized date %q", s)
}

var amountCleaner = strings.NewReplacer(",", "", "$", "", "€", "", "£", "", " ", "", "+", "")

// ParseAmount reads a decimal amount. Currency symbols and thousands
// separators are ignored; a value wrapped in parentheses is negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = amountCleaner.Replace(s)
	if s == "" {
		return decimal.Zero, errEmptyValue
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("non-numeric amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// amountOrZero parses s and treats anything unparseable as zero.
func amountOrZero(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
