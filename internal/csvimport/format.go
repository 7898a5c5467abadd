// Package csvimport turns uploaded bank statement text into transaction
// drafts. It has no store or network dependency: callers decide what to do
// with the drafts (duplicate filtering, insertion, balance reconciliation).
package csvimport

import (
	"encoding/csv"
	"strings"
)

// Format identifies which column layout a statement uses.
type Format string

const (
	// FormatStandard is date,description,amount[,category[,type]].
	FormatStandard Format = "standard"
	// FormatBankExport is a bank download with Post Date, Debit and Credit columns.
	FormatBankExport Format = "bank_export"
)

// DetectFormat inspects a header line. A header mentioning "post date" together
// with "debit" or "credit" is a bank export; anything else is parsed as standard.
func DetectFormat(header string) Format {
	h := strings.ToLower(header)
	if strings.Contains(h, "post date") && (strings.Contains(h, "debit") || strings.Contains(h, "credit")) {
		return FormatBankExport
	}
	return FormatStandard
}

// SplitLine splits one line on commas, except commas inside a double-quoted
// value. Returned fields are trimmed and unquoted with "" collapsed to ".
// Lines the CSV reader rejects are split on every comma instead, and each
// piece is unquoted by hand.
func SplitLine(line string) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	fields, err := r.Read()
	if err != nil {
		fields = strings.Split(line, ",")
		for i, f := range fields {
			fields[i] = unquote(f)
		}
		return fields
	}
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
		s = strings.TrimSpace(s)
	}
	return s
}

// field returns fields[i], or "" when the row is too short.
func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
