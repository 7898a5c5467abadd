package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"pennywise/internal/models"
	"pennywise/internal/store"
)

// ExportHeader is the first row of every export.
var ExportHeader = []string{"Date", "Type", "Category", "Amount", "Description", "Account", "Notes"}

// exportStore is what the export service reads.
type exportStore interface {
	ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]models.Transaction, error)
	ListAccounts(ctx context.Context, userID string) ([]models.Account, error)
}

// exportService writes transaction history as CSV.
type exportService struct {
	store exportStore
}

// NewExportService creates a new ExportServicer.
func NewExportService(s exportStore) ExportServicer {
	return &exportService{store: s}
}

// ExportCSV writes the header and one row per matching transaction, newest
// first, and returns the number of rows written. Description and notes are
// always quoted.
func (s *exportService) ExportCSV(ctx context.Context, userID string, filter TransactionFilter, w io.Writer) (int, error) {
	txs, err := s.store.ListTransactions(ctx, userID, filter)
	if err != nil {
		return 0, err
	}
	accounts, err := s.store.ListAccounts(ctx, userID)
	if err != nil {
		return 0, err
	}
	names := make(map[string]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}

	if err := writeExportRow(w, ExportHeader, nil); err != nil {
		return 0, err
	}
	for i := range txs {
		t := &txs[i]
		account := ""
		if t.AccountID != nil {
			account = names[*t.AccountID]
		}
		row := []string{
			t.Date.String(),
			string(t.Type),
			t.Category,
			t.Amount.StringFixed(2),
			t.DescriptionText(),
			account,
			t.NotesText(),
		}
		if err := writeExportRow(w, row, alwaysQuoted); err != nil {
			return i, err
		}
	}
	return len(txs), nil
}

// alwaysQuoted marks the Description and Notes columns.
var alwaysQuoted = map[int]bool{4: true, 6: true}

// writeExportRow writes one CRLF-free line. Columns in forceQuote are quoted
// unconditionally; the rest are quoted only when they need it.
func writeExportRow(w io.Writer, fields []string, forceQuote map[int]bool) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		if forceQuote[i] {
			b.WriteString(quote(f))
			continue
		}
		b.WriteString(csvField(f))
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write export row: %w", err)
	}
	return nil
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// csvField renders a field the way encoding/csv would.
func csvField(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	cw := csv.NewWriter(&b)
	_ = cw.Write([]string{s})
	cw.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}
