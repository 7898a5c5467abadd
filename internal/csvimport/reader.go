package csvimport

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/shopspring/decimal"

	"pennywise/internal/models"
)

const (
	maxLineBytes = 1 << 20
	// maxRowErrors caps how many skipped-row reasons are kept; Skipped still
	// counts all of them.
	maxRowErrors = 100
)

// Column positions for the bank export layout:
// Account,Post Date,Check,Description,Debit,Credit,Status,Balance
const (
	bankColDate        = 1
	bankColDescription = 3
	bankColDebit       = 4
	bankColCredit      = 5
	bankColBalance     = 7
	bankMinFields      = 4
)

// Column positions for the standard layout:
// date,description,amount[,category[,type]]
const (
	stdColDate        = 0
	stdColDescription = 1
	stdColAmount      = 2
	stdColCategory    = 3
	stdColType        = 4
	stdMinFields      = 3
)

// Draft is one parsed statement row, not yet persisted. Amount and
// RunningBalance are rounded to cents.
type Draft struct {
	Line           int
	Date           models.Date
	Description    string
	Amount         decimal.Decimal
	Type           models.TransactionType
	Category       string
	RunningBalance *decimal.Decimal
}

// Effect is the signed change the row would make to its account.
func (d Draft) Effect() decimal.Decimal {
	return models.Effect(d.Type, d.Amount)
}

// RowError explains why a line was skipped.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Reader streams drafts out of a statement. The first non-blank line is the
// header. Rows that cannot be parsed are counted and skipped; they never stop
// the read. Err only reports I/O failures.
//
//	r := csvimport.NewReader(file)
//	for r.Next() {
//		d := r.Draft()
//		...
//	}
//	if err := r.Err(); err != nil { ... }
type Reader struct {
	scanner    *bufio.Scanner
	headerRead bool
	header     string
	format     Format
	line       int

	current Draft
	err     error

	parsed    int
	skipped   int
	rowErrors []RowError

	balance     *decimal.Decimal
	balanceDate models.Date
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &Reader{scanner: sc, format: FormatStandard}
}

// Format returns the detected layout, reading the header if needed.
func (r *Reader) Format() Format {
	r.readHeader()
	return r.format
}

// HasHeader reports whether the input had any non-blank line at all.
func (r *Reader) HasHeader() bool {
	return r.readHeader()
}

func (r *Reader) readHeader() bool {
	if r.headerRead {
		return r.header != ""
	}
	r.headerRead = true
	for r.scanner.Scan() {
		r.line++
		text := strings.TrimPrefix(r.scanner.Text(), "\ufeff")
		if strings.TrimSpace(text) == "" {
			continue
		}
		r.header = text
		r.format = DetectFormat(text)
		return true
	}
	r.err = r.scanner.Err()
	return false
}

// Next advances to the next parseable row.
func (r *Reader) Next() bool {
	if !r.readHeader() {
		return false
	}
	for r.scanner.Scan() {
		r.line++
		text := r.scanner.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		draft, err := r.parseRow(text)
		if err != nil {
			r.skip(err)
			continue
		}
		r.observeBalance(draft)
		r.current = draft
		r.parsed++
		return true
	}
	if err := r.scanner.Err(); err != nil {
		r.err = err
	}
	return false
}

// Draft returns the row most recently read by Next.
func (r *Reader) Draft() Draft { return r.current }

// Err returns the first I/O error hit while reading.
func (r *Reader) Err() error { return r.err }

// Parsed is the number of rows returned so far.
func (r *Reader) Parsed() int { return r.parsed }

// Skipped is the number of data rows that could not be parsed.
func (r *Reader) Skipped() int { return r.skipped }

// RowErrors lists the reasons rows were skipped, up to a fixed cap.
func (r *Reader) RowErrors() []RowError { return r.rowErrors }

// RunningBalance returns the statement balance attached to the latest-dated
// row seen so far. When several rows share that date the later row wins.
func (r *Reader) RunningBalance() (decimal.Decimal, models.Date, bool) {
	if r.balance == nil {
		return decimal.Zero, models.Date{}, false
	}
	return *r.balance, r.balanceDate, true
}

// All adapts the reader to a range-over-func sequence.
func (r *Reader) All() iter.Seq[Draft] {
	return func(yield func(Draft) bool) {
		for r.Next() {
			if !yield(r.Draft()) {
				return
			}
		}
	}
}

func (r *Reader) skip(err error) {
	r.skipped++
	if len(r.rowErrors) < maxRowErrors {
		r.rowErrors = append(r.rowErrors, RowError{Line: r.line, Reason: err.Error()})
	}
}

func (r *Reader) observeBalance(d Draft) {
	if d.RunningBalance == nil {
		return
	}
	if r.balance == nil || !d.Date.Before(r.balanceDate) {
		b := *d.RunningBalance
		r.balance = &b
		r.balanceDate = d.Date
	}
}

func (r *Reader) parseRow(text string) (Draft, error) {
	fields := SplitLine(text)
	if r.format == FormatBankExport {
		return parseBankExportRow(r.line, fields)
	}
	return parseStandardRow(r.line, fields)
}

func parseBankExportRow(line int, fields []string) (Draft, error) {
	if len(fields) < bankMinFields {
		return Draft{}, fmt.Errorf("expected at least %d fields, got %d", bankMinFields, len(fields))
	}
	date, err := ParseDate(field(fields, bankColDate))
	if err != nil {
		return Draft{}, fmt.Errorf("post date: %w", err)
	}

	debit := amountOrZero(field(fields, bankColDebit)).Round(2)
	credit := amountOrZero(field(fields, bankColCredit)).Round(2)

	d := Draft{
		Line:        line,
		Date:        date,
		Description: field(fields, bankColDescription),
		Category:    models.DefaultCategory,
	}
	switch {
	case debit.IsPositive():
		d.Type = models.TransactionTypeExpense
		d.Amount = debit
	case credit.IsPositive():
		d.Type = models.TransactionTypeIncome
		d.Amount = credit
	default:
		return Draft{}, fmt.Errorf("no debit or credit amount of at least one cent")
	}

	if raw := field(fields, bankColBalance); raw != "" {
		if bal, err := ParseAmount(raw); err == nil {
			bal = bal.Round(2)
			d.RunningBalance = &bal
		}
	}
	return d, nil
}

func parseStandardRow(line int, fields []string) (Draft, error) {
	if len(fields) < stdMinFields {
		return Draft{}, fmt.Errorf("expected at least %d fields, got %d", stdMinFields, len(fields))
	}
	date, err := ParseDate(field(fields, stdColDate))
	if err != nil {
		return Draft{}, fmt.Errorf("date: %w", err)
	}
	amount, err := ParseAmount(field(fields, stdColAmount))
	if err != nil {
		return Draft{}, fmt.Errorf("amount: %w", err)
	}
	// Stored amounts are whole cents; rounding here keeps the balance net
	// equal to the sum of the rows as written.
	amount = amount.Abs().Round(2)
	if amount.IsZero() {
		return Draft{}, fmt.Errorf("amount rounds to zero")
	}

	typ := models.TransactionTypeExpense
	if strings.Contains(strings.ToLower(field(fields, stdColType)), "income") {
		typ = models.TransactionTypeIncome
	}

	return Draft{
		Line:        line,
		Date:        date,
		Description: field(fields, stdColDescription),
		Amount:      amount,
		Type:        typ,
		Category:    models.NormalizeCategory(field(fields, stdColCategory)),
	}, nil
}

// Batch is a fully read statement.
type Batch struct {
	Format             Format
	Drafts             []Draft
	Skipped            int
	RowErrors          []RowError
	RunningBalance     *decimal.Decimal
	RunningBalanceDate models.Date
}

// ReadAll reads the whole statement into memory.
func ReadAll(src io.Reader) (*Batch, error) {
	r := NewReader(src)
	b := &Batch{}
	for d := range r.All() {
		b.Drafts = append(b.Drafts, d)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	b.Format = r.Format()
	b.Skipped = r.Skipped()
	b.RowErrors = r.RowErrors()
	if bal, date, ok := r.RunningBalance(); ok {
		b.RunningBalance = &bal
		b.RunningBalanceDate = date
	}
	return b, nil
}
