package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/boddenberg/categorizer-go/internal/domain"

	"github.com/gocarina/gocsv"
)

const dateLayout = "2006-01-02"

// transactionRow is one line of a transaction CSV. The categorization
// columns are filled on output.
type transactionRow struct {
	ID          string  `csv:"id,omitempty"`
	Date        string  `csv:"date,omitempty"`
	Description string  `csv:"description"`
	Merchant    string  `csv:"merchant,omitempty"`
	Amount      float64 `csv:"amount"`
	Currency    string  `csv:"currency,omitempty"`
	Type        string  `csv:"type,omitempty"`
	Category    string  `csv:"category,omitempty"`
	Confidence  float64 `csv:"confidence"`
	DedupHash   string  `csv:"dedup_hash,omitempty"`
}

func readRows(r io.Reader) ([]transactionRow, error) {
	var rows []transactionRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return rows, nil
}

func readRowsFile(path string) ([]transactionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readRows(f)
}

func writeRows(w io.Writer, rows []transactionRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func (r transactionRow) date() (time.Time, error) {
	if r.Date == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, strings.TrimSpace(r.Date))
	if err != nil {
		return time.Time{}, fmt.Errorf("row %q: date must be YYYY-MM-DD: %w", r.Description, err)
	}
	return t, nil
}

// categorizeInput maps the row to a request. Currency defaults to ARS.
func (r transactionRow) categorizeInput() (domain.CategorizeInput, error) {
	when, err := r.date()
	if err != nil {
		return domain.CategorizeInput{}, err
	}
	in := domain.CategorizeInput{
		Description:     r.Description,
		Merchant:        r.Merchant,
		Amount:          r.Amount,
		Currency:        domain.Currency(strings.ToUpper(strings.TrimSpace(r.Currency))),
		TransactionType: domain.TransactionType(strings.ToLower(strings.TrimSpace(r.Type))),
	}
	if in.Currency == "" {
		in.Currency = domain.CurrencyARS
	}
	if !when.IsZero() {
		in.When = &when
	}
	return in, nil
}

func (r transactionRow) transaction() (domain.Transaction, error) {
	when, err := r.date()
	if err != nil {
		return domain.Transaction{}, err
	}
	return domain.Transaction{
		ID:          r.ID,
		Date:        when,
		Amount:      r.Amount,
		Description: r.Description,
		Merchant:    r.Merchant,
		Category:    r.Category,
		Type:        domain.TransactionType(strings.ToLower(strings.TrimSpace(r.Type))),
	}, nil
}
