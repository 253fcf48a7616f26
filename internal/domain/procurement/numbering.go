package procurement

import (
	"context"
	"fmt"
	"time"
)

// DocumentType identifies a numbered document series.
type DocumentType string

const (
	DocumentPurchaseOrder DocumentType = "purchase_order"
	DocumentInvoice       DocumentType = "invoice"
)

// Prefix returns the number prefix of the series.
func (t DocumentType) Prefix() string {
	switch t {
	case DocumentPurchaseOrder:
		return "PO"
	case DocumentInvoice:
		return "INV"
	}
	return ""
}

// IsValid checks if the document type is a known value
func (t DocumentType) IsValid() bool {
	return t.Prefix() != ""
}

// NumberSequence is an atomic increment-and-read counter per (type, year).
// Implementations must be linearizable: concurrent callers never observe the same value.
type NumberSequence interface {
	Next(ctx context.Context, docType DocumentType, year int) (int64, error)
}

// FormatDocumentNumber renders <PREFIX>-<year>-<6-digit sequence>.
func FormatDocumentNumber(docType DocumentType, year int, seq int64) string {
	return fmt.Sprintf("%s-%d-%06d", docType.Prefix(), year, seq)
}

// NumberingAuthority issues unique human-readable document numbers.
type NumberingAuthority struct {
	seq   NumberSequence
	clock func() time.Time
}

// NewNumberingAuthority creates a NumberingAuthority backed by seq.
func NewNumberingAuthority(seq NumberSequence) *NumberingAuthority {
	return &NumberingAuthority{seq: seq, clock: time.Now}
}

// WithClock overrides the clock used to pick the year.
func (a *NumberingAuthority) WithClock(clock func() time.Time) *NumberingAuthority {
	a.clock = clock
	return a
}

// NextNumber returns the next number of the series for the given year.
func (a *NumberingAuthority) NextNumber(ctx context.Context, docType DocumentType, year int) (string, error) {
	if !docType.IsValid() {
		return "", validationError("unknown document type: %s", docType)
	}
	if year < 1 {
		return "", validationError("invalid numbering year: %d", year)
	}
	seq, err := a.seq.Next(ctx, docType, year)
	if err != nil {
		return "", fmt.Errorf("failed to advance %s counter: %w", docType, err)
	}
	return FormatDocumentNumber(docType, year, seq), nil
}

// NextNumberNow returns the next number for the current year.
func (a *NumberingAuthority) NextNumberNow(ctx context.Context, docType DocumentType) (string, error) {
	return a.NextNumber(ctx, docType, a.clock().Year())
}
