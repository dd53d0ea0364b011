package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestUniqueSKU(t *testing.T) {
	tests := []struct {
		name  string
		base  string
		taken map[string]bool
		want  string
	}{
		{name: "free", base: "FLT-01", taken: map[string]bool{}, want: "FLT-01"},
		{name: "first suffix", base: "FLT", taken: map[string]bool{"FLT": true}, want: "FLT-2"},
		{name: "prefix before dash", base: "FLT-01", taken: map[string]bool{"FLT-01": true}, want: "FLT-2"},
		{name: "skips taken suffixes", base: "OIL", taken: map[string]bool{"OIL": true, "OIL-2": true, "OIL-3": true}, want: "OIL-4"},
		{name: "empty base", base: "  ", taken: map[string]bool{}, want: "SKU"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := uniqueSKU(tt.base, func(candidate string) (bool, error) {
				return tt.taken[candidate], nil
			})
			if err != nil {
				t.Fatalf("uniqueSKU: %v", err)
			}
			if got != tt.want {
				t.Fatalf("uniqueSKU(%q) = %q, want %q", tt.base, got, tt.want)
			}
		})
	}
}

func TestUniqueSKUPropagatesLookupError(t *testing.T) {
	boom := errors.New("boom")
	_, err := uniqueSKU("A", func(string) (bool, error) { return false, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}

func TestClientLabel(t *testing.T) {
	tests := []struct {
		name, phone, document string
		want                  string
	}{
		{"Ana", "11 9999-0000", "123", "Ana - 11 9999-0000 - 123"},
		{"Ana", "", "123", "Ana - 123"},
		{"Ana", "", "", "Ana"},
	}
	for _, tt := range tests {
		if got := clientLabel(tt.name, tt.phone, tt.document); got != tt.want {
			t.Errorf("clientLabel(%q, %q, %q) = %q, want %q", tt.name, tt.phone, tt.document, got, tt.want)
		}
	}
}

func TestNormalizePaging(t *testing.T) {
	if got := normalizeLimit(0); got != 200 {
		t.Errorf("normalizeLimit(0) = %d", got)
	}
	if got := normalizeLimit(5000); got != 1000 {
		t.Errorf("normalizeLimit(5000) = %d", got)
	}
	if got := normalizeLimit(15); got != 15 {
		t.Errorf("normalizeLimit(15) = %d", got)
	}
	if got := normalizeOffset(-3); got != 0 {
		t.Errorf("normalizeOffset(-3) = %d", got)
	}
	if got := likePattern("  pneu "); got != "%pneu%" {
		t.Errorf("likePattern = %q", got)
	}
	if got := likePattern("   "); got != "" {
		t.Errorf("likePattern(blank) = %q", got)
	}
}

func TestMapWriteError(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505", Detail: "Key (name) already exists."})
	if err := mapWriteError(unique); !errors.Is(err, ErrConflict) {
		t.Fatalf("23505 should map to ErrConflict, got %v", err)
	}
	fk := &pgconn.PgError{Code: "23503", Detail: "Key (client_id)=(9) is not present."}
	if err := mapWriteError(fk); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("23503 should map to ErrInvalidReference, got %v", err)
	}
	other := errors.New("timeout")
	if err := mapWriteError(other); err != other {
		t.Fatalf("other errors should pass through, got %v", err)
	}
}

func TestParseOptionalDate(t *testing.T) {
	got, err := parseOptionalDate(nil)
	if err != nil || got != nil {
		t.Fatalf("nil date: got %v, %v", got, err)
	}
	blank := " "
	if got, err := parseOptionalDate(&blank); err != nil || got != nil {
		t.Fatalf("blank date: got %v, %v", got, err)
	}
	value := "2024-02-29"
	parsed, err := parseOptionalDate(&value)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Format("2006-01-02") != value {
		t.Fatalf("parsed %v", parsed)
	}
	bad := "29/02/2024"
	if _, err := parseOptionalDate(&bad); err == nil {
		t.Fatal("expected error for non ISO date")
	}
}
