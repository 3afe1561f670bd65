package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fincasa/fincasa/internal/domain"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"entry not found", domain.ErrEntryNotFound, http.StatusNotFound},
		{"series not found", domain.ErrSeriesNotFound, http.StatusNotFound},
		{"account not found", domain.ErrAccountNotFound, http.StatusNotFound},
		{"category not found", domain.ErrCategoryNotFound, http.StatusNotFound},
		{"unauthorized", domain.ErrUnauthorized, http.StatusForbidden},
		{"concurrency conflict", domain.ErrConcurrencyConflict, http.StatusConflict},
		{"invalid transition", domain.ErrInvalidTransition, http.StatusConflict},
		{"invalid recurrence", domain.ErrInvalidRecurrence, http.StatusBadRequest},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid period", domain.ErrInvalidPeriod, http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped domain error", errors.Join(errors.New("ctx"), domain.ErrEntryNotFound), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.want {
				t.Errorf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestParseDateQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=2025-03-01", nil)

	got, err := parseDateQuery(req, "from")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestParseDateQueryMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := parseDateQuery(req, "from")
	if err == nil {
		t.Fatal("expected error for missing parameter")
	}
}

func TestParseDateQueryMalformed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?from=03%2F01%2F2025", nil)

	_, err := parseDateQuery(req, "from")
	if err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestParseIntQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"present", "/?limit=25", 25},
		{"absent uses default", "/", 50},
		{"malformed uses default", "/?limit=abc", 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if got := parseIntQuery(req, "limit", 50); got != tt.want {
				t.Errorf("parseIntQuery = %d, want %d", got, tt.want)
			}
		})
	}
}
