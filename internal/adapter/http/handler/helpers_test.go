package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/iho/clienttx/internal/adapter/http/dto"
	"github.com/iho/clienttx/internal/domain"
	"github.com/iho/clienttx/internal/usecase"
)

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/client-transactions?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/client-transactions?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestParseTimeQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/balances", nil)
	at, err := parseTimeQuery(req, "at")
	if err != nil || at != nil {
		t.Fatalf("expected nil time when missing, got %v %v", at, err)
	}

	req = httptest.NewRequest(http.MethodGet, "/balances?at=2026-01-02T03:04:05%2B01:00", nil)
	at, err = parseTimeQuery(req, "at")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := time.Date(2026, 1, 2, 2, 4, 5, 0, time.UTC)
	if !at.Equal(want) || at.Location() != time.UTC {
		t.Fatalf("expected %v, got %v", want, at)
	}

	req = httptest.NewRequest(http.MethodGet, "/balances?at=yesterday", nil)
	if _, err := parseTimeQuery(req, "at"); err == nil {
		t.Fatalf("expected error for invalid timestamp")
	}
}

func TestMapDomainError(t *testing.T) {
	rejection := &domain.SubmissionError{
		ClientTransactionID: "ctx-1",
		AccountID:           "acc-1",
		InstructionType:     domain.InstructionSettlement,
		Err:                 domain.ErrBackdating,
	}

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", domain.ErrClientTransactionNotFound, http.StatusNotFound},
		{"missing identifier", usecase.ErrMissingIdentifier, http.StatusBadRequest},
		{"validation", &dto.ValidationError{Fields: map[string]string{"postings": "is required"}}, http.StatusBadRequest},
		{"sequencing rejection", rejection, http.StatusUnprocessableEntity},
		{"wrapped unknown type", fmt.Errorf("parse: %w", domain.ErrUnknownInstructionType), http.StatusUnprocessableEntity},
		{"mixed dimensions", domain.ErrMixedBalanceDimensions, http.StatusUnprocessableEntity},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDomainError(tt.err); got != tt.expected {
				t.Fatalf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestWriteDomainErrorIncludesCode(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, "instruction rejected", &domain.SubmissionError{Err: domain.ErrAlreadyFinalised})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}

	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if resp.Code != "ALREADY_FINALISED" || resp.Error != "instruction rejected" {
		t.Fatalf("unexpected response %+v", resp)
	}
}
