package dto

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/clienttx/internal/domain"
)

func validRequest() *SubmitInstructionRequest {
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.FixedZone("CET", 3600))
	return &SubmitInstructionRequest{
		InstructionType: "InboundAuthorisation",
		AtDatetime:      &at,
		Postings: []PostingRequest{{
			AccountID:    "acc-1",
			Amount:       decimal.RequireFromString("12.50"),
			Denomination: "GBP",
			Credit:       true,
			Phase:        "pending_in",
		}},
	}
}

func TestSubmitInstructionRequest_ToUseCaseInput(t *testing.T) {
	req := validRequest()

	got, err := req.ToUseCaseInput("ctx-1", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.ClientTransactionID != "ctx-1" || got.AccountID != "acc-1" {
		t.Fatalf("unexpected key: %+v", got)
	}
	if got.InstructionType != domain.InstructionInboundAuthorisation {
		t.Fatalf("unexpected instruction type %s", got.InstructionType)
	}
	if got.AtDatetime.Location() != time.UTC || !got.AtDatetime.Equal(*req.AtDatetime) {
		t.Fatalf("expected UTC timestamp equal to input, got %v", got.AtDatetime)
	}
	if len(got.Postings) != 1 {
		t.Fatalf("expected 1 posting, got %d", len(got.Postings))
	}

	p := got.Postings[0]
	if p.AccountAddress != domain.DefaultAddress || p.Asset != domain.DefaultAsset {
		t.Fatalf("expected default address and asset, got %q %q", p.AccountAddress, p.Asset)
	}
	if p.Phase != domain.PhasePendingIn || !p.Amount.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected posting %+v", p)
	}
}

func TestSubmitInstructionRequest_ToUseCaseInputErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *SubmitInstructionRequest)
		want   error
	}{
		{
			name:   "unknown instruction type",
			mutate: func(r *SubmitInstructionRequest) { r.InstructionType = "Teleport" },
			want:   domain.ErrUnknownInstructionType,
		},
		{
			name:   "unknown phase",
			mutate: func(r *SubmitInstructionRequest) { r.Postings[0].Phase = "settled" },
			want:   domain.ErrInvalidPhase,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			_, err := req.ToUseCaseInput("ctx-1", "acc-1")
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPostingRequest_CustomAddressAndAsset(t *testing.T) {
	req := PostingRequest{
		AccountID:      "acc-1",
		Amount:         decimal.NewFromInt(5),
		Denomination:   "USD",
		Phase:          "committed",
		AccountAddress: "INTEREST",
		Asset:          "POINTS",
	}

	p, err := req.ToDomain()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AccountAddress != "INTEREST" || p.Asset != "POINTS" {
		t.Fatalf("expected custom address and asset, got %q %q", p.AccountAddress, p.Asset)
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(validRequest()); err != nil {
		t.Fatalf("expected valid request, got %v", err)
	}

	req := validRequest()
	req.InstructionType = ""
	req.Postings[0].Phase = "settled"

	err := Validate(req)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}

	for _, field := range []string{"instruction_type", "postings[0].phase"} {
		if _, ok := vErr.Fields[field]; !ok {
			t.Fatalf("expected %s to be reported, got %v", field, vErr.Fields)
		}
	}

	// Batch-level rules belong to the sequencing validator, which reports
	// them with stable rejection codes.
	incomplete := validRequest()
	incomplete.AtDatetime = nil
	incomplete.Postings[0].AccountID = ""
	if err := Validate(incomplete); err != nil {
		t.Fatalf("expected missing timestamp and account to pass DTO validation, got %v", err)
	}

	empty := validRequest()
	empty.Postings = nil
	if err := Validate(empty); err != nil {
		t.Fatalf("expected empty postings to pass DTO validation, got %v", err)
	}
}

func TestSubmitInstructionRequest_ToUseCaseInputMissingTimestamp(t *testing.T) {
	req := validRequest()
	req.AtDatetime = nil

	got, err := req.ToUseCaseInput("ctx-1", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.AtDatetime.IsZero() {
		t.Fatalf("expected zero timestamp, got %s", got.AtDatetime)
	}
}
