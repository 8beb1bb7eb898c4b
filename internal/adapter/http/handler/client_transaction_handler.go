package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/iho/clienttx/internal/adapter/http/dto"
	"github.com/iho/clienttx/internal/domain"
	"github.com/iho/clienttx/internal/usecase"
)

// ClientTransactionService is the use case surface the handler needs.
type ClientTransactionService interface {
	Submit(ctx context.Context, input usecase.SubmitInstructionInput) (*usecase.SubmitResult, error)
	GetBalances(ctx context.Context, key domain.ClientTransactionKey, at *time.Time) (domain.Balances, error)
	GetLatestUpdate(ctx context.Context, key domain.ClientTransactionKey) (*domain.ClientTransactionUpdate, error)
	GetEffects(ctx context.Context, key domain.ClientTransactionKey, at *time.Time) (*domain.ClientTransactionEffects, error)
	GetClientTransaction(ctx context.Context, key domain.ClientTransactionKey) (*usecase.Snapshot, error)
	ListByAccount(ctx context.Context, input usecase.ListByAccountInput) ([]*usecase.Snapshot, error)
}

// ClientTransactionHandler handles client transaction HTTP requests.
type ClientTransactionHandler struct {
	svc ClientTransactionService
}

// NewClientTransactionHandler creates a new ClientTransactionHandler.
func NewClientTransactionHandler(svc ClientTransactionService) *ClientTransactionHandler {
	return &ClientTransactionHandler{svc: svc}
}

func keyFromRequest(r *http.Request) domain.ClientTransactionKey {
	return domain.ClientTransactionKey{
		ClientTransactionID: chi.URLParam(r, "ctid"),
		AccountID:           chi.URLParam(r, "accountID"),
	}
}

// Submit applies a posting instruction batch.
func (h *ClientTransactionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	key := keyFromRequest(r)

	var req dto.SubmitInstructionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := dto.Validate(&req); err != nil {
		writeDomainError(w, "invalid request", err)
		return
	}

	input, err := req.ToUseCaseInput(key.ClientTransactionID, key.AccountID)
	if err != nil {
		writeDomainError(w, "instruction rejected", err)
		return
	}

	result, err := h.svc.Submit(r.Context(), input)
	if err != nil {
		writeDomainError(w, "instruction rejected", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SubmitFromUseCase(result))
}

// GetBalances returns cumulative balances, optionally as of ?at=.
func (h *ClientTransactionHandler) GetBalances(w http.ResponseWriter, r *http.Request) {
	key := keyFromRequest(r)

	at, err := parseTimeQuery(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	balances, err := h.svc.GetBalances(r.Context(), key, at)
	if err != nil {
		writeDomainError(w, "failed to get balances", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalancesResponse{
		ClientTransactionID: key.ClientTransactionID,
		AccountID:           key.AccountID,
		At:                  at,
		Balances:            dto.BalancesFromDomain(balances),
	})
}

// GetLatest returns the most recent update.
func (h *ClientTransactionHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	update, err := h.svc.GetLatestUpdate(r.Context(), keyFromRequest(r))
	if err != nil {
		writeDomainError(w, "failed to get latest update", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.UpdateFromDomain(*update))
}

// GetEffects returns authorised, settled and unsettled amounts.
func (h *ClientTransactionHandler) GetEffects(w http.ResponseWriter, r *http.Request) {
	key := keyFromRequest(r)

	at, err := parseTimeQuery(r, "at")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query", err.Error())
		return
	}

	effects, err := h.svc.GetEffects(r.Context(), key, at)
	if err != nil {
		writeDomainError(w, "failed to get effects", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.EffectsFromDomain(key, at, effects))
}

// Get returns a client transaction with its full history.
func (h *ClientTransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.GetClientTransaction(r.Context(), keyFromRequest(r))
	if err != nil {
		writeDomainError(w, "failed to get client transaction", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ClientTransactionFromSnapshot(snapshot))
}

// ListByAccount lists client transactions of an account.
func (h *ClientTransactionHandler) ListByAccount(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "missing account ID", "")
		return
	}

	snapshots, err := h.svc.ListByAccount(r.Context(), usecase.ListByAccountInput{
		AccountID: accountID,
		Limit:     parseIntQuery(r, "limit", usecase.DefaultPageSize),
		Offset:    parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeDomainError(w, "failed to list client transactions", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ClientTransactionsFromSnapshots(snapshots))
}
