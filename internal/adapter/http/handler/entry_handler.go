package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finvault/vaultledger/internal/adapter/http/dto"
	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

// LedgerService defines the write behavior needed by EntryHandler.
type LedgerService interface {
	Append(ctx context.Context, input usecase.AppendEntryInput) (*domain.LedgerEntry, error)
	ReverseEntry(ctx context.Context, input usecase.ReverseEntryInput) (*domain.LedgerEntry, error)
}

// EntryQueryService defines the read behavior needed by EntryHandler.
type EntryQueryService interface {
	GetEntry(ctx context.Context, id string) (*domain.LedgerEntry, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
}

// EntryHandler handles ledger entry HTTP requests.
type EntryHandler struct {
	ledgerUC LedgerService
	queryUC  EntryQueryService
	retrier  usecase.Retrier
}

// NewEntryHandler creates a new EntryHandler.
func NewEntryHandler(ledgerUC LedgerService, queryUC EntryQueryService) *EntryHandler {
	return &EntryHandler{
		ledgerUC: ledgerUC,
		queryUC:  queryUC,
	}
}

// WithRetrier retries appends that lose a scope-lock race. The ledger core
// itself never retries; the retry policy lives here at the edge.
func (h *EntryHandler) WithRetrier(retrier usecase.Retrier) *EntryHandler {
	h.retrier = retrier
	return h
}

// Append appends a new entry to a vault's ledger.
func (h *EntryHandler) Append(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if vaultID == "" {
		writeError(w, http.StatusBadRequest, "missing vault ID", "")
		return
	}

	var req dto.AppendEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	entry, err := h.append(r.Context(), req.ToUseCaseInput(vaultID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to append entry", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Reverse appends a reversal of a committed entry.
func (h *EntryHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	entryID := chi.URLParam(r, "id")
	if entryID == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	var req dto.ReverseEntryRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	entry, err := h.ledgerUC.ReverseEntry(r.Context(), req.ToUseCaseInput(entryID))
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reverse entry", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, dto.EntryFromDomain(entry))
}

// Get retrieves an entry by ID.
func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing entry ID", "")
		return
	}

	entry, err := h.queryUC.GetEntry(r.Context(), id)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get entry", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.EntryFromDomain(entry))
}

// Reject answers every update or delete attempt on a committed entry.
// Corrections go through Reverse.
func (h *EntryHandler) Reject(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusConflict, "entry is immutable", domain.ErrImmutableEntry.Error())
}

// ListByVault lists a vault's entries. Optional query parameters narrow the
// listing to a user scope (user_id) or an asset scope (asset and account).
func (h *EntryHandler) ListByVault(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if vaultID == "" {
		writeError(w, http.StatusBadRequest, "missing vault ID", "")
		return
	}

	scope := domain.VaultScope(vaultID)
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		scope = domain.UserScope(vaultID, userID)
	} else if asset := r.URL.Query().Get("asset"); asset != "" {
		scope = domain.AssetScope(vaultID, asset, r.URL.Query().Get("account"))
	}

	entries, err := h.queryUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		Scope:            scope,
		IncludeReversals: parseBoolQuery(r, "include_reversals"),
		Limit:            parseIntQuery(r, "limit", 0),
		Offset:           parseIntQuery(r, "offset", 0),
	})
	if err != nil {
		writeError(w, mapDomainError(err), "failed to list entries", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Total:   int64(len(entries)),
	})
}

func (h *EntryHandler) append(ctx context.Context, input usecase.AppendEntryInput) (*domain.LedgerEntry, error) {
	if h.retrier == nil {
		return h.ledgerUC.Append(ctx, input)
	}

	var entry *domain.LedgerEntry
	err := h.retrier.Retry(ctx, func() error {
		var err error
		entry, err = h.ledgerUC.Append(ctx, input)
		return err
	})

	return entry, err
}
