package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/finvault/vaultledger/internal/adapter/http/dto"
	"github.com/finvault/vaultledger/internal/domain"
	"github.com/finvault/vaultledger/internal/usecase"
)

// VaultQueryService defines the read behavior needed by VaultHandler.
type VaultQueryService interface {
	GetVaultState(ctx context.Context, vaultID string) (*domain.VaultState, error)
	GetUserHolding(ctx context.Context, vaultID, userID string) (*domain.UserHolding, error)
	GetAssetHolding(ctx context.Context, vaultID, asset, account string) (*domain.AssetHolding, error)
}

// ReconciliationService defines the reconciliation behavior needed by
// VaultHandler.
type ReconciliationService interface {
	ReconcileVault(ctx context.Context, vaultID string) (*usecase.VaultReconciliation, error)
}

// VaultHandler handles vault state HTTP requests.
type VaultHandler struct {
	queryUC     VaultQueryService
	reconcileUC ReconciliationService
}

// NewVaultHandler creates a new VaultHandler.
func NewVaultHandler(queryUC VaultQueryService, reconcileUC ReconciliationService) *VaultHandler {
	return &VaultHandler{
		queryUC:     queryUC,
		reconcileUC: reconcileUC,
	}
}

// GetState retrieves a vault's materialized aggregate.
func (h *VaultHandler) GetState(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if vaultID == "" {
		writeError(w, http.StatusBadRequest, "missing vault ID", "")
		return
	}

	state, err := h.queryUC.GetVaultState(r.Context(), vaultID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get vault state", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.VaultStateFromDomain(state))
}

// GetUserHolding retrieves one user's holding in a vault.
func (h *VaultHandler) GetUserHolding(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	userID := chi.URLParam(r, "userID")
	if vaultID == "" || userID == "" {
		writeError(w, http.StatusBadRequest, "missing vault or user ID", "")
		return
	}

	holding, err := h.queryUC.GetUserHolding(r.Context(), vaultID, userID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get user holding", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.UserHoldingFromDomain(holding))
}

// GetAssetHolding retrieves a vault's position in one asset account.
func (h *VaultHandler) GetAssetHolding(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	asset := chi.URLParam(r, "asset")
	if vaultID == "" || asset == "" {
		writeError(w, http.StatusBadRequest, "missing vault ID or asset", "")
		return
	}

	account := r.URL.Query().Get("account")

	holding, err := h.queryUC.GetAssetHolding(r.Context(), vaultID, asset, account)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to get asset holding", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.AssetHoldingFromDomain(holding))
}

// Reconcile recomputes the vault aggregate from the full ledger and compares
// it with the stored row.
func (h *VaultHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	vaultID := chi.URLParam(r, "vaultID")
	if vaultID == "" {
		writeError(w, http.StatusBadRequest, "missing vault ID", "")
		return
	}

	result, err := h.reconcileUC.ReconcileVault(r.Context(), vaultID)
	if err != nil {
		writeError(w, mapDomainError(err), "failed to reconcile vault", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromDomain(result))
}
