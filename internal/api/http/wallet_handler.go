package http

import (
	"net/http"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/service"
)

type WalletHandler struct {
	wallets service.WalletService
}

func NewWalletHandler(wallets service.WalletService) *WalletHandler {
	return &WalletHandler{wallets: wallets}
}

type walletResponse struct {
	BalanceCents int64                `json:"balance_cents"`
	Entries      []domain.WalletEntry `json:"entries"`
}

func (h *WalletHandler) UserStatement(w http.ResponseWriter, r *http.Request) {
	h.statement(w, r, domain.OwnerTypeUser)
}

func (h *WalletHandler) ProviderStatement(w http.ResponseWriter, r *http.Request) {
	h.statement(w, r, domain.OwnerTypeProvider)
}

func (h *WalletHandler) statement(w http.ResponseWriter, r *http.Request, owner domain.OwnerType) {
	balance, entries, err := h.wallets.Statement(r.Context(), owner, claimsFrom(r.Context()).SubjectID())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, walletResponse{BalanceCents: balance, Entries: entries})
}

type confirmTopUpRequest struct {
	AmountCents int64  `json:"amount_cents"`
	Reference   string `json:"reference"`
}

func (h *WalletHandler) ConfirmTopUp(w http.ResponseWriter, r *http.Request) {
	var req confirmTopUpRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	balance, err := h.wallets.ConfirmTopUp(r.Context(), claimsFrom(r.Context()).SubjectID(), req.AmountCents, req.Reference)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"balance_cents": balance})
}

type payoutRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *WalletHandler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	payout, err := h.wallets.RequestPayout(r.Context(), claimsFrom(r.Context()).SubjectID(), req.AmountCents)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payout)
}
