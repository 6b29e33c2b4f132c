package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/service"
)

type ProviderHandler struct {
	providers service.ProviderService
}

func NewProviderHandler(providers service.ProviderService) *ProviderHandler {
	return &ProviderHandler{providers: providers}
}

func (h *ProviderHandler) Profile(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Profile(r.Context(), claimsFrom(r.Context()).SubjectID())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type updateProfileRequest struct {
	FullName        string `json:"full_name,omitempty"`
	Email           string `json:"email,omitempty"`
	AvatarURL       string `json:"avatar_url,omitempty"`
	Bio             string `json:"bio,omitempty"`
	BankName        string `json:"bank_name,omitempty"`
	BankAccountNo   string `json:"bank_account_no,omitempty"`
	BankAccountName string `json:"bank_account_name,omitempty"`
	BankCode        string `json:"bank_code,omitempty"`
}

func (h *ProviderHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	p := &domain.Provider{
		ID:              claimsFrom(r.Context()).SubjectID(),
		FullName:        req.FullName,
		Email:           req.Email,
		AvatarURL:       req.AvatarURL,
		Bio:             req.Bio,
		BankName:        req.BankName,
		BankAccountNo:   req.BankAccountNo,
		BankAccountName: req.BankAccountName,
		BankCode:        req.BankCode,
	}
	if err := h.providers.UpdateProfile(r.Context(), p); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type availabilityRequest struct {
	Available *bool `json:"available,omitempty"`
	Online    *bool `json:"online,omitempty"`
}

func (h *ProviderHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Available == nil && req.Online == nil {
		respondError(w, domain.ErrInvalidInput)
		return
	}
	id := claimsFrom(r.Context()).SubjectID()
	if req.Available != nil {
		if err := h.providers.SetAvailability(r.Context(), id, *req.Available); err != nil {
			respondError(w, err)
			return
		}
	}
	if req.Online != nil {
		if err := h.providers.SetOnline(r.Context(), id, *req.Online); err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Heading   float64 `json:"heading,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
}

func (h *ProviderHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		respondError(w, domain.ErrInvalidInput)
		return
	}
	loc := &domain.Location{
		ProviderID: claimsFrom(r.Context()).SubjectID(),
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		Heading:    req.Heading,
		Speed:      req.Speed,
	}
	if err := h.providers.UpdateLocation(r.Context(), loc); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type replaceServicesRequest struct {
	ServiceIDs []string `json:"service_ids"`
}

func (h *ProviderHandler) ReplaceServices(w http.ResponseWriter, r *http.Request) {
	var req replaceServicesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.providers.ReplaceServices(r.Context(), claimsFrom(r.Context()).SubjectID(), req.ServiceIDs); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type earningsResponse struct {
	Summary      *domain.EarningsSummary `json:"summary"`
	BalanceCents int64                   `json:"balance_cents"`
}

func (h *ProviderHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	summary, balance, err := h.providers.Earnings(r.Context(), claimsFrom(r.Context()).SubjectID())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, earningsResponse{Summary: summary, BalanceCents: balance})
}

// LastLocation lets a customer poll the assigned provider's position as a
// fallback when the websocket is unavailable.
func (h *ProviderHandler) LastLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.providers.LastLocation(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, loc)
}
