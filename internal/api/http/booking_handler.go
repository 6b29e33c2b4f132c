package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/security"
	"github.com/ibndev/citystaff-backend/internal/service"
)

type BookingHandler struct {
	bookings service.BookingService
	dispatch service.DispatchService
}

func NewBookingHandler(bookings service.BookingService, dispatch service.DispatchService) *BookingHandler {
	return &BookingHandler{bookings: bookings, dispatch: dispatch}
}

type createBookingRequest struct {
	ServiceID      string   `json:"service_id"`
	Address        string   `json:"address"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	ScheduledAt    string   `json:"scheduled_at,omitempty"`
	SelectedAddons []string `json:"selected_addons,omitempty"`
	Notes          string   `json:"notes,omitempty"`
	PromoCode      string   `json:"promo_code,omitempty"`
	PaymentMethod  string   `json:"payment_method"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	in := service.CreateBookingInput{
		UserID:         claimsFrom(r.Context()).SubjectID(),
		ServiceID:      req.ServiceID,
		Address:        req.Address,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		SelectedAddons: req.SelectedAddons,
		Notes:          req.Notes,
		PromoCode:      req.PromoCode,
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
	}
	if req.ScheduledAt != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledAt)
		if err != nil {
			respondError(w, domain.ErrInvalidInput)
			return
		}
		in.ScheduledAt = &t
	}
	booking, err := h.bookings.Create(r.Context(), in)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, booking)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookings.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	claims := claimsFrom(r.Context())
	// A booking is visible to its customer, its assigned provider and admins.
	switch {
	case claims.Role == security.RoleAdmin:
	case booking.UserID == claims.SubjectID():
	case booking.ProviderID != nil && *booking.ProviderID == claims.SubjectID():
	default:
		respondError(w, domain.ErrNotFound)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

type bookingListResponse struct {
	Bookings []domain.Booking `json:"bookings"`
	Total    int32            `json:"total"`
	Page     int32            `json:"page"`
}

func pagination(r *http.Request) (page, pageSize int32) {
	page, pageSize = 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = int32(v)
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && v > 0 && v <= 100 {
		pageSize = int32(v)
	}
	return page, pageSize
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	status := domain.BookingStatus(r.URL.Query().Get("status"))
	bookings, total, err := h.bookings.ListForUser(r.Context(), claimsFrom(r.Context()).SubjectID(), status, page, pageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bookingListResponse{Bookings: bookings, Total: total, Page: page})
}

func (h *BookingHandler) ListForProvider(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	status := domain.BookingStatus(r.URL.Query().Get("status"))
	bookings, total, err := h.bookings.ListForProvider(r.Context(), claimsFrom(r.Context()).SubjectID(), status, page, pageSize)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bookingListResponse{Bookings: bookings, Total: total, Page: page})
}

type cancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelBookingRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	booking, err := h.bookings.Cancel(r.Context(), mux.Vars(r)["id"], claimsFrom(r.Context()).SubjectID(), req.Reason)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

type rateBookingRequest struct {
	Rating int32  `json:"rating"`
	Review string `json:"review,omitempty"`
}

func (h *BookingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req rateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := h.bookings.Rate(r.Context(), mux.Vars(r)["id"], claimsFrom(r.Context()).SubjectID(), req.Rating, req.Review); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "rated"})
}

// Provider-side booking lifecycle.

func (h *BookingHandler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	booking, err := h.dispatch.AcceptOffer(r.Context(), mux.Vars(r)["id"], claimsFrom(r.Context()).SubjectID())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	if err := h.dispatch.DeclineOffer(r.Context(), mux.Vars(r)["id"], claimsFrom(r.Context()).SubjectID()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

func (h *BookingHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.bookings.Start(r.Context(), mux.Vars(r)["id"], claimsFrom(r.Context()).SubjectID()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": string(domain.BookingStatusInProgress)})
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookings.Complete(r.Context(), mux.Vars(r)["id"], claimsFrom(r.Context()).SubjectID())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, booking)
}
