package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/logger"
)

type apiError struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("response encode failed", "error", err)
	}
}

// respondError maps domain sentinels onto HTTP statuses. Unknown errors
// become 500 with a generic message; details stay in the log.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, apiError{Error: "not found"})
	case errors.Is(err, domain.ErrInvalidInput):
		respondJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
	case errors.Is(err, domain.ErrInsufficientBalance):
		respondJSON(w, http.StatusPaymentRequired, apiError{Error: "insufficient wallet balance"})
	case errors.Is(err, domain.ErrOfferExpiredOrInvalid):
		respondJSON(w, http.StatusConflict, apiError{Error: "offer is no longer available"})
	case errors.Is(err, domain.ErrBookingUnavailable):
		respondJSON(w, http.StatusConflict, apiError{Error: "booking was already taken"})
	case errors.Is(err, domain.ErrNotCancellable):
		respondJSON(w, http.StatusConflict, apiError{Error: "booking can no longer be cancelled"})
	case errors.Is(err, domain.ErrInvalidTransition):
		respondJSON(w, http.StatusConflict, apiError{Error: "booking is not in the right state"})
	case errors.Is(err, domain.ErrAlreadyRated):
		respondJSON(w, http.StatusConflict, apiError{Error: "booking was already rated"})
	default:
		logger.Error("request failed", "error", err)
		respondJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}
