package http

import (
	"net/http"
	"strings"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/repository"
)

type UserHandler struct {
	users repository.UserRepository
}

func NewUserHandler(users repository.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), claimsFrom(r.Context()).SubjectID())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, u)
}

type pushTokenRequest struct {
	Token string `json:"token"`
}

func (h *UserHandler) SetPushToken(w http.ResponseWriter, r *http.Request) {
	var req pushTokenRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		respondError(w, domain.ErrInvalidInput)
		return
	}
	if err := h.users.SetPushToken(r.Context(), claimsFrom(r.Context()).SubjectID(), req.Token); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}
