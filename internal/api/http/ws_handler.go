package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ibndev/citystaff-backend/internal/domain"
	"github.com/ibndev/citystaff-backend/internal/logger"
	"github.com/ibndev/citystaff-backend/internal/realtime"
	"github.com/ibndev/citystaff-backend/internal/security"
	"github.com/ibndev/citystaff-backend/internal/service"
)

type WSHandler struct {
	hub       *realtime.Hub
	tokens    security.TokenManager
	providers service.ProviderService
	dispatch  service.DispatchService
	upgrader  websocket.Upgrader
}

// NewWSHandler upgrades authenticated connections into the hub and routes
// inbound provider frames (location_update, dispatch_response) into the
// matching services.
func NewWSHandler(hub *realtime.Hub, tokens security.TokenManager, providers service.ProviderService, dispatch service.DispatchService, allowedOrigins []string) *WSHandler {
	h := &WSHandler{
		hub:       hub,
		tokens:    tokens,
		providers: providers,
		dispatch:  dispatch,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
	hub.SetMessageHandler(h.handleInbound)
	return h
}

func (h *WSHandler) handleInbound(c *realtime.Client, msg realtime.Inbound) {
	if c.Role != realtime.RoleProvider {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	switch msg.Action {
	case "location_update":
		var loc struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Heading   float64 `json:"heading"`
			Speed     float64 `json:"speed"`
		}
		if err := json.Unmarshal(msg.Data, &loc); err != nil {
			return
		}
		err := h.providers.UpdateLocation(ctx, &domain.Location{
			ProviderID: c.ID,
			Latitude:   loc.Latitude,
			Longitude:  loc.Longitude,
			Heading:    loc.Heading,
			Speed:      loc.Speed,
		})
		if err != nil {
			logger.Warn("socket location update failed", "provider_id", c.ID, "error", err)
		}
	case "dispatch_response":
		var resp struct {
			BookingID string `json:"booking_id"`
			Response  string `json:"response"`
		}
		if err := json.Unmarshal(msg.Data, &resp); err != nil || resp.BookingID == "" {
			return
		}
		var err error
		switch resp.Response {
		case "accept":
			_, err = h.dispatch.AcceptOffer(ctx, resp.BookingID, c.ID)
		case "decline":
			err = h.dispatch.DeclineOffer(ctx, resp.BookingID, c.ID)
		default:
			return
		}
		if err != nil {
			logger.Warn("socket dispatch response failed",
				"provider_id", c.ID, "booking_id", resp.BookingID, "response", resp.Response, "error", err)
		}
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		_, ok := set[r.Header.Get("Origin")]
		return ok
	}
}

func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondJSON(w, http.StatusUnauthorized, apiError{Error: "missing token"})
		return
	}
	claims, err := h.tokens.ValidateToken(token)
	if err != nil || claims.Type != security.TokenTypeAccess {
		respondJSON(w, http.StatusUnauthorized, apiError{Error: "invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	role := realtime.RoleUser
	if claims.Role == security.RoleProvider {
		role = realtime.RoleProvider
	}
	h.hub.Attach(conn, role, claims.SubjectID())
}
