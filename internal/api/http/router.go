// Package http exposes the REST and websocket surface of the backend.
package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ibndev/citystaff-backend/internal/security"
)

type RouterDeps struct {
	Bookings      *BookingHandler
	Providers     *ProviderHandler
	Wallets       *WalletHandler
	Notifications *NotificationHandler
	Settings      *SettingsHandler
	Users         *UserHandler
	WS            *WSHandler
	Tokens        security.TokenManager
}

func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// The websocket endpoint bypasses the instrumented subrouters; the
	// status recorder wrapper does not implement http.Hijacker.
	r.HandleFunc("/ws", d.WS.Serve).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(instrumentMiddleware)

	api.HandleFunc("/settings/public", d.Settings.Public).Methods(http.MethodGet)

	user := api.NewRoute().Subrouter()
	user.Use(authMiddleware(d.Tokens, security.RoleUser))
	user.HandleFunc("/me", d.Users.Me).Methods(http.MethodGet)
	user.HandleFunc("/me/push-token", d.Users.SetPushToken).Methods(http.MethodPost)
	user.HandleFunc("/bookings", d.Bookings.Create).Methods(http.MethodPost)
	user.HandleFunc("/bookings", d.Bookings.ListMine).Methods(http.MethodGet)
	user.HandleFunc("/bookings/{id}/cancel", d.Bookings.Cancel).Methods(http.MethodPost)
	user.HandleFunc("/bookings/{id}/rate", d.Bookings.Rate).Methods(http.MethodPost)
	user.HandleFunc("/wallet", d.Wallets.UserStatement).Methods(http.MethodGet)
	user.HandleFunc("/wallet/topup/confirm", d.Wallets.ConfirmTopUp).Methods(http.MethodPost)
	user.HandleFunc("/providers/{id}/location", d.Providers.LastLocation).Methods(http.MethodGet)

	provider := api.PathPrefix("/provider").Subrouter()
	provider.Use(authMiddleware(d.Tokens, security.RoleProvider))
	provider.HandleFunc("/profile", d.Providers.Profile).Methods(http.MethodGet)
	provider.HandleFunc("/profile", d.Providers.UpdateProfile).Methods(http.MethodPut)
	provider.HandleFunc("/availability", d.Providers.SetAvailability).Methods(http.MethodPost)
	provider.HandleFunc("/location", d.Providers.UpdateLocation).Methods(http.MethodPost)
	provider.HandleFunc("/services", d.Providers.ReplaceServices).Methods(http.MethodPut)
	provider.HandleFunc("/earnings", d.Providers.Earnings).Methods(http.MethodGet)
	provider.HandleFunc("/bookings", d.Bookings.ListForProvider).Methods(http.MethodGet)
	provider.HandleFunc("/offers/{id}/accept", d.Bookings.AcceptOffer).Methods(http.MethodPost)
	provider.HandleFunc("/offers/{id}/decline", d.Bookings.DeclineOffer).Methods(http.MethodPost)
	provider.HandleFunc("/bookings/{id}/start", d.Bookings.Start).Methods(http.MethodPost)
	provider.HandleFunc("/bookings/{id}/complete", d.Bookings.Complete).Methods(http.MethodPost)
	provider.HandleFunc("/wallet", d.Wallets.ProviderStatement).Methods(http.MethodGet)
	provider.HandleFunc("/wallet/payout", d.Wallets.RequestPayout).Methods(http.MethodPost)

	// Shared read endpoints, visibility enforced in the handler.
	shared := api.NewRoute().Subrouter()
	shared.Use(authMiddleware(d.Tokens))
	shared.HandleFunc("/bookings/{id}", d.Bookings.Get).Methods(http.MethodGet)
	shared.HandleFunc("/notifications", d.Notifications.List).Methods(http.MethodGet)
	shared.HandleFunc("/notifications/{id}/read", d.Notifications.MarkAsRead).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(authMiddleware(d.Tokens, security.RoleAdmin))
	admin.HandleFunc("/settings", d.Settings.Update).Methods(http.MethodPut)

	return r
}
