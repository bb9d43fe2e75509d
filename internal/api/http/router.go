package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the HTTP surface. Code-store and admin routes are
// only mounted when this instance owns a local backing store.
func NewRouter(events *EventHandler, codes *CodeHandler, admin *AdminHandler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/events", events.HandleEvent).Methods(http.MethodPost)

	if codes != nil {
		r.HandleFunc("/api/v1/codes/redeem", codes.HandleRedeem).Methods(http.MethodPost)
	}
	if admin != nil {
		r.HandleFunc("/api/v1/admin/codes", admin.HandleMintCodes).Methods(http.MethodPost)
		r.HandleFunc("/api/v1/admin/codes/stats", admin.HandleCodeStats).Methods(http.MethodGet)
	}

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	return r
}
