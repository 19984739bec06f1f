package web

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/cexll/homework-bot/internal/history"
	"github.com/cexll/homework-bot/internal/poller"
)

// StatusProvider exposes the poller state
type StatusProvider interface {
	Snapshot() poller.Snapshot
}

// Handler serves health, status and notification history endpoints
type Handler struct {
	status  StatusProvider
	history *history.Store
}

// NewHandler creates a new web handler
func NewHandler(status StatusProvider, hist *history.Store) *Handler {
	return &Handler{status: status, history: hist}
}

// Router returns a router with all routes registered
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes registers the routes on r
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/status", h.handleStatus).Methods("GET")
	r.HandleFunc("/notifications", h.handleNotificationList).Methods("GET")
	r.HandleFunc("/notifications/{id}", h.handleNotificationDetail).Methods("GET")
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Snapshot())
}

func (h *Handler) handleNotificationList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		Notifications []*history.Notification `json:"notifications"`
	}{
		Notifications: h.history.List(),
	})
}

func (h *Handler) handleNotificationDetail(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	n, ok := h.history.Get(id)
	if !ok {
		http.Error(w, "Notification not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
