package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/ytlin/thsr-reminder/internal/models"
	"github.com/ytlin/thsr-reminder/internal/settings"
	"github.com/ytlin/thsr-reminder/pkg/reminder"
)

// Provider exposes the running service's state to the HTTP surface.
type Provider interface {
	Status() reminder.Status
	Schedule() []settings.ScheduleItem
	Alerts() []models.AlertInfo
}

// Handler handles HTTP requests
type Handler struct {
	provider Provider
}

// NewHandler creates a new HTTP handler
func NewHandler(provider Provider) *Handler {
	return &Handler{provider: provider}
}

// RegisterRoutes registers all routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/", h.handleIndex).Methods("GET")
	r.HandleFunc("/status", h.handleStatus).Methods("GET")
	r.HandleFunc("/schedule", h.handleSchedule).Methods("GET")
	r.HandleFunc("/alerts", h.handleAlerts).Methods("GET")
}

// Response wraps API responses
type Response struct {
	Data    interface{} `json:"data"`
	Updated string      `json:"updated,omitempty"`
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"title":  "thsr-reminder",
		"readme": "Visit https://github.com/ytlin/thsr-reminder for more info",
	}
	h.writeJSON(w, response)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := h.provider.Status()
	h.writeJSON(w, Response{
		Data:    status,
		Updated: status.LastTick.Format(time.RFC3339),
	})
}

func (h *Handler) handleSchedule(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, Response{
		Data:    h.provider.Schedule(),
		Updated: h.provider.Status().LastTick.Format(time.RFC3339),
	})
}

func (h *Handler) handleAlerts(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, Response{
		Data:    h.provider.Alerts(),
		Updated: h.provider.Status().LastRefresh.Format(time.RFC3339),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
