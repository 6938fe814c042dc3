package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	alerts "venue-timers/internal/alerts/domain"
)

// AlarmService lists and acknowledges station alarms.
type AlarmService interface {
	List() []alerts.AlarmView
	StopAlarm(ctx context.Context, stationID string) bool
}

// Handler provides alarm HTTP endpoints.
type Handler struct {
	service AlarmService
}

// NewHandler constructs a handler.
func NewHandler(service AlarmService) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alarms handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/alarms and /api/v1/alarms/{stationId}/ack.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/alarms":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h.service.List())
	case strings.HasPrefix(r.URL.Path, "/api/v1/alarms/"):
		h.handleAck(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleAck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/v1/alarms/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "ack" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	stopped := h.service.StopAlarm(r.Context(), parts[0])
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"station_id": parts[0], "stopped": stopped})
}
