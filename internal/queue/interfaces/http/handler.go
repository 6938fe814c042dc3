package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	queueapp "venue-timers/internal/queue/application"
	queue "venue-timers/internal/queue/domain"
	sessionsapp "venue-timers/internal/sessions/application"
	stations "venue-timers/internal/stations/domain"
	timers "venue-timers/internal/timers/domain"
)

// Queue is the waiting list surface exposed over HTTP.
type Queue interface {
	Enqueue(ctx context.Context, stationID, name string, reservedHours int, admission queueapp.Admission) (queue.Entry, error)
	Dequeue(ctx context.Context, stationID, entryID string) (queue.Entry, error)
	Estimates(stationID string) ([]queue.Estimate, error)
}

// Promoter starts the head of a queue.
type Promoter interface {
	Promote(ctx context.Context, stationID string) (sessionsapp.PromoteResult, error)
}

// Handler serves /api/v1/stations/{id}/queue endpoints.
type Handler struct {
	queue    Queue
	promoter Promoter
}

// NewHandler constructs a handler.
func NewHandler(q Queue, promoter Promoter) (*Handler, error) {
	if q == nil {
		return nil, errors.New("queue handler: nil queue")
	}
	if promoter == nil {
		return nil, errors.New("queue handler: nil promoter")
	}
	return &Handler{queue: q, promoter: promoter}, nil
}

// ServeHTTP routes queue requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/stations/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] != "queue" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	stationID := parts[0]

	switch {
	case len(parts) == 2 && r.Method == http.MethodGet:
		h.handleList(w, stationID)
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.handleEnqueue(w, r, stationID)
	case len(parts) == 3 && parts[2] == "promote" && r.Method == http.MethodPost:
		h.handlePromote(w, r, stationID)
	case len(parts) == 3 && r.Method == http.MethodDelete:
		h.handleDequeue(w, r, stationID, parts[2])
	case len(parts) <= 3:
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, stationID string) {
	estimates, err := h.queue.Estimates(stationID)
	if err != nil {
		writeError(w, err)
		return
	}
	if estimates == nil {
		estimates = []queue.Estimate{}
	}
	writeJSON(w, http.StatusOK, estimates)
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request, stationID string) {
	var req struct {
		Name                string  `json:"name"`
		ReservedHours       int     `json:"reserved_hours"`
		PrepaymentConfirmed bool    `json:"prepayment_confirmed"`
		PaymentKind         string  `json:"payment_kind"`
		Amount              float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	entry, err := h.queue.Enqueue(r.Context(), stationID, req.Name, req.ReservedHours, queueapp.Admission{
		PrepaymentConfirmed: req.PrepaymentConfirmed,
		PaymentKind:         req.PaymentKind,
		Amount:              req.Amount,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (h *Handler) handleDequeue(w http.ResponseWriter, r *http.Request, stationID, entryID string) {
	entry, err := h.queue.Dequeue(r.Context(), stationID, entryID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *Handler) handlePromote(w http.ResponseWriter, r *http.Request, stationID string) {
	result, err := h.promoter.Promote(r.Context(), stationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, stations.ErrStationNotFound), errors.Is(err, timers.ErrUnknownStation),
		errors.Is(err, queue.ErrEntryNotFound), errors.Is(err, queue.ErrQueueEmpty):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, queue.ErrPrepaymentRequired):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, queue.ErrEmptyName), errors.Is(err, queue.ErrInvalidHours), errors.Is(err, timers.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, sessionsapp.ErrStationBusy), errors.Is(err, timers.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
