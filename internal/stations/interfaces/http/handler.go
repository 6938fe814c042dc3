package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	alerts "venue-timers/internal/alerts/domain"
	"venue-timers/internal/audit"
	"venue-timers/internal/auth"
	sessionsapp "venue-timers/internal/sessions/application"
	stations "venue-timers/internal/stations/domain"
	timers "venue-timers/internal/timers/domain"
)

const pathPrefix = "/api/v1/stations"

// Catalog lists configured stations.
type Catalog interface {
	Get(id string) (stations.Station, error)
	List() []stations.Station
}

// Timers is the timer engine surface exposed over HTTP.
type Timers interface {
	Snapshot(stationID string) (timers.TimerState, error)
	SetDuration(ctx context.Context, stationID string, minutes int) (timers.TimerState, error)
	Start(ctx context.Context, stationID string, kind timers.PaymentKind) (timers.TimerState, error)
	Extend(ctx context.Context, stationID string, minutes int, kind timers.PaymentKind) (timers.TimerState, error)
	Adjust(ctx context.Context, stationID string, deltaMinutes int) (timers.TimerState, error)
	Stop(ctx context.Context, stationID string) (timers.TimerState, error)
	Reset(ctx context.Context, stationID string) (timers.TimerState, error)
}

// Closer runs the closeout workflow.
type Closer interface {
	Closeout(ctx context.Context, stationID string, reset bool) (sessionsapp.CloseoutResult, error)
}

// Alarms reads and acknowledges station alarms.
type Alarms interface {
	Active(stationID string) (alerts.Phase, bool)
	StopAlarm(ctx context.Context, stationID string) bool
}

// StationView is a catalog entry with its live timer.
type StationView struct {
	stations.Station
	Timer timers.TimerState `json:"timer"`
	Alarm alerts.Phase      `json:"alarm,omitempty"`
}

// Handler serves station endpoints.
type Handler struct {
	catalog Catalog
	timers  Timers
	closer  Closer
	alarms  Alarms
	queue   http.Handler
	audit   audit.Logger
	logger  zerolog.Logger
}

// Option customizes the handler.
type Option func(*Handler)

// WithQueueHandler serves /api/v1/stations/{id}/queue... with h.
func WithQueueHandler(h http.Handler) Option {
	return func(s *Handler) {
		s.queue = h
	}
}

// WithAuditLogger records successful mutations.
func WithAuditLogger(logger audit.Logger) Option {
	return func(s *Handler) {
		s.audit = logger
	}
}

// WithLogger assigns a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Handler) {
		s.logger = logger
	}
}

// NewHandler constructs a Handler.
func NewHandler(catalog Catalog, t Timers, closer Closer, alarms Alarms, opts ...Option) (*Handler, error) {
	if catalog == nil {
		return nil, errors.New("stations handler: nil catalog")
	}
	if t == nil {
		return nil, errors.New("stations handler: nil timers")
	}
	if closer == nil {
		return nil, errors.New("stations handler: nil closer")
	}
	if alarms == nil {
		return nil, errors.New("stations handler: nil alarms")
	}
	h := &Handler{catalog: catalog, timers: t, closer: closer, alarms: alarms, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// ServeHTTP routes station requests.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, pathPrefix), "/")
	if path == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleList(w)
		return
	}
	parts := strings.Split(path, "/")
	stationID := parts[0]

	if len(parts) >= 2 && parts[1] == "queue" {
		if h.queue == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.queue.ServeHTTP(w, r)
		return
	}
	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleGet(w, stationID)
		return
	}
	if len(parts) != 2 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	switch parts[1] {
	case "duration":
		h.handleDuration(w, r, stationID)
	case "start":
		h.handleStart(w, r, stationID)
	case "extend":
		h.handleExtend(w, r, stationID)
	case "adjust":
		h.handleAdjust(w, r, stationID)
	case "stop":
		h.respondState(w, r, stationID, "stop", nil)(h.timers.Stop(r.Context(), stationID))
	case "reset":
		h.respondState(w, r, stationID, "reset", nil)(h.timers.Reset(r.Context(), stationID))
	case "close":
		h.handleClose(w, r, stationID)
	case "alarm-stop":
		h.handleAlarmStop(w, r, stationID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter) {
	list := h.catalog.List()
	out := make([]StationView, 0, len(list))
	for _, st := range list {
		state, err := h.timers.Snapshot(st.ID)
		if err != nil {
			state = timers.NewIdleState(st.ID)
		}
		out = append(out, h.view(st, state))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleGet(w http.ResponseWriter, stationID string) {
	st, err := h.catalog.Get(stationID)
	if err != nil {
		writeError(w, err)
		return
	}
	state, err := h.timers.Snapshot(stationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(st, state))
}

func (h *Handler) handleDuration(w http.ResponseWriter, r *http.Request, stationID string) {
	var req struct {
		Minutes int `json:"minutes"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respondState(w, r, stationID, "set_duration", req)(h.timers.SetDuration(r.Context(), stationID, req.Minutes))
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request, stationID string) {
	var req struct {
		PaymentKind string `json:"payment_kind"`
	}
	if !decode(w, r, &req) {
		return
	}
	kind, ok := paymentKind(w, req.PaymentKind)
	if !ok {
		return
	}
	h.respondState(w, r, stationID, "start", req)(h.timers.Start(r.Context(), stationID, kind))
}

func (h *Handler) handleExtend(w http.ResponseWriter, r *http.Request, stationID string) {
	var req struct {
		Minutes     int    `json:"minutes"`
		PaymentKind string `json:"payment_kind"`
	}
	if !decode(w, r, &req) {
		return
	}
	kind, ok := paymentKind(w, req.PaymentKind)
	if !ok {
		return
	}
	h.respondState(w, r, stationID, "extend", req)(h.timers.Extend(r.Context(), stationID, req.Minutes, kind))
}

func (h *Handler) handleAdjust(w http.ResponseWriter, r *http.Request, stationID string) {
	var req struct {
		DeltaMinutes int `json:"delta_minutes"`
	}
	if !decode(w, r, &req) {
		return
	}
	h.respondState(w, r, stationID, "adjust", req)(h.timers.Adjust(r.Context(), stationID, req.DeltaMinutes))
}

func (h *Handler) handleClose(w http.ResponseWriter, r *http.Request, stationID string) {
	var req struct {
		Reset bool `json:"reset"`
	}
	if !decode(w, r, &req) {
		return
	}
	result, err := h.closer.Closeout(r.Context(), stationID, req.Reset)
	if err != nil {
		writeError(w, err)
		return
	}
	meta := map[string]any{"reset": req.Reset}
	if result.Overtime != nil {
		meta["overtime_minutes"] = result.Overtime.OvertimeMinutes
	}
	h.logAudit(r, stationID, result.State.SessionID, "close", meta)
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAlarmStop(w http.ResponseWriter, r *http.Request, stationID string) {
	if _, err := h.catalog.Get(stationID); err != nil {
		writeError(w, err)
		return
	}
	stopped := h.alarms.StopAlarm(r.Context(), stationID)
	if stopped {
		h.logAudit(r, stationID, "", "alarm_stop", nil)
	}
	writeJSON(w, http.StatusOK, map[string]any{"station_id": stationID, "stopped": stopped})
}

// respondState writes the outcome of a timer operation.
func (h *Handler) respondState(w http.ResponseWriter, r *http.Request, stationID, action string, meta any) func(timers.TimerState, error) {
	return func(state timers.TimerState, err error) {
		if err != nil {
			writeError(w, err)
			return
		}
		h.logAudit(r, stationID, state.SessionID, action, meta)
		writeJSON(w, http.StatusOK, state)
	}
}

func (h *Handler) view(st stations.Station, state timers.TimerState) StationView {
	v := StationView{Station: st, Timer: state}
	if phase, ok := h.alarms.Active(st.ID); ok {
		v.Alarm = phase
	}
	return v
}

func (h *Handler) logAudit(r *http.Request, stationID, sessionID, action string, meta any) {
	if h.audit == nil {
		return
	}
	var payload []byte
	if meta != nil {
		payload, _ = json.Marshal(meta)
	}
	err := h.audit.Log(r.Context(), audit.Entry{
		Actor:     auth.SubjectFromContext(r.Context()),
		Role:      string(auth.RoleFromContext(r.Context())),
		Action:    action,
		StationID: stationID,
		SessionID: sessionID,
		Metadata:  payload,
		IP:        audit.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("station_id", stationID).Str("action", action).Msg("audit log failed")
	}
}

func paymentKind(w http.ResponseWriter, raw string) (timers.PaymentKind, bool) {
	kind, err := timers.ParsePaymentKind(raw)
	if err != nil {
		writeError(w, err)
		return "", false
	}
	if kind == timers.PaymentPrepaid {
		http.Error(w, "prepaid is reserved for queue promotion", http.StatusBadRequest)
		return "", false
	}
	return kind, true
}

// decode reads an optional JSON body; an empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		return true
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, timers.ErrUnknownStation), errors.Is(err, stations.ErrStationNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, timers.ErrUnauthorizedAdjustment):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, timers.ErrInvalidTransition), errors.Is(err, timers.ErrNoDuration):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, timers.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
