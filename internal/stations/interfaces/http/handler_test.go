package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	alerts "venue-timers/internal/alerts/domain"
	"venue-timers/internal/audit"
	"venue-timers/internal/auth"
	"venue-timers/internal/eventing"
	sessionsapp "venue-timers/internal/sessions/application"
	stations "venue-timers/internal/stations/domain"
	timersapp "venue-timers/internal/timers/application"
	timers "venue-timers/internal/timers/domain"
)

type stubCloser struct{ resets []bool }

func (s *stubCloser) Closeout(_ context.Context, stationID string, reset bool) (sessionsapp.CloseoutResult, error) {
	s.resets = append(s.resets, reset)
	return sessionsapp.CloseoutResult{State: timers.TimerState{StationID: stationID, Status: timers.StatusStopped}}, nil
}

type stubAlarms struct{ active map[string]alerts.Phase }

func (s *stubAlarms) Active(id string) (alerts.Phase, bool) {
	p, ok := s.active[id]
	return p, ok
}

func (s *stubAlarms) StopAlarm(_ context.Context, id string) bool {
	_, ok := s.active[id]
	delete(s.active, id)
	return ok
}

type memAudit struct{ entries []audit.Entry }

func (m *memAudit) Log(_ context.Context, e audit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}

type fixture struct {
	handler *Handler
	closer  *stubCloser
	alarms  *stubAlarms
	audit   *memAudit
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	reg, err := stations.NewRegistry([]stations.Station{
		{ID: "table-1", Name: "Table 1", Category: stations.CategoryTable, RatePerHour: 40},
		{ID: "ps-1", Name: "Console 1", Category: stations.CategoryConsole, RatePerHour: 30},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	engine, err := timersapp.NewEngine(reg, eventing.NewInMemoryBus(),
		timersapp.WithClock(clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC))),
		timersapp.WithAdminGate(auth.ContextGate{}),
	)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	f := fixture{
		closer: &stubCloser{},
		alarms: &stubAlarms{active: map[string]alerts.Phase{}},
		audit:  &memAudit{},
	}
	queue := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	f.handler, err = NewHandler(reg, engine, f.closer, f.alarms, WithAuditLogger(f.audit), WithQueueHandler(queue))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return f
}

func (f fixture) do(method, path, body string, role auth.Role) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{Subject: "desk-1", Role: role}))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) timers.TimerState {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var state timers.TimerState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return state
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)

	state := decodeState(t, f.do(http.MethodPost, "/api/v1/stations/table-1/duration", `{"minutes":90}`, auth.RoleOperator))
	if state.DurationMs != 90*timers.MsPerMinute || state.Status != timers.StatusIdle {
		t.Fatalf("unexpected state after duration %+v", state)
	}
	state = decodeState(t, f.do(http.MethodPost, "/api/v1/stations/table-1/start", `{"payment_kind":"card"}`, auth.RoleOperator))
	if state.Status != timers.StatusRunning || state.PaidAmount != 60 || state.SessionID == "" {
		t.Fatalf("unexpected state after start %+v", state)
	}
	state = decodeState(t, f.do(http.MethodPost, "/api/v1/stations/table-1/extend", `{"minutes":30,"payment_kind":"deferred"}`, auth.RoleOperator))
	if state.UnpaidAmount != 20 || state.RemainingMs != 120*timers.MsPerMinute {
		t.Fatalf("unexpected state after extend %+v", state)
	}
	state = decodeState(t, f.do(http.MethodPost, "/api/v1/stations/table-1/stop", "", auth.RoleOperator))
	if state.Status != timers.StatusStopped {
		t.Fatalf("expected stopped, got %s", state.Status)
	}
	state = decodeState(t, f.do(http.MethodPost, "/api/v1/stations/table-1/reset", "", auth.RoleOperator))
	if state.Status != timers.StatusIdle {
		t.Fatalf("expected idle, got %s", state.Status)
	}

	if len(f.audit.entries) != 5 {
		t.Fatalf("expected 5 audit entries, got %d", len(f.audit.entries))
	}
	if e := f.audit.entries[1]; e.Action != "start" || e.Actor != "desk-1" || e.Role != "operator" || e.SessionID == "" {
		t.Fatalf("unexpected audit entry %+v", e)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name   string
		path   string
		body   string
		role   auth.Role
		status int
	}{
		{"start without duration", "/api/v1/stations/table-1/start", "", auth.RoleOperator, http.StatusConflict},
		{"stop idle", "/api/v1/stations/table-1/stop", "", auth.RoleOperator, http.StatusConflict},
		{"zero minutes", "/api/v1/stations/table-1/duration", `{"minutes":0}`, auth.RoleOperator, http.StatusBadRequest},
		{"more than a day", "/api/v1/stations/table-1/duration", `{"minutes":1441}`, auth.RoleOperator, http.StatusBadRequest},
		{"bad payment kind", "/api/v1/stations/table-1/start", `{"payment_kind":"iou"}`, auth.RoleOperator, http.StatusBadRequest},
		{"prepaid reserved", "/api/v1/stations/table-1/start", `{"payment_kind":"prepaid"}`, auth.RoleOperator, http.StatusBadRequest},
		{"bad json", "/api/v1/stations/table-1/duration", `{`, auth.RoleOperator, http.StatusBadRequest},
		{"adjust as operator", "/api/v1/stations/table-1/adjust", `{"delta_minutes":5}`, auth.RoleOperator, http.StatusForbidden},
		{"unknown station", "/api/v1/stations/bar-9/duration", `{"minutes":5}`, auth.RoleOperator, http.StatusNotFound},
		{"unknown action", "/api/v1/stations/table-1/pause", "", auth.RoleOperator, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(http.MethodPost, tc.path, tc.body, tc.role)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d (%s)", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
	if len(f.audit.entries) != 0 {
		t.Fatalf("failed actions must not be audited: %+v", f.audit.entries)
	}
}

func TestAdminAdjust(t *testing.T) {
	f := newFixture(t)
	decodeState(t, f.do(http.MethodPost, "/api/v1/stations/ps-1/duration", `{"minutes":60}`, auth.RoleOperator))
	decodeState(t, f.do(http.MethodPost, "/api/v1/stations/ps-1/start", "", auth.RoleOperator))

	state := decodeState(t, f.do(http.MethodPost, "/api/v1/stations/ps-1/adjust", `{"delta_minutes":-57}`, auth.RoleAdmin))
	if state.RemainingMs != 3*timers.MsPerMinute || state.Status != timers.StatusWarning {
		t.Fatalf("unexpected adjusted state %+v", state)
	}
}

func TestListCloseAndAlarmStop(t *testing.T) {
	f := newFixture(t)
	f.alarms.active["ps-1"] = alerts.PhaseFinished

	rec := f.do(http.MethodGet, "/api/v1/stations", "", auth.RoleViewer)
	var views []StationView
	if err := json.NewDecoder(rec.Body).Decode(&views); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(views) != 2 || views[1].ID != "ps-1" || views[1].Alarm != alerts.PhaseFinished || views[0].Timer.Status != timers.StatusIdle {
		t.Fatalf("unexpected views %+v", views)
	}

	rec = f.do(http.MethodGet, "/api/v1/stations/ps-1", "", auth.RoleViewer)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d", rec.Code)
	}
	rec = f.do(http.MethodGet, "/api/v1/stations/ghost", "", auth.RoleViewer)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = f.do(http.MethodPost, "/api/v1/stations/ps-1/alarm-stop", "", auth.RoleOperator)
	var ack map[string]any
	_ = json.NewDecoder(rec.Body).Decode(&ack)
	if ack["stopped"] != true {
		t.Fatalf("expected alarm stopped, got %v", ack)
	}

	rec = f.do(http.MethodPost, "/api/v1/stations/ps-1/close", `{"reset":true}`, auth.RoleOperator)
	if rec.Code != http.StatusOK || len(f.closer.resets) != 1 || !f.closer.resets[0] {
		t.Fatalf("close: %d %v", rec.Code, f.closer.resets)
	}

	rec = f.do(http.MethodGet, "/api/v1/stations/ps-1/queue", "", auth.RoleViewer)
	if rec.Code != http.StatusTeapot {
		t.Fatalf("queue routes must be delegated, got %d", rec.Code)
	}
}
