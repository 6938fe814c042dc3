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

	queueapp "venue-timers/internal/queue/application"
	queue "venue-timers/internal/queue/domain"
	sessionsapp "venue-timers/internal/sessions/application"
	stations "venue-timers/internal/stations/domain"
	timers "venue-timers/internal/timers/domain"
)

type fixedTimers map[string]int64

func (f fixedTimers) RemainingMs(stationID string) (int64, timers.Status, error) {
	return f[stationID], timers.StatusRunning, nil
}

type stubPromoter struct {
	err   error
	calls int
}

func (s *stubPromoter) Promote(_ context.Context, stationID string) (sessionsapp.PromoteResult, error) {
	s.calls++
	if s.err != nil {
		return sessionsapp.PromoteResult{}, s.err
	}
	return sessionsapp.PromoteResult{State: timers.TimerState{StationID: stationID, Status: timers.StatusRunning}}, nil
}

func newTestHandler(t *testing.T, promoter *stubPromoter) (*Handler, *queueapp.Manager) {
	t.Helper()
	reg, err := stations.NewRegistry([]stations.Station{
		{ID: "room-1", Name: "Room 1", Category: stations.CategoryRoom, RatePerHour: 90},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 19, 0, 0, 0, time.UTC))
	manager, err := queueapp.NewManager(reg, fixedTimers{"room-1": 600_000}, queueapp.WithClock(clock))
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	h, err := NewHandler(manager, promoter)
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return h, manager
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func TestEnqueueAndEstimate(t *testing.T) {
	h, _ := newTestHandler(t, &stubPromoter{})

	rec := do(h, http.MethodPost, "/api/v1/stations/room-1/queue", `{"name":"Ana","reserved_hours":2}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402 without prepayment, got %d", rec.Code)
	}
	rec = do(h, http.MethodPost, "/api/v1/stations/room-1/queue", `{"name":"Ana","reserved_hours":2,"prepayment_confirmed":true,"payment_kind":"card","amount":180}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(h, http.MethodPost, "/api/v1/stations/room-1/queue", `{"name":"Bo","reserved_hours":1,"prepayment_confirmed":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("enqueue: %d", rec.Code)
	}

	rec = do(h, http.MethodGet, "/api/v1/stations/room-1/queue", "")
	var estimates []queue.Estimate
	if err := json.NewDecoder(rec.Body).Decode(&estimates); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(estimates) != 2 {
		t.Fatalf("expected 2 estimates, got %d", len(estimates))
	}
	if estimates[0].EstimatedWaitMs != 600_000+queue.DefaultCleanupBufferMs {
		t.Fatalf("unexpected first wait %d", estimates[0].EstimatedWaitMs)
	}
	if estimates[1].EstimatedWaitMs != estimates[0].EstimatedWaitMs+2*queue.MsPerHour+queue.DefaultCleanupBufferMs {
		t.Fatalf("unexpected second wait %d", estimates[1].EstimatedWaitMs)
	}

	rec = do(h, http.MethodGet, "/api/v1/stations/nope/queue", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDequeueAndPromote(t *testing.T) {
	promoter := &stubPromoter{}
	h, manager := newTestHandler(t, promoter)
	entry, err := manager.Enqueue(context.Background(), "room-1", "Ana", 1, queueapp.Admission{PrepaymentConfirmed: true})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	rec := do(h, http.MethodDelete, "/api/v1/stations/room-1/queue/"+entry.ID, "")
	if rec.Code != http.StatusOK || len(manager.List("room-1")) != 0 {
		t.Fatalf("dequeue: %d", rec.Code)
	}
	rec = do(h, http.MethodDelete, "/api/v1/stations/room-1/queue/"+entry.ID, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second dequeue, got %d", rec.Code)
	}

	rec = do(h, http.MethodPost, "/api/v1/stations/room-1/queue/promote", "")
	if rec.Code != http.StatusOK || promoter.calls != 1 {
		t.Fatalf("promote: %d", rec.Code)
	}
	promoter.err = sessionsapp.ErrStationBusy
	rec = do(h, http.MethodPost, "/api/v1/stations/room-1/queue/promote", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}
