package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	overtime "venue-timers/internal/overtime/domain"
)

type stubReader struct {
	summary overtime.Summary
	err     error
	asked   string
}

func (s *stubReader) Summary(_ context.Context, periodKey string) (overtime.Summary, error) {
	s.asked = periodKey
	if s.err != nil {
		return overtime.Summary{}, s.err
	}
	return s.summary, nil
}

func newTestHandler(t *testing.T, reader *stubReader) *Handler {
	t.Helper()
	h, err := NewHandler(reader, clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)))
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h
}

func TestOvertimeSummary(t *testing.T) {
	reader := &stubReader{summary: overtime.Summarize("20260301", []overtime.Record{
		{Key: "s1", StationID: "table-1", StationName: "Table 1", SessionID: "s1", OvertimeMinutes: 4, Source: overtime.SourceCloseout, PeriodKey: "20260301"},
	})}
	h := newTestHandler(t, reader)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overtime?period=20260301", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if reader.asked != "20260301" {
		t.Fatalf("period not forwarded: %q", reader.asked)
	}
	var got overtime.Summary
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.TotalMinutes != 4 || len(got.Stations) != 1 {
		t.Fatalf("unexpected summary %+v", got)
	}
}

func TestOvertimeInvalidPeriod(t *testing.T) {
	h := newTestHandler(t, &stubReader{err: overtime.ErrInvalidPeriod})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overtime?period=yesterday", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	h = newTestHandler(t, &stubReader{err: errors.New("db down")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overtime", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestOvertimeExports(t *testing.T) {
	h := newTestHandler(t, &stubReader{summary: overtime.Summary{PeriodKey: "20260301"}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overtime/export.pdf", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("unexpected pdf response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("body is not a pdf")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overtime/export.xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected xlsx status %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Disposition"); got != "attachment; filename=overtime-20260301.xlsx" {
		t.Fatalf("unexpected disposition %q", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/overtime/export.csv", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/overtime", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
