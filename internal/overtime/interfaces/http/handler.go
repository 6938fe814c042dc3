package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"

	"venue-timers/internal/observability/metrics"
	overtime "venue-timers/internal/overtime/domain"
	"venue-timers/internal/overtime/interfaces"
)

const (
	formatXLSX = "xlsx"
	formatPDF  = "pdf"
)

// SummaryReader loads a period's overtime summary. An empty key means today.
type SummaryReader interface {
	Summary(ctx context.Context, periodKey string) (overtime.Summary, error)
}

// Handler serves overtime statistics and exports.
type Handler struct {
	reader SummaryReader
	clock  clockwork.Clock
}

// NewHandler constructs a handler.
func NewHandler(reader SummaryReader, clock clockwork.Clock) (*Handler, error) {
	if reader == nil {
		return nil, errors.New("overtime handler: nil reader")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{reader: reader, clock: clock}, nil
}

// ServeHTTP handles GET /api/v1/overtime and GET /api/v1/overtime/export.{xlsx,pdf}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/overtime"), "/")
	switch path {
	case "":
		h.handleSummary(w, r)
	case "/export." + formatXLSX:
		h.handleExport(w, r, formatXLSX)
	case "/export." + formatPDF:
		h.handleExport(w, r, formatPDF)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, ok := h.load(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	summary, ok := h.load(w, r)
	if !ok {
		return
	}
	start := h.clock.Now()
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case formatXLSX:
		data, err = interfaces.BuildOvertimeXLSX(summary, start)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case formatPDF:
		data, err = interfaces.BuildOvertimePDF(summary, start)
		contentType = "application/pdf"
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveExport(format, result, h.clock.Since(start))
	if err != nil {
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=overtime-%s.%s", summary.PeriodKey, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (overtime.Summary, bool) {
	summary, err := h.reader.Summary(r.Context(), r.URL.Query().Get("period"))
	if err != nil {
		if errors.Is(err, overtime.ErrInvalidPeriod) {
			http.Error(w, "period must be YYYYMMDD", http.StatusBadRequest)
			return overtime.Summary{}, false
		}
		http.Error(w, "query overtime error", http.StatusInternalServerError)
		return overtime.Summary{}, false
	}
	return summary, true
}

