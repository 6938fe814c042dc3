package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	metricPrefix = "platform_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	timerTicks       prometheus.Counter
	timerTickLatency prometheus.Histogram
	timerTransitions *prometheus.CounterVec
	timerOperations  *prometheus.CounterVec

	alarmActive *prometheus.GaugeVec
	alarmPulses *prometheus.CounterVec

	queueLength *prometheus.GaugeVec

	overtimeMinutes prometheus.Counter

	collaboratorFailures *prometheus.CounterVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers metrics and DB-backed gauges.
func Init(db *sql.DB, logger zerolog.Logger) {
	registerOnce.Do(func() {
		timerTicks = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "timer_ticks_total",
				Help: "Total timer engine ticks",
			},
		)
		timerTickLatency = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "timer_tick_latency_seconds",
				Help:    "Timer tick processing latency in seconds",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
			},
		)
		timerTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "timer_transitions_total",
				Help: "Total timer status transitions",
			},
			[]string{"from", "to"},
		)
		timerOperations = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "timer_operations_total",
				Help: "Total timer operations by action and result",
			},
			[]string{"action", "result"},
		)

		alarmActive = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "alarm_active",
				Help: "Active station alarms by kind",
			},
			[]string{"kind"},
		)
		alarmPulses = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alarm_pulses_total",
				Help: "Total alarm notification pulses by kind",
			},
			[]string{"kind"},
		)

		queueLength = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "queue_length",
				Help: "Waiting list length per station",
			},
			[]string{"station"},
		)

		overtimeMinutes = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "overtime_minutes_total",
				Help: "Total recorded overtime minutes",
			},
		)

		collaboratorFailures = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "collaborator_failures_total",
				Help: "Total collaborator failures by collaborator",
			},
			[]string{"collaborator"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "overtime_export_total",
				Help: "Total overtime export operations by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "overtime_export_latency_seconds",
				Help:    "Overtime export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			timerTicks,
			timerTickLatency,
			timerTransitions,
			timerOperations,
			alarmActive,
			alarmPulses,
			queueLength,
			overtimeMinutes,
			collaboratorFailures,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveTick records one engine tick.
func ObserveTick(duration time.Duration) {
	if timerTicks != nil {
		timerTicks.Inc()
	}
	if timerTickLatency != nil {
		timerTickLatency.Observe(duration.Seconds())
	}
}

// IncTransition counts a status change.
func IncTransition(from, to string) {
	if timerTransitions != nil {
		timerTransitions.WithLabelValues(from, to).Inc()
	}
}

// IncOperation counts a timer operation by result.
func IncOperation(action string, err error) {
	result := resultSuccess
	if err != nil {
		result = resultError
	}
	if timerOperations != nil {
		timerOperations.WithLabelValues(action, result).Inc()
	}
}

// AddActiveAlarm moves the active alarm gauge for kind by delta.
func AddActiveAlarm(kind string, delta float64) {
	if kind == "" {
		kind = "unknown"
	}
	if alarmActive != nil {
		alarmActive.WithLabelValues(kind).Add(delta)
	}
}

// IncAlarmPulse counts a notification pulse.
func IncAlarmPulse(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if alarmPulses != nil {
		alarmPulses.WithLabelValues(kind).Inc()
	}
}

// SetQueueLength sets the waiting list gauge for a station.
func SetQueueLength(stationID string, length int) {
	if queueLength != nil {
		queueLength.WithLabelValues(stationID).Set(float64(length))
	}
}

// AddOvertimeMinutes increments recorded overtime.
func AddOvertimeMinutes(minutes int) {
	if minutes <= 0 {
		return
	}
	if overtimeMinutes != nil {
		overtimeMinutes.Add(float64(minutes))
	}
}

// IncCollaboratorFailure counts a failed persistence, payment, notification or stats call.
func IncCollaboratorFailure(collaborator string) {
	if collaborator == "" {
		collaborator = "unknown"
	}
	if collaboratorFailures != nil {
		collaboratorFailures.WithLabelValues(collaborator).Inc()
	}
}

// ObserveExport records export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

// Collaborator labels.
const (
	CollaboratorPersistence  = "persistence"
	CollaboratorPayment      = "payment"
	CollaboratorNotification = "notification"
	CollaboratorStats        = "stats"
)
