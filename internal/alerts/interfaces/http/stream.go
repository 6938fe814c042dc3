package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// Message is one SSE payload.
type Message struct {
	Type      string          `json:"type"`
	StationID string          `json:"station_id,omitempty"`
	Kind      string          `json:"kind,omitempty"`
	On        *bool           `json:"on,omitempty"`
	Title     string          `json:"title,omitempty"`
	Body      string          `json:"body,omitempty"`
	Pattern   []time.Duration `json:"pattern,omitempty"`
}

// SSEBroker fans out alarm pulses to connected front desk browsers. It is a
// notify.Sink; slow clients drop messages instead of blocking the sender.
type SSEBroker struct {
	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewSSEBroker constructs a broker.
func NewSSEBroker() *SSEBroker {
	return &SSEBroker{clients: make(map[chan []byte]struct{})}
}

func (b *SSEBroker) PlayWarningPulse(_ context.Context, stationID string) error {
	return b.publish(Message{Type: "warning_pulse", StationID: stationID})
}

func (b *SSEBroker) PlayFinishedAlarmPulse(_ context.Context, stationID string) error {
	return b.publish(Message{Type: "finished_pulse", StationID: stationID})
}

func (b *SSEBroker) PlayConfirmChime(_ context.Context, stationID string) error {
	return b.publish(Message{Type: "chime", StationID: stationID})
}

func (b *SSEBroker) SendPersistentNotification(_ context.Context, title, body string) error {
	return b.publish(Message{Type: "notification", Title: title, Body: body})
}

func (b *SSEBroker) Vibrate(_ context.Context, pattern []time.Duration) error {
	return b.publish(Message{Type: "vibrate", Pattern: pattern})
}

// SetIndicator implements notify.IndicatorSink.
func (b *SSEBroker) SetIndicator(_ context.Context, stationID, kind string, on bool) error {
	return b.publish(Message{Type: "indicator", StationID: stationID, Kind: kind, On: &on})
}

// Clients returns the number of connected clients.
func (b *SSEBroker) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

func (b *SSEBroker) publish(msg Message) error {
	if b == nil {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	b.broadcast(payload)
	return nil
}

// Subscribe registers a new client channel.
func (b *SSEBroker) Subscribe() chan []byte {
	if b == nil {
		return nil
	}
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client channel.
func (b *SSEBroker) Unsubscribe(ch chan []byte) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
	close(ch)
}

func (b *SSEBroker) broadcast(payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.clients {
		select {
		case ch <- payload:
		default:
		}
	}
}

// StreamHandler serves the SSE alarm stream.
type StreamHandler struct {
	broker *SSEBroker
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *SSEBroker) *StreamHandler {
	return &StreamHandler{broker: broker}
}

// ServeHTTP handles GET /api/v1/alarms/stream.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.broker.Subscribe()
	if ch == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	defer h.broker.Unsubscribe(ch)

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	done := r.Context().Done()
	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("event: alarm\n"))
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-done:
			return
		}
	}
}
