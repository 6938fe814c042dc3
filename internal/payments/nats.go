package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const DefaultSubjectPrefix = "venue.payments"

// Publisher is the subset of *nats.Conn used by NATSRecorder.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NATSRecorder publishes payments as JSON on <prefix>.<kind>.
type NATSRecorder struct {
	pub    Publisher
	prefix string
}

// NewNATSRecorder constructs a recorder. An empty prefix uses DefaultSubjectPrefix.
func NewNATSRecorder(pub Publisher, prefix string) (*NATSRecorder, error) {
	if pub == nil {
		return nil, fmt.Errorf("payments: nil publisher")
	}
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSRecorder{pub: pub, prefix: prefix}, nil
}

// Subject returns the subject a payment is published on.
func (r *NATSRecorder) Subject(payment Payment) string {
	return r.prefix + "." + payment.Kind
}

// Record publishes the payment.
func (r *NATSRecorder) Record(ctx context.Context, payment Payment) error {
	if err := payment.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payment)
	if err != nil {
		return fmt.Errorf("marshal payment: %w", err)
	}
	msg := &nats.Msg{
		Subject: r.Subject(payment),
		Data:    data,
		Header: nats.Header{
			"Station-ID": []string{payment.StationID},
			"Session-ID": []string{payment.SessionID},
			"Reason":     []string{string(payment.Reason)},
		},
	}
	if err := r.pub.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish payment to %s: %w", msg.Subject, err)
	}
	return nil
}

// Connect dials NATS with reconnect logging.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name("venue-timers"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			logger.Error().Err(err).Msg("NATS error")
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}
