// Package notify delivers franchise flag events to operators.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/okian/ehb/internal/domain/model"
	"github.com/okian/ehb/internal/domain/types"
	"github.com/okian/ehb/pkg/logger"
)

// DefaultSubject is the NATS subject flag events are published on.
const DefaultSubject = "ehb.franchise.flagged"

// Publisher is the subset of *nats.Conn the notifier needs.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
}

// NATSNotifier publishes flag events as JSON.
type NATSNotifier struct {
	pub     Publisher
	subject string
	conn    *nats.Conn
}

// NewNATSNotifier publishes on subject through pub.
func NewNATSNotifier(pub Publisher, subject string) *NATSNotifier {
	if subject == "" {
		subject = DefaultSubject
	}
	n := &NATSNotifier{pub: pub, subject: subject}
	if c, ok := pub.(*nats.Conn); ok {
		n.conn = c
	}
	return n
}

// Connect dials url and returns a notifier that owns the connection.
func Connect(url, subject string, log logger.Logger) (*NATSNotifier, error) {
	conn, err := nats.Connect(url,
		nats.Name("ehb-tiers"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn(context.Background(), "nats disconnected", logger.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info(context.Background(), "nats reconnected", logger.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w: %w", url, types.ErrDependencyUnavailable, err)
	}
	return NewNATSNotifier(conn, subject), nil
}

// Subject returns the subject events are published on.
func (n *NATSNotifier) Subject() string { return n.subject }

// Notify publishes e and waits for the server to acknowledge the flush.
func (n *NATSNotifier) Notify(ctx context.Context, e model.FlagEvent) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode flag event: %w", err)
	}
	if err := n.pub.Publish(n.subject, data); err != nil {
		return fmt.Errorf("publish %s: %w: %w", n.subject, types.ErrDependencyUnavailable, err)
	}
	if err := n.pub.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w: %w", n.subject, types.ErrDependencyUnavailable, err)
	}
	return nil
}

// Close drains the connection when the notifier owns one.
func (n *NATSNotifier) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// LogNotifier writes flag events to the log. It is used when no broker is
// configured.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a notifier over log.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify logs e at warn level.
func (n *LogNotifier) Notify(ctx context.Context, e model.FlagEvent) error {
	n.log.Warn(ctx, "target placed under review",
		logger.String("kind", e.Kind),
		logger.String("target_id", e.TargetID),
		logger.Int64("report_count", e.ReportCount),
		logger.Int64("threshold", e.Threshold),
		logger.String("flagged_at", e.FlaggedAt.UTC().Format(time.RFC3339)))
	return nil
}

// Close is a no-op.
func (n *LogNotifier) Close() error { return nil }
