// Package events publishes publish-completed notifications to NATS
// JetStream when event publishing is enabled in the configuration.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"git.home.luguber.info/inful/pagesync/internal/config"
)

// PublishedEvent describes one completed publish.
type PublishedEvent struct {
	Repository     string    `json:"repository"`
	SourceCommit   string    `json:"source_commit"`
	PublishCommit  string    `json:"publish_commit"`
	FilesRendered  int       `json:"files_rendered"`
	RenderFailures int       `json:"render_failures,omitempty"`
	FilesDeleted   int       `json:"files_deleted,omitempty"`
	Pushed         bool      `json:"pushed"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher emits publish-completed events. Emission failures must never
// fail the run; callers log and continue.
type Publisher interface {
	PublishCompleted(ctx context.Context, event PublishedEvent) error
	Close() error
}

// NoopPublisher is used when event publishing is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishCompleted(context.Context, PublishedEvent) error { return nil }
func (NoopPublisher) Close() error                                           { return nil }

// NATSPublisher publishes events to a JetStream subject.
type NATSPublisher struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	subject string
	log     *slog.Logger
}

// NewNATSPublisher connects to NATS per the events configuration. Returns a
// NoopPublisher when event publishing is disabled.
func NewNATSPublisher(cfg *config.EventsConfig, log *slog.Logger) (Publisher, error) {
	if cfg == nil || !cfg.Enabled {
		return NoopPublisher{}, nil
	}
	if log == nil {
		log = slog.Default()
	}

	conn, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	log.Info("NATS event publisher initialized", "url", cfg.NATSURL, "subject", cfg.Subject)
	return &NATSPublisher{conn: conn, js: js, subject: cfg.Subject, log: log}, nil
}

// PublishCompleted implements Publisher.
func (p *NATSPublisher) PublishCompleted(ctx context.Context, event PublishedEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := p.js.Publish(ctx, p.subject, data); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}

	p.log.Debug("published completion event",
		"repository", event.Repository,
		"source_commit", event.SourceCommit)
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.conn != nil {
		p.conn.Close()
	}
	return nil
}
