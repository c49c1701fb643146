package events

import (
	"context"
	"testing"

	"git.home.luguber.info/inful/pagesync/internal/config"
)

func TestDisabledConfigYieldsNoop(t *testing.T) {
	pub, err := NewNATSPublisher(&config.EventsConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if _, ok := pub.(NoopPublisher); !ok {
		t.Fatalf("expected NoopPublisher, got %T", pub)
	}

	pub, err = NewNATSPublisher(nil, nil)
	if err != nil {
		t.Fatalf("nil config: %v", err)
	}
	if _, ok := pub.(NoopPublisher); !ok {
		t.Fatalf("expected NoopPublisher, got %T", pub)
	}
}

func TestNoopPublisherIsSafe(t *testing.T) {
	var p Publisher = NoopPublisher{}
	if err := p.PublishCompleted(context.Background(), PublishedEvent{Repository: "widgets"}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
