package audit

import (
	"context"
	"log/slog"
	"time"

	id "arkhiv/pkg/domain"
)

// Store persists audit events. Append-only; sinks may be local (memory,
// postgres) or remote (kafka).
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}

// Publisher captures structured audit events. It is append-only and uses the
// storage layer for persistence so tests can swap sinks easily.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.store.Append(ctx, event)
}

func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// AsyncPublisher decouples emitters from a slow sink by buffering events in
// an inbox channel drained by a Worker. Events are dropped (with a log line)
// rather than blocking the request path when the inbox is full; the audit
// register is best-effort on the hot path, the store of record is the
// request table itself.
type AsyncPublisher struct {
	inbox  chan<- Event
	logger *slog.Logger
}

func NewAsyncPublisher(inbox chan<- Event, logger *slog.Logger) *AsyncPublisher {
	return &AsyncPublisher{inbox: inbox, logger: logger}
}

func (p *AsyncPublisher) Emit(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case p.inbox <- event:
	default:
		p.logger.WarnContext(ctx, "audit inbox full, dropping event",
			"action", event.Action,
		)
	}
	return nil
}
