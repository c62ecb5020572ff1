// Package events publishes domain notifications emitted after successful mutations.
// Publishing is best effort: failures are logged by the caller and never retried.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/groupledger/internal/meta"
)

// Type names a notification.
type Type string

const (
	GroupMemberJoined    Type = "GROUP_MEMBER_JOINED"
	GroupMemberLeft      Type = "GROUP_MEMBER_LEFT"
	GroupUpdated         Type = "GROUP_UPDATED"
	TransactionCreated   Type = "TRANSACTION_CREATED"
	TransactionUpdated   Type = "TRANSACTION_UPDATED"
	TransactionDeleted   Type = "TRANSACTION_DELETED"
	AccountClosingPeriod Type = "ACCOUNT_CLOSING_PERIOD"
)

// RoutingKey is the broker routing key for t, e.g. "group_member_joined".
func (t Type) RoutingKey() string { return strings.ToLower(string(t)) }

// Event is one notification.
type Event struct {
	ID         uuid.UUID         `json:"id"`
	Type       Type              `json:"type"`
	GroupID    *uuid.UUID        `json:"groupId,omitempty"`
	ActorID    *uuid.UUID        `json:"actorId,omitempty"`
	AccountID  *uuid.UUID        `json:"accountId,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
	Metadata   meta.Metadata     `json:"metadata,omitempty"`
}

// New stamps an event of type t with a fresh id and the current time.
func New(t Type) Event {
	return Event{ID: uuid.New(), Type: t, OccurredAt: time.Now().UTC()}
}

func (e Event) WithGroup(id uuid.UUID) Event   { e.GroupID = &id; return e }
func (e Event) WithActor(id uuid.UUID) Event   { e.ActorID = &id; return e }
func (e Event) WithAccount(id uuid.UUID) Event { e.AccountID = &id; return e }

// With returns a copy of e with metadata key set to value.
func (e Event) With(key, value string) Event {
	e.Metadata = e.Metadata.With(key, value)
	return e
}

// ToJSON encodes the event body.
func (e Event) ToJSON() ([]byte, error) { return json.Marshal(e) }

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Emit publishes e and logs, without returning, any failure.
func Emit(ctx context.Context, p Publisher, log *slog.Logger, e Event) {
	if p == nil {
		return
	}
	err := e.Metadata.Validate()
	if err == nil {
		err = p.Publish(ctx, e)
	}
	if err != nil {
		publishFailures.WithLabelValues(string(e.Type)).Inc()
		if log != nil {
			log.WarnContext(ctx, "event publish failed", "type", e.Type, "event_id", e.ID, "err", err)
		}
		return
	}
	published.WithLabelValues(string(e.Type)).Inc()
}

// LogPublisher writes events to a structured logger. It is used when no broker is configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	l := p.Log
	if l == nil {
		l = slog.Default()
	}
	attrs := []any{"type", e.Type, "event_id", e.ID}
	if e.GroupID != nil {
		attrs = append(attrs, "group_id", e.GroupID.String())
	}
	if e.AccountID != nil {
		attrs = append(attrs, "account_id", e.AccountID.String())
	}
	if len(e.Metadata) > 0 {
		attrs = append(attrs, "metadata", e.Metadata)
	}
	l.InfoContext(ctx, "event", attrs...)
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	evs := r.Events()
	out := make([]Type, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}
