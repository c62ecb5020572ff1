package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestEventBuilders(t *testing.T) {
	g, a := uuid.New(), uuid.New()
	e := New(GroupMemberJoined).WithGroup(g).WithActor(a).With("role", "Membro")
	if e.GroupID == nil || *e.GroupID != g || e.ActorID == nil || *e.ActorID != a {
		t.Fatalf("ids not set: %+v", e)
	}
	e2 := e.With("user", "x")
	if _, ok := e.Metadata["user"]; ok {
		t.Errorf("With mutated the original metadata")
	}
	if e2.Metadata["role"] != "Membro" {
		t.Errorf("With dropped existing metadata")
	}

	b, err := e.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	if m["type"] != "GROUP_MEMBER_JOINED" || m["groupId"] != g.String() {
		t.Errorf("unexpected body: %s", b)
	}
	if GroupMemberJoined.RoutingKey() != "group_member_joined" {
		t.Errorf("routing key = %q", GroupMemberJoined.RoutingKey())
	}
}

func TestEmitRecordsAndSwallowsFailures(t *testing.T) {
	rec := &Recorder{}
	Emit(context.Background(), rec, nil, New(TransactionCreated))
	Emit(context.Background(), rec, nil, New(TransactionDeleted))
	if got := rec.Types(); len(got) != 2 || got[0] != TransactionCreated || got[1] != TransactionDeleted {
		t.Errorf("Types() = %v", got)
	}

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	Emit(context.Background(), failingPublisher{}, log, New(GroupUpdated))
	if !strings.Contains(buf.String(), "event publish failed") {
		t.Errorf("failure was not logged: %q", buf.String())
	}
	Emit(context.Background(), nil, log, New(GroupUpdated))

	buf.Reset()
	oversized := New(GroupUpdated).With("note", strings.Repeat("x", 300))
	Emit(context.Background(), rec, log, oversized)
	if len(rec.Events()) != 2 {
		t.Errorf("event with invalid metadata was published")
	}
	if !strings.Contains(buf.String(), "event publish failed") {
		t.Errorf("invalid metadata was not logged: %q", buf.String())
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := LogPublisher{Log: slog.New(slog.NewJSONHandler(&buf, nil))}
	if err := p.Publish(context.Background(), New(AccountClosingPeriod).WithAccount(uuid.New())); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if !strings.Contains(buf.String(), "ACCOUNT_CLOSING_PERIOD") || !strings.Contains(buf.String(), "account_id") {
		t.Errorf("unexpected log line: %s", buf.String())
	}
}
