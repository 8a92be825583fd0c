package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/goliatone/go-webhook-dispatcher/core"
)

type stubEventReader struct {
	event    core.Event
	attempts []core.Attempt
	err      error
	calls    int
}

func (s *stubEventReader) GetEvent(_ context.Context, id string) (core.Event, error) {
	s.calls++
	if s.err != nil {
		return core.Event{}, s.err
	}
	if s.event.ID != id {
		return core.Event{}, fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	return s.event, nil
}

func (s *stubEventReader) ListAttempts(_ context.Context, _ string) ([]core.Attempt, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.attempts, nil
}

func TestGetEventQuery(t *testing.T) {
	reader := &stubEventReader{event: core.Event{ID: "event-1", Status: core.StatusDelivered}}
	q := NewGetEventQuery(reader)

	event, err := q.Query(context.Background(), GetEventMessage{EventID: "event-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if event.Status != core.StatusDelivered {
		t.Fatalf("unexpected status %s", event.Status)
	}
}

func TestGetEventQuery_ValidatesMessage(t *testing.T) {
	reader := &stubEventReader{}
	q := NewGetEventQuery(reader)

	if _, err := q.Query(context.Background(), GetEventMessage{}); err == nil {
		t.Fatalf("expected validation error for empty id")
	}
	if reader.calls != 0 {
		t.Fatalf("invalid message must not reach the reader")
	}
}

func TestGetEventQuery_RequiresReader(t *testing.T) {
	q := &GetEventQuery{}
	if _, err := q.Query(context.Background(), GetEventMessage{EventID: "x"}); err == nil {
		t.Fatalf("expected dependency error")
	}
}

func TestListAttemptsQuery(t *testing.T) {
	code := 200
	reader := &stubEventReader{attempts: []core.Attempt{
		{EventID: "event-1", AttemptNumber: 1, StatusCode: &code},
	}}
	q := NewListAttemptsQuery(reader)

	attempts, err := q.Query(context.Background(), ListAttemptsMessage{EventID: "event-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(attempts) != 1 || attempts[0].AttemptNumber != 1 {
		t.Fatalf("unexpected attempts %+v", attempts)
	}
}

func TestListAttemptsQuery_ValidatesMessage(t *testing.T) {
	q := NewListAttemptsQuery(&stubEventReader{})
	if _, err := q.Query(context.Background(), ListAttemptsMessage{}); err == nil {
		t.Fatalf("expected validation error for empty id")
	}
}
