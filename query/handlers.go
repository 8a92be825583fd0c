package query

import (
	"context"

	"github.com/goliatone/go-webhook-dispatcher/core"
)

type EventReader interface {
	GetEvent(ctx context.Context, id string) (core.Event, error)
	ListAttempts(ctx context.Context, eventID string) ([]core.Attempt, error)
}

type GetEventQuery struct {
	reader EventReader
}

func NewGetEventQuery(reader EventReader) *GetEventQuery {
	return &GetEventQuery{reader: reader}
}

func (q *GetEventQuery) Query(ctx context.Context, msg GetEventMessage) (core.Event, error) {
	if q == nil || q.reader == nil {
		return core.Event{}, queryDependencyError("query: event reader is required")
	}
	if err := msg.Validate(); err != nil {
		return core.Event{}, queryWrapValidation(err, "query: get event message is invalid")
	}
	return q.reader.GetEvent(ctx, msg.EventID)
}

type ListAttemptsQuery struct {
	reader EventReader
}

func NewListAttemptsQuery(reader EventReader) *ListAttemptsQuery {
	return &ListAttemptsQuery{reader: reader}
}

func (q *ListAttemptsQuery) Query(ctx context.Context, msg ListAttemptsMessage) ([]core.Attempt, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: event reader is required")
	}
	if err := msg.Validate(); err != nil {
		return nil, queryWrapValidation(err, "query: list attempts message is invalid")
	}
	return q.reader.ListAttempts(ctx, msg.EventID)
}
