package core

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Service is the ingestion and lookup boundary. Workers never go through
// it; they hold the EventStore directly.
type Service struct {
	store  EventStore
	config Config
	logger Logger
}

type ServiceOption func(*Service)

func WithServiceLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func NewService(store EventStore, config Config, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("core: event store is required")
	}
	service := &Service{
		store:  store,
		config: config,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(service)
	}
	return service, nil
}

type EnqueueRequest struct {
	Payload   json.RawMessage
	TargetURL string
}

// EnqueueEvent validates and persists a pending event. The payload is
// compacted exactly once here; the stored bytes are both the wire body and
// the HMAC input for every subsequent attempt.
func (s *Service) EnqueueEvent(ctx context.Context, req EnqueueRequest) (Event, error) {
	if s == nil || s.store == nil {
		return Event{}, MapError(fmt.Errorf("core: service is not configured"))
	}

	targetURL := strings.TrimSpace(req.TargetURL)
	if targetURL == "" {
		targetURL = strings.TrimSpace(s.config.DefaultTargetURL)
	}

	canonical, err := canonicalPayload(req.Payload)
	if err != nil {
		return Event{}, MapError(err)
	}

	in := InsertEvent{
		Payload:   canonical,
		TargetURL: targetURL,
	}
	if err := in.Validate(); err != nil {
		return Event{}, MapError(err)
	}

	event, err := s.store.Insert(ctx, in)
	if err != nil {
		return Event{}, MapError(err)
	}
	return event, nil
}

func (s *Service) GetEvent(ctx context.Context, id string) (Event, error) {
	if s == nil || s.store == nil {
		return Event{}, MapError(fmt.Errorf("core: service is not configured"))
	}
	parsed, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return Event{}, MapError(fmt.Errorf("%w: event id %q is not a uuid", ErrEventNotFound, id))
	}
	event, err := s.store.Get(ctx, parsed.String())
	if err != nil {
		return Event{}, MapError(err)
	}
	return event, nil
}

func (s *Service) ListAttempts(ctx context.Context, eventID string) ([]Attempt, error) {
	if s == nil || s.store == nil {
		return nil, MapError(fmt.Errorf("core: service is not configured"))
	}
	parsed, err := uuid.Parse(strings.TrimSpace(eventID))
	if err != nil {
		return nil, MapError(fmt.Errorf("%w: event id %q is not a uuid", ErrEventNotFound, eventID))
	}
	if _, err := s.store.Get(ctx, parsed.String()); err != nil {
		return nil, MapError(err)
	}
	attempts, err := s.store.ListAttempts(ctx, parsed.String())
	if err != nil {
		return nil, MapError(err)
	}
	return attempts, nil
}

// canonicalPayload compacts the client JSON once. Key order and escaping
// are preserved as received; only insignificant whitespace is dropped, so
// the serialization is stable for the lifetime of the event.
func canonicalPayload(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 {
		return nil, ErrPayloadRequired
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPayloadRequired, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}
