package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-webhook-dispatcher/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// EventStore is the bun-backed implementation of core.EventStore. Event
// inserts go through the typed repository; point reads and attempt listings
// are direct bun selects, and the claim and the transition updates are
// written against bun directly because they carry the locking and guard
// clauses the repositories cannot express.
type EventStore struct {
	db       *bun.DB
	events   repository.Repository[*webhookEventRecord]
	attempts repository.Repository[*deliveryAttemptRecord]
}

func NewEventStore(db *bun.DB) (*EventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	events := repository.NewRepository[*webhookEventRecord](db, eventHandlers())
	if validator, ok := events.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid event repository wiring: %w", err)
		}
	}
	attempts := repository.NewRepository[*deliveryAttemptRecord](db, attemptHandlers())
	if validator, ok := attempts.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid attempt repository wiring: %w", err)
		}
	}
	return &EventStore{db: db, events: events, attempts: attempts}, nil
}

func (s *EventStore) Insert(ctx context.Context, in core.InsertEvent) (core.Event, error) {
	if s == nil || s.events == nil {
		return core.Event{}, fmt.Errorf("sqlstore: event store is not configured")
	}
	if err := in.Validate(); err != nil {
		return core.Event{}, err
	}

	now := time.Now().UTC()
	record := &webhookEventRecord{
		ID:           uuid.NewString(),
		Payload:      in.Payload,
		TargetURL:    strings.TrimSpace(in.TargetURL),
		Status:       string(core.StatusPending),
		AttemptCount: 0,
		NextRetryAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	created, err := s.events.Create(ctx, record)
	if err != nil {
		return core.Event{}, err
	}
	return eventRecordToEvent(created), nil
}

func (s *EventStore) Get(ctx context.Context, id string) (core.Event, error) {
	if s == nil || s.db == nil {
		return core.Event{}, fmt.Errorf("sqlstore: event store is not configured")
	}
	record := new(webhookEventRecord)
	err := s.db.NewSelect().
		Model(record).
		Where("we.id = ?", strings.TrimSpace(id)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Event{}, fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	if err != nil {
		return core.Event{}, err
	}
	return eventRecordToEvent(record), nil
}

func (s *EventStore) ListAttempts(ctx context.Context, eventID string) ([]core.Attempt, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: event store is not configured")
	}
	var records []deliveryAttemptRecord
	err := s.db.NewSelect().
		Model(&records).
		Where("da.event_id = ?", strings.TrimSpace(eventID)).
		Order("attempt_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	attempts := make([]core.Attempt, 0, len(records))
	for _, record := range records {
		attempts = append(attempts, attemptRecordToAttempt(record))
	}
	return attempts, nil
}

// ClaimBatch locks up to limit due pending rows, skipping rows locked by a
// concurrent worker, and pushes their next_retry_at forward by lease before
// committing. A worker that dies mid-flight simply lets the lease lapse and
// the rows become due again.
func (s *EventStore) ClaimBatch(ctx context.Context, limit int, lease time.Duration) ([]core.Event, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: event store is not configured")
	}
	if limit <= 0 {
		limit = 1
	}
	if lease <= 0 {
		lease = time.Minute
	}

	now := time.Now().UTC()
	leasedUntil := now.Add(lease)

	var records []webhookEventRecord
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		query := fmt.Sprintf(`
WITH claimed AS (
	SELECT id
	FROM webhook_events
	WHERE status = ?
	  AND (next_retry_at IS NULL OR next_retry_at <= ?)
	ORDER BY next_retry_at ASC NULLS FIRST
	LIMIT ?%s
)
UPDATE webhook_events
SET next_retry_at = ?, updated_at = ?
WHERE id IN (SELECT id FROM claimed)
  AND status = ?
RETURNING
	id,
	payload,
	target_url,
	status,
	attempt_count,
	last_error,
	next_retry_at,
	created_at,
	updated_at
`, s.lockClause())
		return tx.NewRaw(
			query,
			string(core.StatusPending),
			now,
			limit,
			leasedUntil,
			now,
			string(core.StatusPending),
		).Scan(ctx, &records)
	})
	if err != nil {
		return nil, err
	}

	events := make([]core.Event, 0, len(records))
	for i := range records {
		events = append(events, eventRecordToEvent(&records[i]))
	}
	return events, nil
}

func (s *EventStore) RecordSuccess(
	ctx context.Context,
	eventID string,
	attemptNumber int,
	statusCode int,
	responseBody string,
) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: event store is not configured")
	}
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return fmt.Errorf("sqlstore: event id is required")
	}
	if attemptNumber < 1 {
		return fmt.Errorf("sqlstore: attempt number must be 1-based")
	}

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().
			Model((*webhookEventRecord)(nil)).
			Set("status = ?", string(core.StatusDelivered)).
			Set("attempt_count = ?", attemptNumber).
			Set("last_error = NULL").
			Set("next_retry_at = NULL").
			Set("updated_at = ?", now).
			Where("id = ?", eventID).
			Where("status = ?", string(core.StatusPending)).
			Where("attempt_count = ?", attemptNumber-1).
			Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireTransition(res); err != nil {
			return err
		}

		attempt := &deliveryAttemptRecord{
			ID:            uuid.NewString(),
			EventID:       eventID,
			AttemptNumber: attemptNumber,
			StatusCode:    &statusCode,
			ResponseBody:  nullableString(responseBody),
			CreatedAt:     now,
		}
		_, err = tx.NewInsert().Model(attempt).Exec(ctx)
		return err
	})
}

func (s *EventStore) RecordFailure(ctx context.Context, failure core.AttemptFailure) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: event store is not configured")
	}
	eventID := strings.TrimSpace(failure.EventID)
	if eventID == "" {
		return fmt.Errorf("sqlstore: event id is required")
	}
	if failure.AttemptNumber < 1 {
		return fmt.Errorf("sqlstore: attempt number must be 1-based")
	}
	if !failure.Dead && failure.NextRetryAt == nil {
		return fmt.Errorf("sqlstore: non-terminal failure requires next_retry_at")
	}

	status := core.StatusPending
	if failure.Dead {
		status = core.StatusDead
	}
	lastError := failureSummary(failure)

	now := time.Now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		update := tx.NewUpdate().
			Model((*webhookEventRecord)(nil)).
			Set("status = ?", string(status)).
			Set("attempt_count = ?", failure.AttemptNumber).
			Set("last_error = ?", lastError).
			Set("updated_at = ?", now).
			Where("id = ?", eventID).
			Where("status = ?", string(core.StatusPending)).
			Where("attempt_count = ?", failure.AttemptNumber-1)
		if failure.Dead {
			update = update.Set("next_retry_at = NULL")
		} else {
			next := failure.NextRetryAt.UTC()
			update = update.Set("next_retry_at = ?", next)
		}
		res, err := update.Exec(ctx)
		if err != nil {
			return err
		}
		if err := requireTransition(res); err != nil {
			return err
		}

		attempt := &deliveryAttemptRecord{
			ID:            uuid.NewString(),
			EventID:       eventID,
			AttemptNumber: failure.AttemptNumber,
			StatusCode:    failure.StatusCode,
			ResponseBody:  nullableString(failure.ResponseBody),
			Error:         nullableString(failure.Cause),
			CreatedAt:     now,
		}
		_, err = tx.NewInsert().Model(attempt).Exec(ctx)
		return err
	})
}

func (s *EventStore) lockClause() string {
	if s.db.Dialect().Name() == dialect.PG {
		return "\n\tFOR UPDATE SKIP LOCKED"
	}
	return ""
}

// requireTransition turns a zero-row guarded update into ErrStaleClaim so
// the whole transaction, attempt row included, rolls back.
func requireTransition(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return core.ErrStaleClaim
	}
	return nil
}

func failureSummary(failure core.AttemptFailure) string {
	if cause := strings.TrimSpace(failure.Cause); cause != "" {
		return cause
	}
	body := strings.TrimSpace(failure.ResponseBody)
	if body == "" {
		body = "no body"
	}
	code := 0
	if failure.StatusCode != nil {
		code = *failure.StatusCode
	}
	return fmt.Sprintf("HTTP %d: %s", code, body)
}

func nullableString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func eventRecordToEvent(record *webhookEventRecord) core.Event {
	if record == nil {
		return core.Event{}
	}
	event := core.Event{
		ID:           record.ID,
		Payload:      record.Payload,
		TargetURL:    record.TargetURL,
		Status:       core.Status(record.Status),
		AttemptCount: record.AttemptCount,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
	if record.LastError != nil {
		event.LastError = *record.LastError
	}
	if record.NextRetryAt != nil {
		next := record.NextRetryAt.UTC()
		event.NextRetryAt = &next
	}
	return event
}

func attemptRecordToAttempt(record deliveryAttemptRecord) core.Attempt {
	attempt := core.Attempt{
		ID:            record.ID,
		EventID:       record.EventID,
		AttemptNumber: record.AttemptNumber,
		StatusCode:    record.StatusCode,
		CreatedAt:     record.CreatedAt,
	}
	if record.ResponseBody != nil {
		attempt.ResponseBody = *record.ResponseBody
	}
	if record.Error != nil {
		attempt.Error = *record.Error
	}
	return attempt
}
