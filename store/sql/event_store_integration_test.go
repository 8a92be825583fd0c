package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-webhook-dispatcher/core"
	dispatchermigrations "github.com/goliatone/go-webhook-dispatcher/migrations"
	sqlstore "github.com/goliatone/go-webhook-dispatcher/store/sql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-webhook-dispatcher-tests"
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:dispatcher-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	_, err = dispatchermigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != dispatchermigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, dispatchermigrations.WithValidationTargets(dispatchermigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newTestStore(t *testing.T) (*sqlstore.EventStore, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	store, ok := factory.EventStore().(*sqlstore.EventStore)
	if !ok {
		cleanup()
		t.Fatalf("unexpected store type %T", factory.EventStore())
	}
	return store, cleanup
}

func insertTestEvent(t *testing.T, store *sqlstore.EventStore) core.Event {
	t.Helper()
	event, err := store.Insert(context.Background(), core.InsertEvent{
		Payload:   []byte(`{"hello":"world"}`),
		TargetURL: "https://receiver.example.com/webhook",
	})
	if err != nil {
		t.Fatalf("insert event: %v", err)
	}
	return event
}

func TestEventStore_InsertAndGet(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	inserted := insertTestEvent(t, store)
	if inserted.Status != core.StatusPending {
		t.Fatalf("expected pending, got %s", inserted.Status)
	}
	if inserted.AttemptCount != 0 {
		t.Fatalf("expected zero attempts, got %d", inserted.AttemptCount)
	}
	if inserted.NextRetryAt == nil {
		t.Fatalf("expected next_retry_at set on insert")
	}

	fetched, err := store.Get(context.Background(), inserted.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if fetched.ID != inserted.ID {
		t.Fatalf("expected id %s, got %s", inserted.ID, fetched.ID)
	}
	if string(fetched.Payload) != `{"hello":"world"}` {
		t.Fatalf("payload did not round trip: %q", fetched.Payload)
	}
	if fetched.TargetURL != "https://receiver.example.com/webhook" {
		t.Fatalf("unexpected target url %q", fetched.TargetURL)
	}
}

func TestEventStore_GetUnknown(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, err := store.Get(context.Background(), "00000000-0000-0000-0000-000000000000")
	if !errors.Is(err, core.ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestEventStore_InsertValidates(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	_, err := store.Insert(context.Background(), core.InsertEvent{
		Payload:   []byte(`{"a":1}`),
		TargetURL: "ftp://nope",
	})
	if !errors.Is(err, core.ErrInvalidTargetURL) {
		t.Fatalf("expected target url validation, got %v", err)
	}
}

func TestEventStore_ClaimBatchClaimsDueRows(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	first := insertTestEvent(t, store)
	second := insertTestEvent(t, store)

	claimed, err := store.ClaimBatch(context.Background(), 10, time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected both due events claimed, got %d", len(claimed))
	}
	ids := map[string]bool{claimed[0].ID: true, claimed[1].ID: true}
	if !ids[first.ID] || !ids[second.ID] {
		t.Fatalf("claimed unexpected ids: %v", ids)
	}
	for _, event := range claimed {
		if event.AttemptCount != 0 {
			t.Fatalf("claim must not advance attempt_count, got %d", event.AttemptCount)
		}
	}
}

func TestEventStore_ClaimBatchLeasesRows(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	insertTestEvent(t, store)

	first, err := store.ClaimBatch(context.Background(), 10, time.Minute)
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("expected one claim, got %d", len(first))
	}

	// The lease pushed next_retry_at into the future; a second poll sees
	// nothing until it lapses.
	second, err := store.ClaimBatch(context.Background(), 10, time.Minute)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected leased row to be invisible, got %d", len(second))
	}
}

func TestEventStore_ClaimBatchSkipsFutureRows(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	event := insertTestEvent(t, store)
	future := time.Now().UTC().Add(time.Hour)
	if err := store.RecordFailure(context.Background(), core.AttemptFailure{
		EventID:       event.ID,
		AttemptNumber: 1,
		Cause:         "connection refused",
		NextRetryAt:   &future,
	}); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	claimed, err := store.ClaimBatch(context.Background(), 10, time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("expected no claims before next_retry_at, got %d", len(claimed))
	}
}

func TestEventStore_ClaimBatchHonorsLimit(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		insertTestEvent(t, store)
	}

	claimed, err := store.ClaimBatch(context.Background(), 2, time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 2 {
		t.Fatalf("expected limit respected, got %d", len(claimed))
	}
}

func TestEventStore_RecordSuccess(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	event := insertTestEvent(t, store)
	if err := store.RecordSuccess(context.Background(), event.ID, 1, 200, "ok"); err != nil {
		t.Fatalf("record success: %v", err)
	}

	updated, err := store.Get(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	if updated.Status != core.StatusDelivered {
		t.Fatalf("expected delivered, got %s", updated.Status)
	}
	if updated.AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", updated.AttemptCount)
	}
	if updated.LastError != "" {
		t.Fatalf("expected last_error cleared, got %q", updated.LastError)
	}
	if updated.NextRetryAt != nil {
		t.Fatalf("terminal rows must not be scheduled, got %v", updated.NextRetryAt)
	}

	attempts, err := store.ListAttempts(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(attempts))
	}
	if attempts[0].StatusCode == nil || *attempts[0].StatusCode != 200 {
		t.Fatalf("expected 200 attempt, got %+v", attempts[0].StatusCode)
	}
	if attempts[0].ResponseBody != "ok" {
		t.Fatalf("expected response body recorded, got %q", attempts[0].ResponseBody)
	}
}

func TestEventStore_RecordFailureReschedules(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	event := insertTestEvent(t, store)
	code := 503
	next := time.Now().UTC().Add(30 * time.Second)
	if err := store.RecordFailure(context.Background(), core.AttemptFailure{
		EventID:       event.ID,
		AttemptNumber: 1,
		StatusCode:    &code,
		ResponseBody:  "unavailable",
		NextRetryAt:   &next,
	}); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	updated, _ := store.Get(context.Background(), event.ID)
	if updated.Status != core.StatusPending {
		t.Fatalf("expected still pending, got %s", updated.Status)
	}
	if updated.AttemptCount != 1 {
		t.Fatalf("expected attempt count 1, got %d", updated.AttemptCount)
	}
	if updated.LastError != "HTTP 503: unavailable" {
		t.Fatalf("unexpected last_error %q", updated.LastError)
	}
	if updated.NextRetryAt == nil || updated.NextRetryAt.Before(time.Now().UTC().Add(20*time.Second)) {
		t.Fatalf("expected next_retry_at pushed out, got %v", updated.NextRetryAt)
	}

	attempts, _ := store.ListAttempts(context.Background(), event.ID)
	if len(attempts) != 1 {
		t.Fatalf("expected one attempt, got %d", len(attempts))
	}
}

func TestEventStore_RecordFailureDead(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	event := insertTestEvent(t, store)
	if err := store.RecordFailure(context.Background(), core.AttemptFailure{
		EventID:       event.ID,
		AttemptNumber: 1,
		Cause:         "dial tcp: connection refused",
		Dead:          true,
	}); err != nil {
		t.Fatalf("record failure: %v", err)
	}

	updated, _ := store.Get(context.Background(), event.ID)
	if updated.Status != core.StatusDead {
		t.Fatalf("expected dead, got %s", updated.Status)
	}
	if updated.LastError != "dial tcp: connection refused" {
		t.Fatalf("unexpected last_error %q", updated.LastError)
	}

	// Terminal rows never come back.
	claimed, err := store.ClaimBatch(context.Background(), 10, time.Minute)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if len(claimed) != 0 {
		t.Fatalf("dead rows must not be claimable, got %d", len(claimed))
	}
}

func TestEventStore_RecordFailureRequiresSchedule(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	event := insertTestEvent(t, store)
	err := store.RecordFailure(context.Background(), core.AttemptFailure{
		EventID:       event.ID,
		AttemptNumber: 1,
		Cause:         "boom",
	})
	if err == nil {
		t.Fatalf("expected error for non-terminal failure without next_retry_at")
	}
}

func TestEventStore_StaleClaimGuard(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	event := insertTestEvent(t, store)
	if err := store.RecordSuccess(context.Background(), event.ID, 1, 200, ""); err != nil {
		t.Fatalf("first record: %v", err)
	}

	// A second worker holding a lapsed lease tries to record the same
	// attempt; the guard rejects it and the attempt table stays intact.
	err := store.RecordSuccess(context.Background(), event.ID, 1, 200, "")
	if !errors.Is(err, core.ErrStaleClaim) {
		t.Fatalf("expected ErrStaleClaim, got %v", err)
	}

	attempts, _ := store.ListAttempts(context.Background(), event.ID)
	if len(attempts) != 1 {
		t.Fatalf("expected exactly one attempt row, got %d", len(attempts))
	}
}

func TestEventStore_AttemptOrdering(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	event := insertTestEvent(t, store)
	next := time.Now().UTC().Add(time.Second)
	for attempt := 1; attempt <= 3; attempt++ {
		code := 500
		failure := core.AttemptFailure{
			EventID:       event.ID,
			AttemptNumber: attempt,
			StatusCode:    &code,
			NextRetryAt:   &next,
		}
		if attempt == 3 {
			failure.NextRetryAt = nil
			failure.Dead = true
		}
		if err := store.RecordFailure(context.Background(), failure); err != nil {
			t.Fatalf("record failure %d: %v", attempt, err)
		}
	}

	attempts, err := store.ListAttempts(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("list attempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected three attempts, got %d", len(attempts))
	}
	for i, attempt := range attempts {
		if attempt.AttemptNumber != i+1 {
			t.Fatalf("expected ordered attempt numbers, got %+v", attempts)
		}
	}
}
