package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// EventStore is the durable persistence boundary. All mutation happens in
// transactions with row-level locks; no event state is cached in process.
type EventStore interface {
	Insert(ctx context.Context, in InsertEvent) (Event, error)
	Get(ctx context.Context, id string) (Event, error)
	ListAttempts(ctx context.Context, eventID string) ([]Attempt, error)

	// ClaimBatch selects up to limit due pending rows, ordered by
	// next_retry_at ascending, under row locks that skip rows locked by
	// other workers, and advances each row's next_retry_at by lease as a
	// visibility window before committing. The returned events carry the
	// pre-lease attempt count.
	ClaimBatch(ctx context.Context, limit int, lease time.Duration) ([]Event, error)

	// RecordSuccess inserts the attempt row and marks the event delivered
	// in one transaction. The write is guarded by the claimed attempt
	// count; ErrStaleClaim is returned (and nothing recorded) when another
	// worker already advanced the row.
	RecordSuccess(ctx context.Context, eventID string, attemptNumber int, statusCode int, responseBody string) error

	// RecordFailure inserts the attempt row and either reschedules the
	// event or marks it dead, in one transaction, under the same guard.
	RecordFailure(ctx context.Context, failure AttemptFailure) error
}

// Sender issues one outbound POST. Implementations never panic and never
// return a partial outcome: every failure mode is folded into SendOutcome.
type Sender interface {
	Send(ctx context.Context, targetURL string, body []byte, headers http.Header) SendOutcome
}

// RetryPolicy maps the number of attempts already made to the delay before
// the next one.
type RetryPolicy interface {
	NextDelay(attempt int) time.Duration
}

// PayloadSigner computes the signature header value for a request body.
type PayloadSigner interface {
	Sign(body []byte) string
}

// SecretSource resolves the shared HMAC secret. Implementations live in the
// security package.
type SecretSource interface {
	Secret(ctx context.Context) ([]byte, error)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}
