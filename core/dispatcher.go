package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

type deliveryResult int

const (
	deliveryDelivered deliveryResult = iota
	deliveryRetried
	deliveryDead
	deliveryStale
	deliveryErrored
)

// Dispatcher drives the event state machine: claim due rows, send the
// signed payload, record the outcome, reschedule or retire. Any number of
// dispatchers may run against one database; the claim lease keeps them off
// each other's rows.
type Dispatcher struct {
	store   EventStore
	sender  Sender
	signer  PayloadSigner
	policy  RetryPolicy
	config  Config
	logger  Logger
	metrics MetricsRecorder
	now     func() time.Time
}

type DispatcherOption func(*Dispatcher)

func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithDispatcherMetrics(recorder MetricsRecorder) DispatcherOption {
	return func(d *Dispatcher) {
		d.metrics = recorder
	}
}

func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

func NewDispatcher(
	store EventStore,
	sender Sender,
	signer PayloadSigner,
	policy RetryPolicy,
	config Config,
	opts ...DispatcherOption,
) (*Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("core: event store is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("core: sender is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("core: payload signer is required")
	}
	if policy == nil {
		return nil, fmt.Errorf("core: retry policy is required")
	}
	dispatcher := &Dispatcher{
		store:   store,
		sender:  sender,
		signer:  signer,
		policy:  policy,
		config:  config,
		metrics: NopMetricsRecorder{},
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(dispatcher)
	}
	return dispatcher, nil
}

// DispatchPending claims up to batchSize due events and processes each one.
// Store errors are folded into the returned error but never stop the batch;
// the affected rows become due again when their lease expires.
func (d *Dispatcher) DispatchPending(ctx context.Context, batchSize int) (DispatchStats, error) {
	if d == nil || d.store == nil {
		return DispatchStats{}, fmt.Errorf("core: dispatcher is not configured")
	}
	limit := batchSize
	if limit <= 0 {
		limit = d.config.Worker.ClaimLimit
	}

	events, err := d.store.ClaimBatch(ctx, limit, d.config.ClaimLease())
	if err != nil {
		return DispatchStats{}, err
	}

	stats := DispatchStats{Claimed: len(events)}
	if len(events) == 0 {
		return stats, nil
	}

	var (
		mu          sync.Mutex
		dispatchErr error
	)
	record := func(result deliveryResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		switch result {
		case deliveryDelivered:
			stats.Delivered++
		case deliveryRetried:
			stats.Retried++
		case deliveryDead:
			stats.Dead++
		}
		if err != nil {
			dispatchErr = errors.Join(dispatchErr, err)
		}
	}

	concurrency := d.config.Worker.Concurrency
	if concurrency <= 1 {
		for _, event := range events {
			record(d.deliver(ctx, event))
		}
		return stats, dispatchErr
	}

	var wg sync.WaitGroup
	slots := make(chan struct{}, concurrency)
	for _, event := range events {
		wg.Add(1)
		slots <- struct{}{}
		go func(event Event) {
			defer wg.Done()
			defer func() { <-slots }()
			record(d.deliver(ctx, event))
		}(event)
	}
	wg.Wait()
	return stats, dispatchErr
}

// deliver executes one attempt for a claimed event: serialize-once payload
// bytes, sign, POST, record.
func (d *Dispatcher) deliver(ctx context.Context, event Event) (deliveryResult, error) {
	attemptNumber := event.AttemptCount + 1
	body := []byte(event.Payload)

	headers := http.Header{}
	headers.Set("Content-Type", "application/json")
	headers.Set(SignatureHeader, d.signer.Sign(body))

	startedAt := d.now()
	outcome := d.sender.Send(ctx, event.TargetURL, body, headers)
	d.observeAttempt(ctx, event, attemptNumber, outcome, time.Since(startedAt))

	if outcome.Delivered() {
		err := d.store.RecordSuccess(ctx, event.ID, attemptNumber, outcome.StatusCode, string(outcome.Body))
		if errors.Is(err, ErrStaleClaim) {
			d.logWarn(ctx, "stale claim on success, outcome discarded", map[string]any{
				"event_id": event.ID,
				"attempt":  attemptNumber,
			})
			return deliveryStale, nil
		}
		if err != nil {
			return deliveryErrored, fmt.Errorf("core: record success for event %s: %w", event.ID, err)
		}
		d.logInfo(ctx, "event delivered", map[string]any{
			"event_id": event.ID,
			"attempts": attemptNumber,
		})
		return deliveryDelivered, nil
	}

	failure := AttemptFailure{
		EventID:       event.ID,
		AttemptNumber: attemptNumber,
		ResponseBody:  string(outcome.Body),
	}
	if outcome.Err != nil {
		failure.Cause = outcome.Err.Error()
	} else {
		code := outcome.StatusCode
		failure.StatusCode = &code
	}

	result := deliveryRetried
	if attemptNumber >= d.config.MaxAttempts {
		failure.Dead = true
		result = deliveryDead
	} else {
		next := d.now().Add(d.policy.NextDelay(attemptNumber))
		failure.NextRetryAt = &next
	}

	err := d.store.RecordFailure(ctx, failure)
	if errors.Is(err, ErrStaleClaim) {
		d.logWarn(ctx, "stale claim on failure, outcome discarded", map[string]any{
			"event_id": event.ID,
			"attempt":  attemptNumber,
		})
		return deliveryStale, nil
	}
	if err != nil {
		return deliveryErrored, fmt.Errorf("core: record failure for event %s: %w", event.ID, err)
	}

	if failure.Dead {
		d.logError(ctx, "event dead, retries exhausted", map[string]any{
			"event_id": event.ID,
			"attempts": attemptNumber,
			"error":    outcome.Summary(),
		})
	} else {
		d.logInfo(ctx, "event scheduled for retry", map[string]any{
			"event_id":      event.ID,
			"attempt":       attemptNumber,
			"next_retry_at": failure.NextRetryAt.Format(time.RFC3339),
			"error":         outcome.Summary(),
		})
	}
	return result, nil
}

// Run polls until ctx is canceled. On shutdown no new batches are claimed;
// the batch in flight is detached from the cancellation and bounded by the
// shutdown grace so attempts already on the wire get to record an outcome.
func (d *Dispatcher) Run(ctx context.Context) error {
	if d == nil || d.store == nil {
		return fmt.Errorf("core: dispatcher is not configured")
	}
	interval := d.config.Worker.PollInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.logInfo(ctx, "worker started", map[string]any{
		"poll_interval": interval.String(),
		"claim_limit":   d.config.Worker.ClaimLimit,
		"concurrency":   d.config.Worker.Concurrency,
	})

	for {
		select {
		case <-ctx.Done():
			d.logInfo(context.Background(), "worker stopped", map[string]any{
				"reason": ctx.Err().Error(),
			})
			return nil
		case <-ticker.C:
		}

		batchCtx, finish := d.batchContext(ctx)
		stats, err := d.DispatchPending(batchCtx, d.config.Worker.ClaimLimit)
		finish()
		if err != nil {
			d.logError(context.Background(), "dispatch batch failed", map[string]any{
				"error": err.Error(),
			})
			continue
		}
		if stats.Claimed > 0 {
			d.logInfo(context.Background(), "dispatch batch completed", map[string]any{
				"claimed":   stats.Claimed,
				"delivered": stats.Delivered,
				"retried":   stats.Retried,
				"dead":      stats.Dead,
			})
		}
	}
}

// batchContext detaches a batch from shutdown cancellation. When the parent
// is canceled the batch keeps running for the shutdown grace period, then
// is cut off; abandoned rows stay pending and reappear after their lease.
func (d *Dispatcher) batchContext(parent context.Context) (context.Context, context.CancelFunc) {
	detached, cancel := context.WithCancel(context.WithoutCancel(parent))
	stop := context.AfterFunc(parent, func() {
		grace := d.config.Worker.ShutdownGrace
		if grace <= 0 {
			cancel()
			return
		}
		time.AfterFunc(grace, cancel)
	})
	return detached, func() {
		stop()
		cancel()
	}
}
