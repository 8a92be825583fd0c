package core

import (
	"context"
	"strings"
	"time"
)

func (d *Dispatcher) observeAttempt(
	ctx context.Context,
	event Event,
	attemptNumber int,
	outcome SendOutcome,
	elapsed time.Duration,
) {
	if d == nil {
		return
	}
	status := "failure"
	if outcome.Delivered() {
		status = "success"
	}
	tags := map[string]string{
		"status": status,
	}
	d.recordCounter(ctx, "dispatcher.attempts.total", 1, tags)
	d.recordHistogram(ctx, "dispatcher.attempts.duration_ms", float64(elapsed.Milliseconds()), tags)

	if outcome.Delivered() {
		return
	}
	d.logWarn(ctx, "delivery attempt failed", map[string]any{
		"event_id": event.ID,
		"attempt":  attemptNumber,
		"error":    outcome.Summary(),
	})
}

func (d *Dispatcher) recordCounter(ctx context.Context, name string, value int64, tags map[string]string) {
	if d == nil || d.metrics == nil {
		return
	}
	d.metrics.IncCounter(ctx, name, value, cloneTags(tags))
}

func (d *Dispatcher) recordHistogram(ctx context.Context, name string, value float64, tags map[string]string) {
	if d == nil || d.metrics == nil {
		return
	}
	d.metrics.ObserveHistogram(ctx, name, value, cloneTags(tags))
}

func (d *Dispatcher) logInfo(ctx context.Context, message string, fields map[string]any) {
	d.logWithLevel(ctx, "info", message, fields)
}

func (d *Dispatcher) logWarn(ctx context.Context, message string, fields map[string]any) {
	d.logWithLevel(ctx, "warn", message, fields)
}

func (d *Dispatcher) logError(ctx context.Context, message string, fields map[string]any) {
	d.logWithLevel(ctx, "error", message, fields)
}

func (d *Dispatcher) logWithLevel(ctx context.Context, level string, message string, fields map[string]any) {
	if d == nil || d.logger == nil {
		return
	}
	logger := d.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		logger = fieldsLogger.WithFields(cloneFields(fields))
	}
	args := flattenFields(fields)
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "error":
		logger.Error(message, args...)
	case "warn":
		logger.Warn(message, args...)
	default:
		logger.Info(message, args...)
	}
}

func cloneFields(fields map[string]any) map[string]any {
	if len(fields) == 0 {
		return map[string]any{}
	}
	copied := make(map[string]any, len(fields))
	for key, value := range fields {
		copied[key] = value
	}
	return copied
}

func flattenFields(fields map[string]any) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}
	return args
}
