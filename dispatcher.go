// Package dispatcher is the facade over the webhook dispatcher: a durable,
// at-least-once delivery engine backed by a relational event queue.
package dispatcher

import "github.com/goliatone/go-webhook-dispatcher/core"

type Config = core.Config

type BackoffConfig = core.BackoffConfig

type WorkerConfig = core.WorkerConfig

type Event = core.Event

type Attempt = core.Attempt

type Status = core.Status

type EventStore = core.EventStore

type Service = core.Service

type Dispatcher = core.Dispatcher

type SendOutcome = core.SendOutcome

type DispatchStats = core.DispatchStats

const (
	StatusPending   = core.StatusPending
	StatusDelivered = core.StatusDelivered
	StatusDead      = core.StatusDead
)

const SignatureHeader = core.SignatureHeader

var (
	WithServiceLogger     = core.WithServiceLogger
	WithDispatcherLogger  = core.WithDispatcherLogger
	WithDispatcherMetrics = core.WithDispatcherMetrics
	WithDispatcherClock   = core.WithDispatcherClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(store EventStore, cfg Config, opts ...core.ServiceOption) (*Service, error) {
	return core.NewService(store, cfg, opts...)
}

func NewDispatcher(
	store EventStore,
	sender core.Sender,
	signer core.PayloadSigner,
	policy core.RetryPolicy,
	cfg Config,
	opts ...core.DispatcherOption,
) (*Dispatcher, error) {
	return core.NewDispatcher(store, sender, signer, policy, cfg, opts...)
}
