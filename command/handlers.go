package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhook-dispatcher/core"
)

type MutatingService interface {
	EnqueueEvent(ctx context.Context, req core.EnqueueRequest) (core.Event, error)
}

type EnqueueEventCommand struct {
	service MutatingService
}

func NewEnqueueEventCommand(service MutatingService) *EnqueueEventCommand {
	return &EnqueueEventCommand{service: service}
}

func (c *EnqueueEventCommand) Execute(ctx context.Context, msg EnqueueEventMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: enqueue service is required")
	}
	if err := msg.Validate(); err != nil {
		return commandWrapValidation(err, "command: enqueue message is invalid")
	}
	out, err := c.service.EnqueueEvent(ctx, core.EnqueueRequest{
		Payload:   msg.Payload,
		TargetURL: msg.TargetURL,
	})
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
