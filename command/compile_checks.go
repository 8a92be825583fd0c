package command

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhook-dispatcher/core"
)

var (
	_ gocmd.Commander[EnqueueEventMessage] = (*EnqueueEventCommand)(nil)
	_ MutatingService                      = (*core.Service)(nil)
)
