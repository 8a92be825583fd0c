package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-webhook-dispatcher/core"
)

var (
	_ gocmd.Querier[GetEventMessage, core.Event]          = (*GetEventQuery)(nil)
	_ gocmd.Querier[ListAttemptsMessage, []core.Attempt]  = (*ListAttemptsQuery)(nil)
	_ EventReader                                         = (*core.Service)(nil)
)
