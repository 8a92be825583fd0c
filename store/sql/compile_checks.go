package sqlstore

import "github.com/goliatone/go-webhook-dispatcher/core"

var _ core.EventStore = (*EventStore)(nil)
