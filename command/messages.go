package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TypeEnqueueEvent = "dispatcher.command.event.enqueue"
)

type EnqueueEventMessage struct {
	Payload   json.RawMessage
	TargetURL string
}

func (EnqueueEventMessage) Type() string { return TypeEnqueueEvent }

func (m EnqueueEventMessage) Validate() error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("command: event payload is required")
	}
	if !json.Valid(m.Payload) {
		return fmt.Errorf("command: event payload must be valid JSON")
	}
	if trimmed := bytes.TrimLeft(m.Payload, " \t\r\n"); len(trimmed) == 0 || trimmed[0] != '{' {
		return fmt.Errorf("command: event payload must be a JSON object")
	}
	if trimmed := strings.TrimSpace(m.TargetURL); trimmed != "" {
		if !strings.HasPrefix(trimmed, "http://") && !strings.HasPrefix(trimmed, "https://") {
			return fmt.Errorf("command: target url must be http or https")
		}
	}
	return nil
}
