package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

type webhookEventRecord struct {
	bun.BaseModel `bun:"table:webhook_events,alias:we"`

	ID           string          `bun:"id,pk"`
	Payload      json.RawMessage `bun:"payload,type:jsonb,notnull"`
	TargetURL    string          `bun:"target_url,notnull"`
	Status       string          `bun:"status,notnull"`
	AttemptCount int             `bun:"attempt_count,notnull"`
	LastError    *string         `bun:"last_error"`
	NextRetryAt  *time.Time      `bun:"next_retry_at,nullzero"`
	CreatedAt    time.Time       `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time       `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type deliveryAttemptRecord struct {
	bun.BaseModel `bun:"table:delivery_attempts,alias:da"`

	ID            string    `bun:"id,pk"`
	EventID       string    `bun:"event_id,notnull"`
	AttemptNumber int       `bun:"attempt_number,notnull"`
	StatusCode    *int      `bun:"status_code"`
	ResponseBody  *string   `bun:"response_body"`
	Error         *string   `bun:"error"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
