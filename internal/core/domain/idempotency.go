package domain

import (
	"time"
)

// IdempotencyLog caches the full response of a completed command so retries
// (network timeout, duplicate webhook, process restart) return the prior
// result instead of reapplying the financial effect.
type IdempotencyLog struct {
	Key          string    `json:"key"`
	Operation    string    `json:"operation"` // e.g. "create_hold", "resolve_hold"
	ResponseJSON []byte    `json:"response_json"`
	CreatedAt    time.Time `json:"created_at"`
}

// Idempotency operations recorded in the log.
const (
	OpCreateHold  = "create_hold"
	OpResolveHold = "resolve_hold"
	OpDisputeHold = "dispute_hold"
	OpTopUp       = "top_up"
	OpAdjustment  = "adjustment"
)

// BuildOperationKey namespaces an idempotency key by operation, so the same
// caller-supplied token cannot collide across command types.
func BuildOperationKey(operation, key string) string {
	return operation + ":" + key
}
