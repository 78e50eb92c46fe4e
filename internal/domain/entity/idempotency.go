package entity

import "time"

// IdempotencyKey stores the response of a processed write so a retried request
// from the same terminal replays it instead of writing twice.
type IdempotencyKey struct {
	Key          string
	TerminalID   string
	Endpoint     string
	ResponseCode int
	ResponseBody string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// IsExpired checks if the idempotency key has expired
func (i *IdempotencyKey) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}
