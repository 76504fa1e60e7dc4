package util

import "github.com/google/uuid"

// NewID returns a random UUID string for outbox messages and webhook
// delivery audit rows.
func NewID() string {
	return uuid.NewString()
}
