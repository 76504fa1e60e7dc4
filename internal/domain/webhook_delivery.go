package domain

import (
	"database/sql"
	"time"
)

type WebhookOutcome string

const (
	WebhookOutcomeApplied           WebhookOutcome = "APPLIED"
	WebhookOutcomeDuplicate         WebhookOutcome = "DUPLICATE"
	WebhookOutcomeUnmatched         WebhookOutcome = "UNMATCHED"
	WebhookOutcomeInvalidTransition WebhookOutcome = "INVALID_TRANSITION"
	WebhookOutcomeRejectedSignature WebhookOutcome = "REJECTED_SIGNATURE"
	WebhookOutcomeMalformed         WebhookOutcome = "MALFORMED"
)

// WebhookDelivery is the audit trail: one row per delivery attempt, including
// attempts rejected before any state change.
type WebhookDelivery struct {
	ID         string
	Gateway    string
	PaymentID  sql.NullInt64
	Payload    []byte
	Outcome    WebhookOutcome
	ReceivedAt time.Time
}
