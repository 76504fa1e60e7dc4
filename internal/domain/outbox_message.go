package domain

import "time"

type OutboxMessageStatus string

const (
	OutboxStatusPending OutboxMessageStatus = "PENDING"
	OutboxStatusSent    OutboxMessageStatus = "SENT"
	OutboxStatusFailed  OutboxMessageStatus = "FAILED"
)

// OutboxMessage is a notification queued inside the business transaction and
// delivered to Kafka asynchronously, so the email collaborator never sits on
// the payment commit path.
type OutboxMessage struct {
	ID          string
	PaymentID   int64
	MessageType string
	Payload     []byte
	Status      OutboxMessageStatus
	CreatedAt   time.Time
	SentAt      *time.Time
}
