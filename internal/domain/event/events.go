package event

import (
	"time"

	"coursepay/internal/domain"
)

// GatewayEvent is the single normalized shape every gateway payload is parsed
// into before it reaches the state machine. Exactly one of PaymentID and
// GatewayTxnID may be zero; resolution tries the transaction id first.
type GatewayEvent struct {
	Gateway      string
	PaymentID    int64
	GatewayTxnID string
	Status       domain.PaymentStatus
}

// Notification message types carried through the outbox to the email service.
const (
	MessagePaymentReceipt         = "payment.receipt.v1"
	MessageEnrollmentConfirmation = "enrollment.confirmation.v1"
	MessagePaymentRefunded        = "payment.refunded.v1"
)

type PaymentReceiptEvent struct {
	PaymentID   int64     `json:"paymentId"`
	UserID      int64     `json:"userId"`
	Email       string    `json:"email"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type EnrollmentConfirmationEvent struct {
	PaymentID   int64     `json:"paymentId"`
	UserID      int64     `json:"userId"`
	Email       string    `json:"email"`
	CourseID    int64     `json:"courseId"`
	CourseTitle string    `json:"courseTitle"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type PaymentRefundedEvent struct {
	PaymentID   int64     `json:"paymentId"`
	UserID      int64     `json:"userId"`
	Email       string    `json:"email"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `json:"currency"`
	OccurredAt  time.Time `json:"occurredAt"`
}
