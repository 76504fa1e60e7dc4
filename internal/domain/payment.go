package domain

import (
	"database/sql"
	"strings"
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PENDING"
	PaymentStatusSuccess  PaymentStatus = "SUCCESS"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment is one purchase intent. Rows are never deleted; they are the
// financial record of the purchase.
//
// CourseID is NULL when the payment covers a whole cart; the covered courses
// then live in payment_items.
type Payment struct {
	ID           int64
	UserID       int64
	CourseID     sql.NullInt64
	AmountCents  int64
	Currency     string
	Status       PaymentStatus
	GatewayTxnID sql.NullString
	CreatedAt    time.Time
	RefundedAt   *time.Time
}

// PaymentItem is a line item attaching one course's price to a cart payment.
type PaymentItem struct {
	ID          int64
	PaymentID   int64
	CourseID    int64
	AmountCents int64
	Currency    string
}

// CanTransition reports whether a payment may move from its current status to
// next. The machine is deliberately small: PENDING resolves once to SUCCESS or
// FAILED, and only SUCCESS can later become REFUNDED. A terminal state is never
// overridden by a later contradictory gateway event.
func (s PaymentStatus) CanTransition(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusSuccess || next == PaymentStatusFailed
	case PaymentStatusSuccess:
		return next == PaymentStatusRefunded
	default:
		return false
	}
}

// NormalizeCurrency upper-cases a 3-letter ISO 4217 code before persisting.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
