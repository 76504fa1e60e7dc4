package notification

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/domain"
	"coursepay/internal/domain/event"
	"coursepay/internal/repository/outbox_repo"
	"coursepay/internal/util"
)

// Notifier queues emails for the external email service. Nothing here is part
// of the consistency guarantee: every method logs failures and returns
// nothing, so a broken sink can never roll back a payment transition.
type Notifier interface {
	PaymentReceipt(ctx context.Context, querier domain.Querier, payment *domain.Payment, user *domain.User)
	EnrollmentConfirmation(ctx context.Context, querier domain.Querier, payment *domain.Payment, user *domain.User, course *domain.Course)
	PaymentRefunded(ctx context.Context, querier domain.Querier, payment *domain.Payment, user *domain.User)
}

// outboxNotifier writes notification payloads into the outbox table inside
// the caller's transaction; the outbox processor ships them to Kafka, where
// the email service picks them up.
type outboxNotifier struct {
	outboxRepo outbox_repo.OutboxRepository
	logger     *zap.Logger
}

func NewOutboxNotifier(outboxRepo outbox_repo.OutboxRepository, logger *zap.Logger) *outboxNotifier {
	return &outboxNotifier{outboxRepo: outboxRepo, logger: logger}
}

func (n *outboxNotifier) PaymentReceipt(ctx context.Context, querier domain.Querier, payment *domain.Payment, user *domain.User) {
	n.enqueue(ctx, querier, payment.ID, event.MessagePaymentReceipt, event.PaymentReceiptEvent{
		PaymentID:   payment.ID,
		UserID:      user.ID,
		Email:       user.Email,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		OccurredAt:  time.Now(),
	})
}

func (n *outboxNotifier) EnrollmentConfirmation(ctx context.Context, querier domain.Querier, payment *domain.Payment, user *domain.User, course *domain.Course) {
	n.enqueue(ctx, querier, payment.ID, event.MessageEnrollmentConfirmation, event.EnrollmentConfirmationEvent{
		PaymentID:   payment.ID,
		UserID:      user.ID,
		Email:       user.Email,
		CourseID:    course.ID,
		CourseTitle: course.Title,
		OccurredAt:  time.Now(),
	})
}

func (n *outboxNotifier) PaymentRefunded(ctx context.Context, querier domain.Querier, payment *domain.Payment, user *domain.User) {
	n.enqueue(ctx, querier, payment.ID, event.MessagePaymentRefunded, event.PaymentRefundedEvent{
		PaymentID:   payment.ID,
		UserID:      user.ID,
		Email:       user.Email,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		OccurredAt:  time.Now(),
	})
}

func (n *outboxNotifier) enqueue(ctx context.Context, querier domain.Querier, paymentID int64, messageType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("Failed to encode notification payload",
			zap.String("message_type", messageType),
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
		return
	}

	msg := &domain.OutboxMessage{
		ID:          util.NewID(),
		PaymentID:   paymentID,
		MessageType: messageType,
		Payload:     body,
		Status:      domain.OutboxStatusPending,
		CreatedAt:   time.Now(),
	}
	if err := n.outboxRepo.CreateMessageTx(ctx, querier, msg); err != nil {
		n.logger.Error("Failed to queue notification, continuing without it",
			zap.String("message_type", messageType),
			zap.Int64("payment_id", paymentID),
			zap.Error(err))
	}
}
