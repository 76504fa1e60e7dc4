package payments

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/domain"
	"coursepay/internal/domain/event"
	"coursepay/internal/util"
)

// ApplyGatewayEvent runs the webhook state machine for one normalized gateway
// event. Resolution, transition, enrollment side effects and the audit row
// commit in a single transaction; the payment row is locked for its duration
// so concurrent deliveries for the same payment serialize.
//
// The returned outcome distinguishes an applied transition from the safely
// ignored cases (duplicate, unmatched, invalid transition), all of which the
// caller acknowledges with 200 to stop gateway retries.
func (s *paymentService) ApplyGatewayEvent(ctx context.Context, ev *event.GatewayEvent, rawPayload []byte) (domain.WebhookOutcome, error) {
	var outcome domain.WebhookOutcome

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		payment, err := s.resolvePayment(ctx, tx, ev)
		if err != nil {
			return err
		}
		if payment == nil {
			s.logger.Warn("Webhook event matches no payment, acknowledging without action",
				zap.String("gateway", ev.Gateway),
				zap.String("gateway_txn_id", ev.GatewayTxnID),
				zap.Int64("payment_id", ev.PaymentID))
			outcome = domain.WebhookOutcomeUnmatched
			return s.audit(ctx, tx, ev, nil, outcome, rawPayload)
		}

		switch {
		case payment.Status == ev.Status:
			// Duplicate delivery of a terminal event.
			s.logger.Info("Payment already in reported status, idempotent webhook",
				zap.Int64("payment_id", payment.ID),
				zap.String("status", string(payment.Status)))
			outcome = domain.WebhookOutcomeDuplicate
			return s.audit(ctx, tx, ev, payment, outcome, rawPayload)

		case !payment.Status.CanTransition(ev.Status):
			// A terminal state is never overridden by a later contradictory
			// event; leave the row for manual reconciliation.
			s.logger.Warn("Webhook reports a transition the state machine forbids, ignoring",
				zap.Int64("payment_id", payment.ID),
				zap.String("current_status", string(payment.Status)),
				zap.String("incoming_status", string(ev.Status)))
			outcome = domain.WebhookOutcomeInvalidTransition
			return s.audit(ctx, tx, ev, payment, outcome, rawPayload)

		case ev.Status == domain.PaymentStatusSuccess:
			if err := s.applySuccess(ctx, tx, payment, ev); err != nil {
				return err
			}

		case ev.Status == domain.PaymentStatusFailed:
			if err := s.paymentRepo.UpdateStatusTx(ctx, tx, payment.ID, domain.PaymentStatusFailed); err != nil {
				return err
			}
			s.logger.Info("Payment marked FAILED", zap.Int64("payment_id", payment.ID))
		}

		outcome = domain.WebhookOutcomeApplied
		return s.audit(ctx, tx, ev, payment, outcome, rawPayload)
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

// resolvePayment locks and returns the payment an event refers to: gateway
// transaction id first, then the embedded payment id. nil means unmatched.
func (s *paymentService) resolvePayment(ctx context.Context, tx *sql.Tx, ev *event.GatewayEvent) (*domain.Payment, error) {
	if ev.GatewayTxnID != "" {
		payment, err := s.paymentRepo.GetByGatewayTxnIDForUpdateTx(ctx, tx, ev.GatewayTxnID)
		if err == nil {
			return payment, nil
		}
		if err != domain.ErrPaymentNotFound {
			return nil, err
		}
	}
	if ev.PaymentID != 0 {
		payment, err := s.paymentRepo.GetByIDForUpdateTx(ctx, tx, ev.PaymentID)
		if err == nil {
			return payment, nil
		}
		if err != domain.ErrPaymentNotFound {
			return nil, err
		}
	}
	return nil, nil
}

// applySuccess transitions a PENDING payment to SUCCESS and grants the access
// the purchase paid for: one enrollment per covered course, created only if
// the (user, course) pair has none yet. Notifications are queued through the
// outbox and never fail the transition.
func (s *paymentService) applySuccess(ctx context.Context, tx *sql.Tx, payment *domain.Payment, ev *event.GatewayEvent) error {
	if err := s.paymentRepo.UpdateStatusTx(ctx, tx, payment.ID, domain.PaymentStatusSuccess); err != nil {
		return err
	}
	if ev.GatewayTxnID != "" && (!payment.GatewayTxnID.Valid || payment.GatewayTxnID.String != ev.GatewayTxnID) {
		if err := s.paymentRepo.SetGatewayTxnIDTx(ctx, tx, payment.ID, ev.GatewayTxnID); err != nil {
			return err
		}
	}

	user, err := s.userRepo.GetByIDTx(ctx, tx, payment.UserID)
	if err != nil {
		return err
	}

	items, err := s.coveredCourses(ctx, tx, payment)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, item := range items {
		exists, err := s.enrollmentRepo.ExistsTx(ctx, tx, payment.UserID, item.CourseID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		enrollment := &domain.Enrollment{
			UserID:    payment.UserID,
			CourseID:  item.CourseID,
			Status:    domain.EnrollmentStatusActive,
			CreatedAt: now,
		}
		if err := s.enrollmentRepo.CreateTx(ctx, tx, enrollment); err != nil {
			if err == domain.ErrAlreadyEnrolled {
				continue
			}
			return err
		}
		s.logger.Info("Enrollment created",
			zap.Int64("payment_id", payment.ID),
			zap.Int64("user_id", payment.UserID),
			zap.Int64("course_id", item.CourseID))

		if course, err := s.courseRepo.GetByIDTx(ctx, tx, item.CourseID); err == nil {
			s.notifier.EnrollmentConfirmation(ctx, tx, payment, user, course)
		} else {
			s.logger.Warn("Course lookup failed for enrollment confirmation",
				zap.Int64("course_id", item.CourseID),
				zap.Error(err))
		}
	}

	s.notifier.PaymentReceipt(ctx, tx, payment, user)
	s.logger.Info("Payment marked SUCCESS", zap.Int64("payment_id", payment.ID))
	return nil
}

func (s *paymentService) audit(ctx context.Context, querier domain.Querier, ev *event.GatewayEvent, payment *domain.Payment, outcome domain.WebhookOutcome, rawPayload []byte) error {
	delivery := &domain.WebhookDelivery{
		ID:         util.NewID(),
		Gateway:    ev.Gateway,
		Payload:    rawPayload,
		Outcome:    outcome,
		ReceivedAt: time.Now(),
	}
	if payment != nil {
		delivery.PaymentID = sql.NullInt64{Int64: payment.ID, Valid: true}
	}
	return s.deliveryRepo.CreateTx(ctx, querier, delivery)
}

// RecordRejectedWebhook persists an audit row for attempts rejected before
// reaching the state machine (bad signature, unparseable payload). Best
// effort: the caller has already decided the response.
func (s *paymentService) RecordRejectedWebhook(ctx context.Context, gatewayName string, rawPayload []byte, outcome domain.WebhookOutcome) {
	delivery := &domain.WebhookDelivery{
		ID:         util.NewID(),
		Gateway:    gatewayName,
		Payload:    rawPayload,
		Outcome:    outcome,
		ReceivedAt: time.Now(),
	}
	if err := s.deliveryRepo.CreateTx(ctx, s.db, delivery); err != nil {
		s.logger.Error("Failed to record rejected webhook attempt",
			zap.String("gateway", gatewayName),
			zap.String("outcome", string(outcome)),
			zap.Error(err))
	}
}
