package payments

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/domain"
)

// Refund reverses a successful payment: the payment becomes REFUNDED and
// every ACTIVE enrollment the payment paid for is CANCELED, atomically.
// Payments in any other state fail with ErrNotRefundable and nothing mutates.
//
// The monetary refund on the gateway side is not executed here; that
// integration is out of scope and is logged loudly instead of assumed done.
func (s *paymentService) Refund(ctx context.Context, paymentID int64) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		payment, err := s.paymentRepo.GetByIDForUpdateTx(ctx, tx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != domain.PaymentStatusSuccess {
			return domain.ErrNotRefundable
		}

		now := time.Now()
		if err := s.paymentRepo.MarkRefundedTx(ctx, tx, payment.ID, now); err != nil {
			return err
		}

		items, err := s.coveredCourses(ctx, tx, payment)
		if err != nil {
			return err
		}
		for _, item := range items {
			canceled, err := s.enrollmentRepo.CancelActiveTx(ctx, tx, payment.UserID, item.CourseID, now)
			if err != nil {
				return err
			}
			if canceled {
				s.logger.Info("Enrollment canceled by refund",
					zap.Int64("payment_id", payment.ID),
					zap.Int64("user_id", payment.UserID),
					zap.Int64("course_id", item.CourseID))
			} else {
				s.logger.Info("No active enrollment to cancel for refund",
					zap.Int64("payment_id", payment.ID),
					zap.Int64("course_id", item.CourseID))
			}
		}

		if user, err := s.userRepo.GetByIDTx(ctx, tx, payment.UserID); err == nil {
			s.notifier.PaymentRefunded(ctx, tx, payment, user)
		} else {
			s.logger.Warn("User lookup failed for refund notification",
				zap.Int64("user_id", payment.UserID),
				zap.Error(err))
		}

		s.logger.Warn("Payment refunded locally; gateway-side refund NOT executed (integration out of scope)",
			zap.Int64("payment_id", payment.ID),
			zap.Int64("amount_cents", payment.AmountCents))
		return nil
	})
}
