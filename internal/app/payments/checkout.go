package payments

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/domain"
	"coursepay/internal/gateway"
)

// CreateIntent creates a PENDING payment for one course, or returns the
// existing one so rapid client retries cannot produce duplicate charges.
//
// The gateway call happens after the PENDING row is committed: a gateway
// failure leaves the row behind, and the next attempt reuses it and retries
// the gateway with the same idempotency key.
func (s *paymentService) CreateIntent(ctx context.Context, userID, courseID int64) (*CheckoutResult, error) {
	var payment *domain.Payment

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Serialize concurrent checkouts for the same (user, course) so the
		// lookup-then-insert below cannot race into two PENDING rows.
		if err := s.paymentRepo.AcquireCheckoutLockTx(ctx, tx, userID, courseID); err != nil {
			return err
		}

		enrolled, err := s.enrollmentRepo.ExistsActiveTx(ctx, tx, userID, courseID)
		if err != nil {
			return err
		}
		if enrolled {
			return domain.ErrAlreadyEnrolled
		}

		existing, err := s.paymentRepo.FindLatestPendingForCourseTx(ctx, tx, userID, courseID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if existing != nil {
			payment = existing
			return nil
		}

		course, err := s.courseRepo.GetByIDTx(ctx, tx, courseID)
		if err != nil {
			return err
		}
		if !course.IsActive {
			return domain.ErrCourseInactive
		}
		if _, err := s.userRepo.GetByIDTx(ctx, tx, userID); err != nil {
			return err
		}

		payment = &domain.Payment{
			UserID:      userID,
			CourseID:    sql.NullInt64{Int64: courseID, Valid: true},
			AmountCents: course.PriceCents,
			Currency:    domain.NormalizeCurrency(course.Currency),
			Status:      domain.PaymentStatusPending,
			CreatedAt:   time.Now(),
		}
		return s.paymentRepo.CreateTx(ctx, tx, payment)
	})
	if err != nil {
		return nil, err
	}

	return s.finishCheckout(ctx, payment, map[string]string{
		"paymentId": strconv.FormatInt(payment.ID, 10),
		"userId":    strconv.FormatInt(userID, 10),
		"courseId":  strconv.FormatInt(courseID, 10),
	})
}

// CreateCartIntent charges a user's whole cart as one payment with one line
// item per purchasable course. Courses that are inactive or already enrolled
// are skipped. Currency handling is naive: the first purchasable course's
// currency wins and no mixed-currency reconciliation is attempted.
func (s *paymentService) CreateCartIntent(ctx context.Context, userID int64) (*CheckoutResult, error) {
	var payment *domain.Payment

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		// Cart checkouts share one advisory slot per user (course id 0).
		if err := s.paymentRepo.AcquireCheckoutLockTx(ctx, tx, userID, 0); err != nil {
			return err
		}

		existing, err := s.paymentRepo.FindLatestPendingCartTx(ctx, tx, userID)
		if err != nil && err != sql.ErrNoRows {
			return err
		}
		if existing != nil {
			payment = existing
			return nil
		}

		cart, err := s.cartRepo.GetByUserTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		items, err := s.cartRepo.ListItemsTx(ctx, tx, cart.ID)
		if err != nil {
			return err
		}

		var lineItems []domain.PaymentItem
		var totalCents int64
		currency := ""
		for _, item := range items {
			course, err := s.courseRepo.GetByIDTx(ctx, tx, item.CourseID)
			if err != nil {
				if err == domain.ErrCourseNotFound {
					continue
				}
				return err
			}
			if !course.IsActive {
				continue
			}
			enrolled, err := s.enrollmentRepo.ExistsActiveTx(ctx, tx, userID, course.ID)
			if err != nil {
				return err
			}
			if enrolled {
				continue
			}
			if currency == "" {
				currency = domain.NormalizeCurrency(course.Currency)
			}
			lineItems = append(lineItems, domain.PaymentItem{
				CourseID:    course.ID,
				AmountCents: course.PriceCents,
				Currency:    domain.NormalizeCurrency(course.Currency),
			})
			totalCents += course.PriceCents
		}
		if len(lineItems) == 0 {
			return domain.ErrCartEmpty
		}

		if _, err := s.userRepo.GetByIDTx(ctx, tx, userID); err != nil {
			return err
		}

		payment = &domain.Payment{
			UserID:      userID,
			AmountCents: totalCents,
			Currency:    currency,
			Status:      domain.PaymentStatusPending,
			CreatedAt:   time.Now(),
		}
		if err := s.paymentRepo.CreateTx(ctx, tx, payment); err != nil {
			return err
		}
		for i := range lineItems {
			lineItems[i].PaymentID = payment.ID
			if err := s.itemRepo.CreateTx(ctx, tx, &lineItems[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.finishCheckout(ctx, payment, map[string]string{
		"paymentId": strconv.FormatInt(payment.ID, 10),
		"userId":    strconv.FormatInt(userID, 10),
	})
}

// finishCheckout obtains the gateway client secret for a PENDING payment.
// A payment that already holds a gateway intent gets its secret re-fetched
// (cache first); one without an intent gets the gateway call it is still
// missing, with the payment id as the idempotency key.
func (s *paymentService) finishCheckout(ctx context.Context, payment *domain.Payment, metadata map[string]string) (*CheckoutResult, error) {
	result := &CheckoutResult{
		PaymentID:   payment.ID,
		AmountCents: payment.AmountCents,
		Currency:    payment.Currency,
		Status:      payment.Status,
	}

	if payment.GatewayTxnID.Valid {
		secret, err := s.resolveClientSecret(ctx, payment.GatewayTxnID.String)
		if err != nil {
			return nil, err
		}
		result.ClientSecret = secret
		return result, nil
	}

	intent, err := s.gatewayClient.CreateIntent(ctx, payment.AmountCents, payment.Currency, gateway.IdempotencyKey(payment.ID), metadata)
	if err != nil {
		s.logger.Warn("Gateway intent creation failed, pending payment kept for retry",
			zap.Int64("payment_id", payment.ID),
			zap.Error(err))
		return nil, err
	}

	err = s.inTx(ctx, func(tx *sql.Tx) error {
		return s.paymentRepo.SetGatewayTxnIDTx(ctx, tx, payment.ID, intent.ID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist gateway txn id for payment %d: %w", payment.ID, err)
	}

	if s.secretCache != nil {
		s.secretCache.Set(ctx, intent.ID, intent.ClientSecret)
	}
	result.ClientSecret = intent.ClientSecret
	return result, nil
}

func (s *paymentService) resolveClientSecret(ctx context.Context, gatewayTxnID string) (string, error) {
	if s.secretCache != nil {
		if secret, ok := s.secretCache.Get(ctx, gatewayTxnID); ok {
			return secret, nil
		}
	}
	intent, err := s.gatewayClient.RetrieveIntent(ctx, gatewayTxnID)
	if err != nil {
		return "", err
	}
	if s.secretCache != nil {
		s.secretCache.Set(ctx, gatewayTxnID, intent.ClientSecret)
	}
	return intent.ClientSecret, nil
}
