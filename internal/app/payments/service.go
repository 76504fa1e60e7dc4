package payments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/cache"
	"coursepay/internal/domain"
	"coursepay/internal/domain/event"
	"coursepay/internal/gateway"
	"coursepay/internal/notification"
	"coursepay/internal/repository/carts_repo"
	"coursepay/internal/repository/courses_repo"
	"coursepay/internal/repository/enrollments_repo"
	"coursepay/internal/repository/payment_items_repo"
	"coursepay/internal/repository/payments_repo"
	"coursepay/internal/repository/users_repo"
	"coursepay/internal/repository/webhook_deliveries_repo"
)

// CheckoutResult is returned to the client confirming the payment on the
// gateway's frontend SDK.
type CheckoutResult struct {
	PaymentID    int64
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       domain.PaymentStatus
}

type PaymentService interface {
	CreateIntent(ctx context.Context, userID, courseID int64) (*CheckoutResult, error)
	CreateCartIntent(ctx context.Context, userID int64) (*CheckoutResult, error)
	ApplyGatewayEvent(ctx context.Context, ev *event.GatewayEvent, rawPayload []byte) (domain.WebhookOutcome, error)
	RecordRejectedWebhook(ctx context.Context, gatewayName string, rawPayload []byte, outcome domain.WebhookOutcome)
	Refund(ctx context.Context, paymentID int64) error
	ListUserPayments(ctx context.Context, userID int64) ([]domain.Payment, error)
	ListPaymentsInRange(ctx context.Context, from, to time.Time) ([]domain.Payment, error)
}

type paymentService struct {
	db             *sql.DB
	paymentRepo    payments_repo.PaymentRepository
	itemRepo       payment_items_repo.PaymentItemRepository
	enrollmentRepo enrollments_repo.EnrollmentRepository
	courseRepo     courses_repo.CourseRepository
	userRepo       users_repo.UserRepository
	cartRepo       carts_repo.CartRepository
	deliveryRepo   webhook_deliveries_repo.WebhookDeliveryRepository
	gatewayClient  gateway.Client
	secretCache    cache.SecretCache
	notifier       notification.Notifier
	logger         *zap.Logger
}

func NewPaymentService(
	db *sql.DB,
	paymentRepo payments_repo.PaymentRepository,
	itemRepo payment_items_repo.PaymentItemRepository,
	enrollmentRepo enrollments_repo.EnrollmentRepository,
	courseRepo courses_repo.CourseRepository,
	userRepo users_repo.UserRepository,
	cartRepo carts_repo.CartRepository,
	deliveryRepo webhook_deliveries_repo.WebhookDeliveryRepository,
	gatewayClient gateway.Client,
	secretCache cache.SecretCache,
	notifier notification.Notifier,
	logger *zap.Logger,
) PaymentService {
	return &paymentService{
		db:             db,
		paymentRepo:    paymentRepo,
		itemRepo:       itemRepo,
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		userRepo:       userRepo,
		cartRepo:       cartRepo,
		deliveryRepo:   deliveryRepo,
		gatewayClient:  gatewayClient,
		secretCache:    secretCache,
		notifier:       notifier,
		logger:         logger,
	}
}

// inTx runs fn inside one transaction, rolling back on error or panic.
func (s *paymentService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			s.logger.Error("Failed to roll back transaction", zap.Error(rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// coveredCourses returns every (courseID, amount) pair a payment pays for:
// the single course for direct checkouts, the payment_items for cart payments.
func (s *paymentService) coveredCourses(ctx context.Context, querier domain.Querier, payment *domain.Payment) ([]domain.PaymentItem, error) {
	if payment.CourseID.Valid {
		return []domain.PaymentItem{{
			PaymentID:   payment.ID,
			CourseID:    payment.CourseID.Int64,
			AmountCents: payment.AmountCents,
			Currency:    payment.Currency,
		}}, nil
	}
	items, err := s.itemRepo.ListByPaymentTx(ctx, querier, payment.ID)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *paymentService) ListUserPayments(ctx context.Context, userID int64) ([]domain.Payment, error) {
	payments, err := s.paymentRepo.ListByUserTx(ctx, s.db, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user %d: %w", userID, err)
	}
	return payments, nil
}

func (s *paymentService) ListPaymentsInRange(ctx context.Context, from, to time.Time) ([]domain.Payment, error) {
	payments, err := s.paymentRepo.ListByCreatedRangeTx(ctx, s.db, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}
