package payments_repo

import (
	"context"
	"time"

	"coursepay/internal/domain"
)

// PaymentRepository persists purchase intents. All read-modify-write callers
// are expected to hold the row lock taken by the ForUpdate variants for the
// duration of their transaction.
type PaymentRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error
	GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Payment, error)
	GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Payment, error)
	GetByGatewayTxnIDForUpdateTx(ctx context.Context, querier domain.Querier, gatewayTxnID string) (*domain.Payment, error)
	FindLatestPendingForCourseTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (*domain.Payment, error)
	FindLatestPendingCartTx(ctx context.Context, querier domain.Querier, userID int64) (*domain.Payment, error)
	SetGatewayTxnIDTx(ctx context.Context, querier domain.Querier, id int64, gatewayTxnID string) error
	UpdateStatusTx(ctx context.Context, querier domain.Querier, id int64, status domain.PaymentStatus) error
	MarkRefundedTx(ctx context.Context, querier domain.Querier, id int64, refundedAt time.Time) error
	ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]domain.Payment, error)
	ListByCreatedRangeTx(ctx context.Context, querier domain.Querier, from, to time.Time) ([]domain.Payment, error)
	AcquireCheckoutLockTx(ctx context.Context, querier domain.Querier, userID, courseID int64) error
}
