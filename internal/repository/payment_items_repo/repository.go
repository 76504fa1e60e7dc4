package payment_items_repo

import (
	"context"

	"coursepay/internal/domain"
)

type PaymentItemRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, item *domain.PaymentItem) error
	ListByPaymentTx(ctx context.Context, querier domain.Querier, paymentID int64) ([]domain.PaymentItem, error)
}
