package webhook_deliveries_repo

import (
	"context"

	"coursepay/internal/domain"
)

// WebhookDeliveryRepository is the audit log for every webhook attempt,
// including the ones rejected before touching any payment state.
type WebhookDeliveryRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, delivery *domain.WebhookDelivery) error
}
