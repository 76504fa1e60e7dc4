package webhook_deliveries_repo

import (
	"context"
	"database/sql"
	"fmt"

	"coursepay/internal/domain"
)

type webhookDeliveryRepository struct {
	db *sql.DB
}

func NewWebhookDeliveryRepository(db *sql.DB) *webhookDeliveryRepository {
	return &webhookDeliveryRepository{db: db}
}

func (r *webhookDeliveryRepository) CreateTx(ctx context.Context, querier domain.Querier, delivery *domain.WebhookDelivery) error {
	query := `
		INSERT INTO webhook_deliveries (id, gateway, payment_id, payload, outcome, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := querier.ExecContext(ctx, query,
		delivery.ID,
		delivery.Gateway,
		delivery.PaymentID,
		delivery.Payload,
		delivery.Outcome,
		delivery.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record webhook delivery: %w", err)
	}
	return nil
}
