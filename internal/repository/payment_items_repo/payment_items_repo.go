package payment_items_repo

import (
	"context"
	"database/sql"
	"fmt"

	"coursepay/internal/domain"
)

type paymentItemRepository struct {
	db *sql.DB
}

func NewPaymentItemRepository(db *sql.DB) *paymentItemRepository {
	return &paymentItemRepository{db: db}
}

func (r *paymentItemRepository) CreateTx(ctx context.Context, querier domain.Querier, item *domain.PaymentItem) error {
	query := `
		INSERT INTO payment_items (payment_id, course_id, amount_cents, currency)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		item.PaymentID,
		item.CourseID,
		item.AmountCents,
		domain.NormalizeCurrency(item.Currency),
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to create payment item for payment %d: %w", item.PaymentID, err)
	}
	return nil
}

func (r *paymentItemRepository) ListByPaymentTx(ctx context.Context, querier domain.Querier, paymentID int64) ([]domain.PaymentItem, error) {
	query := `
		SELECT id, payment_id, course_id, amount_cents, currency
		FROM payment_items
		WHERE payment_id = $1
		ORDER BY id
	`
	rows, err := querier.QueryContext(ctx, query, paymentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment items for payment %d: %w", paymentID, err)
	}
	defer rows.Close()

	var items []domain.PaymentItem
	for rows.Next() {
		var item domain.PaymentItem
		if err := rows.Scan(&item.ID, &item.PaymentID, &item.CourseID, &item.AmountCents, &item.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan payment item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment item rows: %w", err)
	}
	return items, nil
}
