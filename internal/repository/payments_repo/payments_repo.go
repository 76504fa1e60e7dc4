package payments_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"coursepay/internal/domain"
)

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, user_id, course_id, amount_cents, currency, status, gateway_txn_id, created_at, refunded_at`

func scanPayment(row interface {
	Scan(dest ...any) error
}) (*domain.Payment, error) {
	payment := &domain.Payment{}
	err := row.Scan(
		&payment.ID,
		&payment.UserID,
		&payment.CourseID,
		&payment.AmountCents,
		&payment.Currency,
		&payment.Status,
		&payment.GatewayTxnID,
		&payment.CreatedAt,
		&payment.RefundedAt,
	)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *paymentRepository) CreateTx(ctx context.Context, querier domain.Querier, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (user_id, course_id, amount_cents, currency, status, gateway_txn_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		payment.UserID,
		payment.CourseID,
		payment.AmountCents,
		domain.NormalizeCurrency(payment.Currency),
		payment.Status,
		payment.GatewayTxnID,
		payment.CreatedAt,
	).Scan(&payment.ID)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return fmt.Errorf("duplicate pending payment for user %d: %w", payment.UserID, err)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *paymentRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	payment, err := scanPayment(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by id %d: %w", id, err)
	}
	return payment, nil
}

func (r *paymentRepository) GetByIDForUpdateTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	payment, err := scanPayment(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock payment %d: %w", id, err)
	}
	return payment, nil
}

func (r *paymentRepository) GetByGatewayTxnIDForUpdateTx(ctx context.Context, querier domain.Querier, gatewayTxnID string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE gateway_txn_id = $1 FOR UPDATE`
	payment, err := scanPayment(querier.QueryRowContext(ctx, query, gatewayTxnID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to lock payment by gateway txn id %s: %w", gatewayTxnID, err)
	}
	return payment, nil
}

func (r *paymentRepository) FindLatestPendingForCourseTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1 AND course_id = $2 AND status = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	payment, err := scanPayment(querier.QueryRowContext(ctx, query, userID, courseID, domain.PaymentStatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to find pending payment for user %d course %d: %w", userID, courseID, err)
	}
	return payment, nil
}

func (r *paymentRepository) FindLatestPendingCartTx(ctx context.Context, querier domain.Querier, userID int64) (*domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1 AND course_id IS NULL AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`
	payment, err := scanPayment(querier.QueryRowContext(ctx, query, userID, domain.PaymentStatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to find pending cart payment for user %d: %w", userID, err)
	}
	return payment, nil
}

func (r *paymentRepository) SetGatewayTxnIDTx(ctx context.Context, querier domain.Querier, id int64, gatewayTxnID string) error {
	query := `UPDATE payments SET gateway_txn_id = $1 WHERE id = $2`
	res, err := querier.ExecContext(ctx, query, gatewayTxnID, id)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return fmt.Errorf("gateway txn id %s already recorded on another payment: %w", gatewayTxnID, err)
		}
		return fmt.Errorf("failed to set gateway txn id on payment %d: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for gateway txn id update: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) UpdateStatusTx(ctx context.Context, querier domain.Querier, id int64, status domain.PaymentStatus) error {
	query := `UPDATE payments SET status = $1 WHERE id = $2`
	res, err := querier.ExecContext(ctx, query, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update payment %d status: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for payment status update: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) MarkRefundedTx(ctx context.Context, querier domain.Querier, id int64, refundedAt time.Time) error {
	query := `UPDATE payments SET status = $1, refunded_at = $2 WHERE id = $3`
	res, err := querier.ExecContext(ctx, query, string(domain.PaymentStatusRefunded), refundedAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark payment %d refunded: %w", id, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for refund update: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *paymentRepository) ListByUserTx(ctx context.Context, querier domain.Querier, userID int64) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := querier.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments for user %d: %w", userID, err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *paymentRepository) ListByCreatedRangeTx(ctx context.Context, querier domain.Querier, from, to time.Time) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE created_at >= $1 AND created_at < $2
		ORDER BY created_at
	`
	rows, err := querier.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments in range: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

// AcquireCheckoutLockTx serializes concurrent checkouts for one (user, course)
// pair for the lifetime of the enclosing transaction. courseID 0 is the
// cart-wide slot. The pair is hashed into the single-bigint advisory lock
// form so ids past the int4 range keep working.
func (r *paymentRepository) AcquireCheckoutLockTx(ctx context.Context, querier domain.Querier, userID, courseID int64) error {
	query := `SELECT pg_advisory_xact_lock(hashtextextended($1::text || ':' || $2::text, 0))`
	if _, err := querier.ExecContext(ctx, query, userID, courseID); err != nil {
		return fmt.Errorf("failed to acquire checkout lock for user %d course %d: %w", userID, courseID, err)
	}
	return nil
}

func collectPayments(rows *sql.Rows) ([]domain.Payment, error) {
	var payments []domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment row: %w", err)
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payment rows: %w", err)
	}
	return payments, nil
}
