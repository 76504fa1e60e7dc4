package enrollments_repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"coursepay/internal/domain"
)

type enrollmentRepository struct {
	db *sql.DB
}

func NewEnrollmentRepository(db *sql.DB) *enrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) CreateTx(ctx context.Context, querier domain.Querier, enrollment *domain.Enrollment) error {
	query := `
		INSERT INTO enrollments (user_id, course_id, status, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query,
		enrollment.UserID,
		enrollment.CourseID,
		enrollment.Status,
		enrollment.CreatedAt,
	).Scan(&enrollment.ID)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrAlreadyEnrolled
		}
		return fmt.Errorf("failed to create enrollment for user %d course %d: %w", enrollment.UserID, enrollment.CourseID, err)
	}
	return nil
}

func (r *enrollmentRepository) ExistsTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2)`
	var exists bool
	if err := querier.QueryRowContext(ctx, query, userID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check enrollment existence for user %d course %d: %w", userID, courseID, err)
	}
	return exists, nil
}

func (r *enrollmentRepository) ExistsActiveTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 AND status = $3)`
	var exists bool
	if err := querier.QueryRowContext(ctx, query, userID, courseID, domain.EnrollmentStatusActive).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check active enrollment for user %d course %d: %w", userID, courseID, err)
	}
	return exists, nil
}

func (r *enrollmentRepository) CancelActiveTx(ctx context.Context, querier domain.Querier, userID, courseID int64, revokedAt time.Time) (bool, error) {
	query := `
		UPDATE enrollments
		SET status = $1, revoked_at = $2
		WHERE user_id = $3 AND course_id = $4 AND status = $5
	`
	res, err := querier.ExecContext(ctx, query,
		string(domain.EnrollmentStatusCanceled),
		revokedAt,
		userID,
		courseID,
		string(domain.EnrollmentStatusActive),
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel enrollment for user %d course %d: %w", userID, courseID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for enrollment cancel: %w", err)
	}
	return rowsAffected > 0, nil
}
