package courses_repo

import (
	"context"
	"database/sql"
	"fmt"

	"coursepay/internal/domain"
)

type courseRepository struct {
	db *sql.DB
}

func NewCourseRepository(db *sql.DB) *courseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Course, error) {
	query := `
		SELECT id, slug, title, price_cents, currency, is_active, created_at
		FROM courses
		WHERE id = $1
	`
	course := &domain.Course{}
	err := querier.QueryRowContext(ctx, query, id).Scan(
		&course.ID,
		&course.Slug,
		&course.Title,
		&course.PriceCents,
		&course.Currency,
		&course.IsActive,
		&course.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to get course %d: %w", id, err)
	}
	return course, nil
}
