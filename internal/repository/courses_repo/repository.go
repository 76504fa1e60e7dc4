package courses_repo

import (
	"context"

	"coursepay/internal/domain"
)

type CourseRepository interface {
	GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.Course, error)
}
