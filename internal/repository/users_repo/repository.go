package users_repo

import (
	"context"

	"coursepay/internal/domain"
)

type UserRepository interface {
	GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.User, error)
}
