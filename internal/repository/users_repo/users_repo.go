package users_repo

import (
	"context"
	"database/sql"
	"fmt"

	"coursepay/internal/domain"
)

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByIDTx(ctx context.Context, querier domain.Querier, id int64) (*domain.User, error) {
	query := `SELECT id, email FROM users WHERE id = $1`
	user := &domain.User{}
	err := querier.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}
