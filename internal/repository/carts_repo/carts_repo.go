package carts_repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"coursepay/internal/domain"
)

type cartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *cartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) GetByUserTx(ctx context.Context, querier domain.Querier, userID int64) (*domain.Cart, error) {
	query := `SELECT id, user_id, created_at FROM carts WHERE user_id = $1`
	cart := &domain.Cart{}
	err := querier.QueryRowContext(ctx, query, userID).Scan(&cart.ID, &cart.UserID, &cart.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart for user %d: %w", userID, err)
	}
	return cart, nil
}

func (r *cartRepository) CreateTx(ctx context.Context, querier domain.Querier, cart *domain.Cart) error {
	query := `
		INSERT INTO carts (user_id, created_at)
		VALUES ($1, $2)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query, cart.UserID, cart.CreatedAt).Scan(&cart.ID)
	if err != nil {
		return fmt.Errorf("failed to create cart for user %d: %w", cart.UserID, err)
	}
	return nil
}

func (r *cartRepository) AddItemTx(ctx context.Context, querier domain.Querier, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (cart_id, course_id, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := querier.QueryRowContext(ctx, query, item.CartID, item.CourseID, item.CreatedAt).Scan(&item.ID)
	if err != nil {
		if pgErr, ok := err.(*pq.Error); ok && pgErr.Code == "23505" {
			return domain.ErrCourseInCart
		}
		return fmt.Errorf("failed to add course %d to cart %d: %w", item.CourseID, item.CartID, err)
	}
	return nil
}

func (r *cartRepository) RemoveItemTx(ctx context.Context, querier domain.Querier, cartID, courseID int64) error {
	query := `DELETE FROM cart_items WHERE cart_id = $1 AND course_id = $2`
	res, err := querier.ExecContext(ctx, query, cartID, courseID)
	if err != nil {
		return fmt.Errorf("failed to remove course %d from cart %d: %w", courseID, cartID, err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for cart item removal: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrCourseNotInCart
	}
	return nil
}

func (r *cartRepository) ItemExistsTx(ctx context.Context, querier domain.Querier, cartID, courseID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM cart_items WHERE cart_id = $1 AND course_id = $2)`
	var exists bool
	if err := querier.QueryRowContext(ctx, query, cartID, courseID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check cart item existence: %w", err)
	}
	return exists, nil
}

func (r *cartRepository) ListItemsTx(ctx context.Context, querier domain.Querier, cartID int64) ([]domain.CartItem, error) {
	query := `
		SELECT id, cart_id, course_id, created_at
		FROM cart_items
		WHERE cart_id = $1
		ORDER BY created_at
	`
	rows, err := querier.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items for cart %d: %w", cartID, err)
	}
	defer rows.Close()

	var items []domain.CartItem
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(&item.ID, &item.CartID, &item.CourseID, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cart item row: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cart item rows: %w", err)
	}
	return items, nil
}
