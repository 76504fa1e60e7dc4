package carts_repo

import (
	"context"

	"coursepay/internal/domain"
)

type CartRepository interface {
	GetByUserTx(ctx context.Context, querier domain.Querier, userID int64) (*domain.Cart, error)
	CreateTx(ctx context.Context, querier domain.Querier, cart *domain.Cart) error
	AddItemTx(ctx context.Context, querier domain.Querier, item *domain.CartItem) error
	RemoveItemTx(ctx context.Context, querier domain.Querier, cartID, courseID int64) error
	ItemExistsTx(ctx context.Context, querier domain.Querier, cartID, courseID int64) (bool, error)
	ListItemsTx(ctx context.Context, querier domain.Querier, cartID int64) ([]domain.CartItem, error)
}
