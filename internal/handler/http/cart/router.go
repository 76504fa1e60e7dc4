package cart_http

import (
	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"

	"coursepay/internal/app/cart"
	"coursepay/internal/handler/http/middleware"
)

func RegisterRoutes(r chi.Router, s cart.CartService, auth *middleware.Authenticator, l *zap.Logger) {
	handler := NewCartHandler(s, l.With(zap.String("component", "CartHTTPHandler")))

	r.Route("/cart", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/", handler.ListItemsHandler)
		r.Post("/items", handler.AddItemHandler)
		r.Delete("/items/{courseId}", handler.RemoveItemHandler)
	})
}
