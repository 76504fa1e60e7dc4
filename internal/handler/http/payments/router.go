package payments_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go.uber.org/zap"

	"coursepay/internal/app/payments"
	"coursepay/internal/handler/http/middleware"
	"coursepay/internal/webhook"
)

func RegisterRoutes(r chi.Router, s payments.PaymentService, auth *middleware.Authenticator, genericVerifier, stripeVerifier webhook.Verifier, l *zap.Logger) {
	handler := NewPaymentHandler(s, l.With(zap.String("component", "PaymentHTTPHandler")))
	webhookHandler := NewWebhookHandler(s, genericVerifier, stripeVerifier, l.With(zap.String("component", "WebhookHTTPHandler")))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Coursepay service is healthy!"))
		})
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Post("/", handler.CheckoutHandler)
		r.Post("/cart", handler.CheckoutCartHandler)
	})

	r.Route("/payments", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Get("/", handler.ListMyPaymentsHandler)
	})

	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/payment", webhookHandler.GenericWebhookHandler)
		r.Post("/stripe", webhookHandler.StripeWebhookHandler)
	})

	r.Route("/admin/payments", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Use(middleware.RequireAdmin)
		r.Post("/{id}/refund", handler.RefundHandler)
		r.Get("/report.csv", handler.PaymentsReportHandler)
	})
}
