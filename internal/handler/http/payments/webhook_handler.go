package payments_http

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"coursepay/internal/app/payments"
	"coursepay/internal/domain"
	"coursepay/internal/domain/event"
	"coursepay/internal/webhook"
)

// WebhookHandler terminates gateway callbacks. Signature failures are the
// only rejections: everything past verification is acknowledged with 200 so
// gateways do not retry events we have already classified and audited.
type WebhookHandler struct {
	service         payments.PaymentService
	genericVerifier webhook.Verifier
	stripeVerifier  webhook.Verifier
	logger          *zap.Logger
}

func NewWebhookHandler(s payments.PaymentService, generic, stripe webhook.Verifier, l *zap.Logger) *WebhookHandler {
	return &WebhookHandler{service: s, genericVerifier: generic, stripeVerifier: stripe, logger: l}
}

func (h *WebhookHandler) GenericWebhookHandler(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, webhook.GatewayGeneric, r.Header.Get("X-Signature"), h.genericVerifier, webhook.ParseGeneric)
}

func (h *WebhookHandler) StripeWebhookHandler(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, webhook.GatewayStripe, r.Header.Get("Stripe-Signature"), h.stripeVerifier, webhook.ParseStripe)
}

func (h *WebhookHandler) handle(
	w http.ResponseWriter,
	r *http.Request,
	gatewayName string,
	signature string,
	verifier webhook.Verifier,
	parse func([]byte) (*event.GatewayEvent, error),
) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if err := verifier.Verify(body, signature); err != nil {
		h.logger.Warn("Webhook rejected: bad signature",
			zap.String("gateway", gatewayName), zap.Error(err))
		h.service.RecordRejectedWebhook(r.Context(), gatewayName, body, domain.WebhookOutcomeRejectedSignature)
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	ev, err := parse(body)
	if err != nil {
		// Unsupported event types are fine, malformed bodies are audited.
		// Both are acked so the gateway stops redelivering.
		if !errors.Is(err, webhook.ErrUnsupportedEvent) {
			h.logger.Warn("Webhook payload malformed",
				zap.String("gateway", gatewayName), zap.Error(err))
			h.service.RecordRejectedWebhook(r.Context(), gatewayName, body, domain.WebhookOutcomeMalformed)
		}
		w.WriteHeader(http.StatusOK)
		return
	}
	ev.Gateway = gatewayName

	outcome, err := h.service.ApplyGatewayEvent(r.Context(), ev, body)
	if err != nil {
		h.logger.Error("Webhook processing failed, gateway will retry",
			zap.String("gateway", gatewayName), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Webhook processed",
		zap.String("gateway", gatewayName),
		zap.String("outcome", string(outcome)))
	w.WriteHeader(http.StatusOK)
}
