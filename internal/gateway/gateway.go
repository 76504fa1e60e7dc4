package gateway

import (
	"context"
	"errors"
	"fmt"
)

// ErrGateway wraps every failure talking to the external processor. Callers
// treat it as retryable: no local state is committed against a failed call.
var ErrGateway = errors.New("payment gateway request failed")

// Intent is the gateway-side object representing an authorized-but-unsettled
// charge; it pairs 1:1 with a local payment.
type Intent struct {
	ID           string
	ClientSecret string
}

// Client talks to the external payment processor. CreateIntent must be passed
// an idempotency key so a retried HTTP call cannot create a second gateway
// intent for the same payment.
type Client interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, idempotencyKey string, metadata map[string]string) (*Intent, error)
	RetrieveIntent(ctx context.Context, intentID string) (*Intent, error)
}

// IdempotencyKey derives the gateway idempotency key from the payment's own
// id, so every retry of the same checkout hits the same gateway-side slot.
func IdempotencyKey(paymentID int64) string {
	return fmt.Sprintf("payment-%d", paymentID)
}
