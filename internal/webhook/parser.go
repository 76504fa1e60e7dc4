package webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"coursepay/internal/domain"
	"coursepay/internal/domain/event"
)

var (
	ErrMalformedPayload = errors.New("webhook payload is malformed")
	// ErrUnsupportedEvent marks event types the system deliberately ignores
	// (test pings, unrelated gateway objects). Callers acknowledge them.
	ErrUnsupportedEvent = errors.New("webhook event type is not handled")
)

const (
	GatewayGeneric = "generic"
	GatewayStripe  = "stripe"
)

// genericPayload is the simplified shape {paymentId?, gatewayTxnId?, status}.
type genericPayload struct {
	PaymentID    int64           `json:"paymentId"`
	GatewayTxnID string          `json:"gatewayTxnId"`
	Status       string          `json:"status"`
	Metadata     json.RawMessage `json:"metadata"`
}

// ParseGeneric normalizes the generic gateway payload.
func ParseGeneric(payload []byte) (*event.GatewayEvent, error) {
	var body genericPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if body.PaymentID == 0 && body.GatewayTxnID == "" {
		return nil, fmt.Errorf("%w: neither paymentId nor gatewayTxnId present", ErrMalformedPayload)
	}

	status, err := normalizeStatus(body.Status)
	if err != nil {
		return nil, err
	}
	return &event.GatewayEvent{
		Gateway:      GatewayGeneric,
		PaymentID:    body.PaymentID,
		GatewayTxnID: body.GatewayTxnID,
		Status:       status,
	}, nil
}

// stripeEnvelope is the slice of a Stripe event the state machine needs: the
// event type plus the payment-intent id and the paymentId correlation metadata
// stamped onto the intent at checkout.
type stripeEnvelope struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string            `json:"id"`
			Metadata map[string]string `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// ParseStripe normalizes a Stripe payment_intent event.
func ParseStripe(payload []byte) (*event.GatewayEvent, error) {
	var env stripeEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	var status domain.PaymentStatus
	switch env.Type {
	case "payment_intent.succeeded":
		status = domain.PaymentStatusSuccess
	case "payment_intent.payment_failed":
		status = domain.PaymentStatusFailed
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedEvent, env.Type)
	}

	ev := &event.GatewayEvent{
		Gateway:      GatewayStripe,
		GatewayTxnID: env.Data.Object.ID,
		Status:       status,
	}
	if raw, ok := env.Data.Object.Metadata["paymentId"]; ok {
		if paymentID, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ev.PaymentID = paymentID
		}
	}
	if ev.PaymentID == 0 && ev.GatewayTxnID == "" {
		return nil, fmt.Errorf("%w: event carries no payment reference", ErrMalformedPayload)
	}
	return ev, nil
}

func normalizeStatus(raw string) (domain.PaymentStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "SUCCESS":
		return domain.PaymentStatusSuccess, nil
	case "FAILED":
		return domain.PaymentStatusFailed, nil
	case "":
		return "", fmt.Errorf("%w: missing status", ErrMalformedPayload)
	default:
		return "", fmt.Errorf("%w: status %q", ErrUnsupportedEvent, raw)
	}
}
