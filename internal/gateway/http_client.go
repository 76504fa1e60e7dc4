package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HTTPClient is a thin client for a Stripe-style payment-intent API. The
// gateway itself is an external collaborator; this client only creates and
// retrieves intents.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type createIntentRequest struct {
	AmountCents int64             `json:"amountCents"`
	Currency    string            `json:"currency"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type intentResponse struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
}

func (c *HTTPClient) CreateIntent(ctx context.Context, amountCents int64, currency string, idempotencyKey string, metadata map[string]string) (*Intent, error) {
	body, err := json.Marshal(createIntentRequest{
		AmountCents: amountCents,
		Currency:    strings.ToLower(currency),
		Metadata:    metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode intent request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payment_intents", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build intent request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	return c.doIntent(req)
}

func (c *HTTPClient) RetrieveIntent(ctx context.Context, intentID string) (*Intent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/payment_intents/"+intentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build intent retrieve request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	return c.doIntent(req)
}

func (c *HTTPClient) doIntent(req *http.Request) (*Intent, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Gateway request failed", zap.String("url", req.URL.Path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Error("Gateway returned non-2xx status",
			zap.String("url", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", snippet))
		return nil, fmt.Errorf("%w: status %d", ErrGateway, resp.StatusCode)
	}

	var payload intentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrGateway, err)
	}
	if payload.ID == "" {
		return nil, fmt.Errorf("%w: response missing intent id", ErrGateway)
	}
	return &Intent{ID: payload.ID, ClientSecret: payload.ClientSecret}, nil
}
