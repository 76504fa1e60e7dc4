package payments_http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursepay/internal/app/payments"
	"coursepay/internal/domain"
	"coursepay/internal/domain/event"
	"coursepay/internal/handler/http/middleware"
	payments_http "coursepay/internal/handler/http/payments"
)

type mockPaymentService struct {
	checkoutResult *payments.CheckoutResult
	checkoutErr    error
	lastUserID     int64
	lastCourseID   int64

	applyOutcome domain.WebhookOutcome
	applyErr     error
	appliedEvent *event.GatewayEvent

	rejectedOutcomes []domain.WebhookOutcome

	refundErr     error
	refundedID    int64
	listPayments  []domain.Payment
	listErr       error
	rangePayments []domain.Payment
}

func (m *mockPaymentService) CreateIntent(_ context.Context, userID, courseID int64) (*payments.CheckoutResult, error) {
	m.lastUserID, m.lastCourseID = userID, courseID
	return m.checkoutResult, m.checkoutErr
}

func (m *mockPaymentService) CreateCartIntent(_ context.Context, userID int64) (*payments.CheckoutResult, error) {
	m.lastUserID = userID
	return m.checkoutResult, m.checkoutErr
}

func (m *mockPaymentService) ApplyGatewayEvent(_ context.Context, ev *event.GatewayEvent, _ []byte) (domain.WebhookOutcome, error) {
	m.appliedEvent = ev
	return m.applyOutcome, m.applyErr
}

func (m *mockPaymentService) RecordRejectedWebhook(_ context.Context, _ string, _ []byte, outcome domain.WebhookOutcome) {
	m.rejectedOutcomes = append(m.rejectedOutcomes, outcome)
}

func (m *mockPaymentService) Refund(_ context.Context, paymentID int64) error {
	m.refundedID = paymentID
	return m.refundErr
}

func (m *mockPaymentService) ListUserPayments(_ context.Context, userID int64) ([]domain.Payment, error) {
	m.lastUserID = userID
	return m.listPayments, m.listErr
}

func (m *mockPaymentService) ListPaymentsInRange(_ context.Context, _, _ time.Time) ([]domain.Payment, error) {
	return m.rangePayments, m.listErr
}

func authedRequest(method, target string, body []byte, userID int64) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	return req.WithContext(middleware.ContextWithUserID(req.Context(), userID))
}

func TestCheckoutHandler_ReturnsClientSecret(t *testing.T) {
	svc := &mockPaymentService{checkoutResult: &payments.CheckoutResult{
		PaymentID:    7,
		ClientSecret: "secret_abc",
		AmountCents:  4999,
		Currency:     "USD",
		Status:       domain.PaymentStatusPending,
	}}
	h := payments_http.NewPaymentHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.CheckoutHandler(rec, authedRequest(http.MethodPost, "/checkout", []byte(`{"courseId":10}`), 1))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), svc.lastUserID)
	assert.Equal(t, int64(10), svc.lastCourseID)

	var resp payments_http.CheckoutResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(7), resp.PaymentID)
	assert.Equal(t, "secret_abc", resp.ClientSecret)
	assert.Equal(t, "PENDING", resp.Status)
}

func TestCheckoutHandler_RequiresAuthentication(t *testing.T) {
	h := payments_http.NewPaymentHandler(&mockPaymentService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"courseId":10}`))
	h.CheckoutHandler(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCheckoutHandler_RejectsMissingCourseID(t *testing.T) {
	h := payments_http.NewPaymentHandler(&mockPaymentService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.CheckoutHandler(rec, authedRequest(http.MethodPost, "/checkout", []byte(`{}`), 1))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutHandler_MapsDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrAlreadyEnrolled, http.StatusConflict},
		{domain.ErrCourseInactive, http.StatusConflict},
		{domain.ErrCourseNotFound, http.StatusNotFound},
		{domain.ErrUserNotFound, http.StatusNotFound},
	}
	for _, tc := range cases {
		h := payments_http.NewPaymentHandler(&mockPaymentService{checkoutErr: tc.err}, zap.NewNop())
		rec := httptest.NewRecorder()
		h.CheckoutHandler(rec, authedRequest(http.MethodPost, "/checkout", []byte(`{"courseId":10}`), 1))
		assert.Equal(t, tc.want, rec.Code, "error %v", tc.err)
	}
}

func TestCheckoutCartHandler_MapsEmptyCart(t *testing.T) {
	h := payments_http.NewPaymentHandler(&mockPaymentService{checkoutErr: domain.ErrCartEmpty}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.CheckoutCartHandler(rec, authedRequest(http.MethodPost, "/checkout/cart", nil, 1))

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func refundRouter(svc payments.PaymentService) chi.Router {
	h := payments_http.NewPaymentHandler(svc, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/admin/payments/{id}/refund", h.RefundHandler)
	return r
}

func TestRefundHandler_Success(t *testing.T) {
	svc := &mockPaymentService{}
	rec := httptest.NewRecorder()
	refundRouter(svc).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/42/refund", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(42), svc.refundedID)
}

func TestRefundHandler_MapsErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.ErrPaymentNotFound, http.StatusNotFound},
		{domain.ErrNotRefundable, http.StatusConflict},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		refundRouter(&mockPaymentService{refundErr: tc.err}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/42/refund", nil))
		assert.Equal(t, tc.want, rec.Code, "error %v", tc.err)
	}
}

func TestRefundHandler_RejectsBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	refundRouter(&mockPaymentService{}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/payments/abc/refund", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentsReportHandler_StreamsCSV(t *testing.T) {
	created := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	svc := &mockPaymentService{rangePayments: []domain.Payment{{
		ID:          1,
		UserID:      2,
		AmountCents: 4999,
		Currency:    "USD",
		Status:      domain.PaymentStatusSuccess,
		CreatedAt:   created,
	}}}
	h := payments_http.NewPaymentHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.PaymentsReportHandler(rec, httptest.NewRequest(http.MethodGet, "/admin/payments/report.csv?from=2026-02-01&to=2026-02-28", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "paymentId,userId")
	assert.Contains(t, lines[1], "1,2,,4999,USD,SUCCESS")
}

func TestPaymentsReportHandler_RejectsBadDates(t *testing.T) {
	h := payments_http.NewPaymentHandler(&mockPaymentService{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.PaymentsReportHandler(rec, httptest.NewRequest(http.MethodGet, "/admin/payments/report.csv?from=nope&to=2026-02-28", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListMyPaymentsHandler_ReturnsPayments(t *testing.T) {
	svc := &mockPaymentService{listPayments: []domain.Payment{{
		ID:          5,
		UserID:      1,
		AmountCents: 4999,
		Currency:    "USD",
		Status:      domain.PaymentStatusSuccess,
		CreatedAt:   time.Now(),
	}}}
	h := payments_http.NewPaymentHandler(svc, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ListMyPaymentsHandler(rec, authedRequest(http.MethodGet, "/payments", nil, 1))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp []payments_http.PaymentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp, 1)
	assert.Equal(t, int64(5), resp[0].ID)
	assert.Equal(t, "SUCCESS", resp[0].Status)
}
