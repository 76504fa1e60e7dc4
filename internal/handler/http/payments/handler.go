package payments_http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coursepay/internal/app/payments"
	"coursepay/internal/domain"
	"coursepay/internal/gateway"
	"coursepay/internal/handler/http/middleware"
)

type PaymentHandler struct {
	service payments.PaymentService
	logger  *zap.Logger
}

func NewPaymentHandler(s payments.PaymentService, l *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: s, logger: l}
}

type CheckoutRequest struct {
	CourseID int64 `json:"courseId"`
}

type CheckoutResponse struct {
	PaymentID    int64  `json:"paymentId"`
	ClientSecret string `json:"clientSecret"`
	AmountCents  int64  `json:"amountCents"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

type PaymentResponse struct {
	ID           int64  `json:"id"`
	CourseID     *int64 `json:"courseId,omitempty"`
	AmountCents  int64  `json:"amountCents"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	GatewayTxnID string `json:"gatewayTxnId,omitempty"`
	CreatedAt    string `json:"createdAt"`
	RefundedAt   string `json:"refundedAt,omitempty"`
}

func (h *PaymentHandler) CheckoutHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CourseID == 0 {
		http.Error(w, "courseId is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.CreateIntent(r.Context(), userID, req.CourseID)
	if err != nil {
		h.writeCheckoutError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, toCheckoutResponse(result), h.logger)
}

func (h *PaymentHandler) CheckoutCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	result, err := h.service.CreateCartIntent(r.Context(), userID)
	if err != nil {
		h.writeCheckoutError(w, err, userID)
		return
	}
	writeJSON(w, http.StatusOK, toCheckoutResponse(result), h.logger)
}

func (h *PaymentHandler) writeCheckoutError(w http.ResponseWriter, err error, userID int64) {
	switch {
	case errors.Is(err, domain.ErrAlreadyEnrolled):
		http.Error(w, "Already enrolled in this course", http.StatusConflict)
	case errors.Is(err, domain.ErrCourseInactive):
		http.Error(w, "Course is not available for purchase", http.StatusConflict)
	case errors.Is(err, domain.ErrCartEmpty):
		http.Error(w, "Cart has no purchasable items", http.StatusConflict)
	case errors.Is(err, domain.ErrCourseNotFound), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrCartNotFound):
		http.Error(w, "Not found", http.StatusNotFound)
	case errors.Is(err, gateway.ErrGateway):
		h.logger.Error("Checkout failed on gateway call, client may retry", zap.Int64("user_id", userID), zap.Error(err))
		http.Error(w, "Payment gateway unavailable, please retry", http.StatusInternalServerError)
	default:
		h.logger.Error("Checkout failed", zap.Int64("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (h *PaymentHandler) ListMyPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	paymentList, err := h.service.ListUserPayments(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list payments", zap.Int64("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]PaymentResponse, 0, len(paymentList))
	for _, p := range paymentList {
		resp = append(resp, toPaymentResponse(p))
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

func (h *PaymentHandler) RefundHandler(w http.ResponseWriter, r *http.Request) {
	paymentIDStr := chi.URLParam(r, "id")
	paymentID, err := strconv.ParseInt(paymentIDStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid payment ID format", http.StatusBadRequest)
		return
	}

	if err := h.service.Refund(r.Context(), paymentID); err != nil {
		switch {
		case errors.Is(err, domain.ErrPaymentNotFound):
			http.Error(w, "Payment not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrNotRefundable):
			http.Error(w, "Only successful payments can be refunded", http.StatusConflict)
		default:
			h.logger.Error("Refund failed", zap.Int64("payment_id", paymentID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusOK)
}

// PaymentsReportHandler streams a CSV of payments in [from, to] for BI
// tooling. Dates are ISO (YYYY-MM-DD), inclusive.
func (h *PaymentHandler) PaymentsReportHandler(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "Invalid 'from' date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "Invalid 'to' date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	paymentList, err := h.service.ListPaymentsInRange(r.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		h.logger.Error("Failed to build payments report", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=payments.csv")
	fmt.Fprint(w, "paymentId,userId,courseId,amountCents,currency,status,gatewayTxnId,createdAt\n")
	for _, p := range paymentList {
		courseID := ""
		if p.CourseID.Valid {
			courseID = strconv.FormatInt(p.CourseID.Int64, 10)
		}
		fmt.Fprintf(w, "%d,%d,%s,%d,%s,%s,%s,%s\n",
			p.ID, p.UserID, courseID, p.AmountCents, p.Currency, p.Status,
			p.GatewayTxnID.String, p.CreatedAt.Format(time.RFC3339))
	}
}

func toCheckoutResponse(result *payments.CheckoutResult) CheckoutResponse {
	return CheckoutResponse{
		PaymentID:    result.PaymentID,
		ClientSecret: result.ClientSecret,
		AmountCents:  result.AmountCents,
		Currency:     result.Currency,
		Status:       string(result.Status),
	}
}

func toPaymentResponse(p domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID,
		AmountCents: p.AmountCents,
		Currency:    p.Currency,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
	if p.CourseID.Valid {
		courseID := p.CourseID.Int64
		resp.CourseID = &courseID
	}
	if p.GatewayTxnID.Valid {
		resp.GatewayTxnID = p.GatewayTxnID.String
	}
	if p.RefundedAt != nil {
		resp.RefundedAt = p.RefundedAt.Format(time.RFC3339)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to write JSON response", zap.Error(err))
	}
}
