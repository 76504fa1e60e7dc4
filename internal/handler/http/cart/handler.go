package cart_http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"coursepay/internal/app/cart"
	"coursepay/internal/domain"
	"coursepay/internal/handler/http/middleware"
)

type CartHandler struct {
	service cart.CartService
	logger  *zap.Logger
}

func NewCartHandler(s cart.CartService, l *zap.Logger) *CartHandler {
	return &CartHandler{service: s, logger: l}
}

type AddItemRequest struct {
	CourseID int64 `json:"courseId"`
}

type ItemResponse struct {
	CourseID   int64  `json:"courseId"`
	Title      string `json:"title"`
	PriceCents int64  `json:"priceCents"`
	Currency   string `json:"currency"`
}

func (h *CartHandler) AddItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CourseID == 0 {
		http.Error(w, "courseId is required", http.StatusBadRequest)
		return
	}

	if err := h.service.AddCourse(r.Context(), userID, req.CourseID); err != nil {
		switch {
		case errors.Is(err, domain.ErrCourseNotFound):
			http.Error(w, "Course not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrCourseInactive):
			http.Error(w, "Course is not available for purchase", http.StatusConflict)
		case errors.Is(err, domain.ErrCourseInCart):
			http.Error(w, "Course is already in the cart", http.StatusConflict)
		case errors.Is(err, domain.ErrAlreadyEnrolled):
			http.Error(w, "Already enrolled in this course", http.StatusConflict)
		default:
			h.logger.Error("Failed to add cart item", zap.Int64("user_id", userID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *CartHandler) RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	courseID, err := strconv.ParseInt(chi.URLParam(r, "courseId"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid course ID format", http.StatusBadRequest)
		return
	}

	if err := h.service.RemoveCourse(r.Context(), userID, courseID); err != nil {
		switch {
		case errors.Is(err, domain.ErrCartNotFound), errors.Is(err, domain.ErrCourseNotInCart):
			http.Error(w, "Course is not in the cart", http.StatusNotFound)
		default:
			h.logger.Error("Failed to remove cart item", zap.Int64("user_id", userID), zap.Error(err))
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ListItemsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthenticated", http.StatusUnauthorized)
		return
	}

	items, err := h.service.ListItems(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list cart items", zap.Int64("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, ItemResponse(item))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}
