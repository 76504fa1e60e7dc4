package domain

import "errors"

var (
	ErrCourseNotFound  = errors.New("course not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartEmpty       = errors.New("cart has no purchasable items")

	ErrAlreadyEnrolled   = errors.New("user already holds an active enrollment for this course")
	ErrCourseInCart      = errors.New("course is already in the cart")
	ErrCourseNotInCart   = errors.New("course not found in cart")
	ErrCourseInactive    = errors.New("course is not available for purchase")
	ErrInvalidTransition = errors.New("payment status transition is not valid")
	ErrNotRefundable     = errors.New("only successful payments can be refunded")
)
