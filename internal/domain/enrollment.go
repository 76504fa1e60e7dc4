package domain

import "time"

type EnrollmentStatus string

const (
	EnrollmentStatusPending  EnrollmentStatus = "PENDING"
	EnrollmentStatusActive   EnrollmentStatus = "ACTIVE"
	EnrollmentStatusCanceled EnrollmentStatus = "CANCELED"
)

// Enrollment grants a user access to a course. At most one row exists per
// (user, course) pair, enforced by a unique constraint.
type Enrollment struct {
	ID        int64
	UserID    int64
	CourseID  int64
	Status    EnrollmentStatus
	CreatedAt time.Time
	RevokedAt *time.Time
}
