package enrollments_repo

import (
	"context"
	"time"

	"coursepay/internal/domain"
)

type EnrollmentRepository interface {
	CreateTx(ctx context.Context, querier domain.Querier, enrollment *domain.Enrollment) error
	ExistsTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (bool, error)
	ExistsActiveTx(ctx context.Context, querier domain.Querier, userID, courseID int64) (bool, error)
	// CancelActiveTx flips an ACTIVE enrollment to CANCELED and stamps
	// revoked_at. It reports whether a row was actually canceled, so refunds
	// can tell an already-canceled enrollment apart from a missing one.
	CancelActiveTx(ctx context.Context, querier domain.Querier, userID, courseID int64, revokedAt time.Time) (bool, error)
}
