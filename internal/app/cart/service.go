package cart

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coursepay/internal/domain"
	"coursepay/internal/repository/carts_repo"
	"coursepay/internal/repository/courses_repo"
	"coursepay/internal/repository/enrollments_repo"
)

// Item is a cart line enriched with the course data the client displays.
type Item struct {
	CourseID   int64
	Title      string
	PriceCents int64
	Currency   string
}

type CartService interface {
	AddCourse(ctx context.Context, userID, courseID int64) error
	RemoveCourse(ctx context.Context, userID, courseID int64) error
	ListItems(ctx context.Context, userID int64) ([]Item, error)
}

type cartService struct {
	db             *sql.DB
	cartRepo       carts_repo.CartRepository
	courseRepo     courses_repo.CourseRepository
	enrollmentRepo enrollments_repo.EnrollmentRepository
	logger         *zap.Logger
}

func NewCartService(
	db *sql.DB,
	cartRepo carts_repo.CartRepository,
	courseRepo courses_repo.CourseRepository,
	enrollmentRepo enrollments_repo.EnrollmentRepository,
	logger *zap.Logger,
) CartService {
	return &cartService{
		db:             db,
		cartRepo:       cartRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		logger:         logger,
	}
}

// AddCourse puts a course into the user's cart, creating the cart on first
// use. Courses the user already actively holds are rejected.
func (s *cartService) AddCourse(ctx context.Context, userID, courseID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	course, err := s.courseRepo.GetByIDTx(ctx, tx, courseID)
	if err != nil {
		return err
	}
	if !course.IsActive {
		return domain.ErrCourseInactive
	}

	enrolled, err := s.enrollmentRepo.ExistsActiveTx(ctx, tx, userID, courseID)
	if err != nil {
		return err
	}
	if enrolled {
		return domain.ErrAlreadyEnrolled
	}

	cart, err := s.cartRepo.GetByUserTx(ctx, tx, userID)
	if err != nil {
		if err != domain.ErrCartNotFound {
			return err
		}
		cart = &domain.Cart{UserID: userID, CreatedAt: time.Now()}
		if err := s.cartRepo.CreateTx(ctx, tx, cart); err != nil {
			return err
		}
		s.logger.Info("Created cart", zap.Int64("user_id", userID))
	}

	item := &domain.CartItem{CartID: cart.ID, CourseID: courseID, CreatedAt: time.Now()}
	if err := s.cartRepo.AddItemTx(ctx, tx, item); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("Course added to cart", zap.Int64("user_id", userID), zap.Int64("course_id", courseID))
	return nil
}

func (s *cartService) RemoveCourse(ctx context.Context, userID, courseID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cart, err := s.cartRepo.GetByUserTx(ctx, tx, userID)
	if err != nil {
		return err
	}
	if err := s.cartRepo.RemoveItemTx(ctx, tx, cart.ID, courseID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.logger.Info("Course removed from cart", zap.Int64("user_id", userID), zap.Int64("course_id", courseID))
	return nil
}

// ListItems returns the purchasable view of the cart; courses that vanished
// from the catalog are silently dropped from the listing.
func (s *cartService) ListItems(ctx context.Context, userID int64) ([]Item, error) {
	cart, err := s.cartRepo.GetByUserTx(ctx, s.db, userID)
	if err != nil {
		if err == domain.ErrCartNotFound {
			return []Item{}, nil
		}
		return nil, err
	}
	cartItems, err := s.cartRepo.ListItemsTx(ctx, s.db, cart.ID)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(cartItems))
	for _, ci := range cartItems {
		course, err := s.courseRepo.GetByIDTx(ctx, s.db, ci.CourseID)
		if err != nil {
			if err == domain.ErrCourseNotFound {
				continue
			}
			return nil, err
		}
		items = append(items, Item{
			CourseID:   course.ID,
			Title:      course.Title,
			PriceCents: course.PriceCents,
			Currency:   course.Currency,
		})
	}
	return items, nil
}
