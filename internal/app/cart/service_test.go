package cart_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursepay/internal/app/cart"
	"coursepay/internal/domain"
)

type fakeCartRepo struct {
	carts map[int64]*domain.Cart
	items map[int64][]domain.CartItem
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[int64]*domain.Cart{}, items: map[int64][]domain.CartItem{}}
}

func (r *fakeCartRepo) GetByUserTx(_ context.Context, _ domain.Querier, userID int64) (*domain.Cart, error) {
	c, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return c, nil
}

func (r *fakeCartRepo) CreateTx(_ context.Context, _ domain.Querier, c *domain.Cart) error {
	c.ID = int64(len(r.carts) + 1)
	r.carts[c.UserID] = c
	return nil
}

func (r *fakeCartRepo) AddItemTx(_ context.Context, _ domain.Querier, item *domain.CartItem) error {
	for _, existing := range r.items[item.CartID] {
		if existing.CourseID == item.CourseID {
			return domain.ErrCourseInCart
		}
	}
	r.items[item.CartID] = append(r.items[item.CartID], *item)
	return nil
}

func (r *fakeCartRepo) RemoveItemTx(_ context.Context, _ domain.Querier, cartID, courseID int64) error {
	items := r.items[cartID]
	for i, item := range items {
		if item.CourseID == courseID {
			r.items[cartID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return domain.ErrCourseNotInCart
}

func (r *fakeCartRepo) ItemExistsTx(_ context.Context, _ domain.Querier, cartID, courseID int64) (bool, error) {
	for _, item := range r.items[cartID] {
		if item.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCartRepo) ListItemsTx(_ context.Context, _ domain.Querier, cartID int64) ([]domain.CartItem, error) {
	return r.items[cartID], nil
}

type fakeCourseRepo struct {
	courses map[int64]*domain.Course
}

func (r *fakeCourseRepo) GetByIDTx(_ context.Context, _ domain.Querier, id int64) (*domain.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	return c, nil
}

type fakeEnrollmentRepo struct {
	active map[int64]bool // courseID -> active enrollment
}

func (r *fakeEnrollmentRepo) CreateTx(_ context.Context, _ domain.Querier, _ *domain.Enrollment) error {
	return nil
}

func (r *fakeEnrollmentRepo) ExistsTx(_ context.Context, _ domain.Querier, _, courseID int64) (bool, error) {
	return r.active[courseID], nil
}

func (r *fakeEnrollmentRepo) ExistsActiveTx(_ context.Context, _ domain.Querier, _, courseID int64) (bool, error) {
	return r.active[courseID], nil
}

func (r *fakeEnrollmentRepo) CancelActiveTx(_ context.Context, _ domain.Querier, _, _ int64, _ time.Time) (bool, error) {
	return false, nil
}

type cartFixture struct {
	mock        sqlmock.Sqlmock
	carts       *fakeCartRepo
	courses     *fakeCourseRepo
	enrollments *fakeEnrollmentRepo
	svc         cart.CartService
}

func newCartFixture(t *testing.T, courses ...domain.Course) *cartFixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &cartFixture{
		mock:        mock,
		carts:       newFakeCartRepo(),
		courses:     &fakeCourseRepo{courses: map[int64]*domain.Course{}},
		enrollments: &fakeEnrollmentRepo{active: map[int64]bool{}},
	}
	for i := range courses {
		f.courses.courses[courses[i].ID] = &courses[i]
	}
	f.svc = cart.NewCartService(db, f.carts, f.courses, f.enrollments, zap.NewNop())
	return f
}

var goCourse = domain.Course{ID: 10, Slug: "go-basics", Title: "Go Basics", PriceCents: 4999, Currency: "USD", IsActive: true}

func TestAddCourse_CreatesCartOnFirstUse(t *testing.T) {
	f := newCartFixture(t, goCourse)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.AddCourse(context.Background(), 1, goCourse.ID))

	created, err := f.carts.GetByUserTx(context.Background(), nil, 1)
	require.NoError(t, err)
	assert.Len(t, f.carts.items[created.ID], 1)
}

func TestAddCourse_RejectsDuplicateItem(t *testing.T) {
	f := newCartFixture(t, goCourse)

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.AddCourse(context.Background(), 1, goCourse.ID))

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.AddCourse(context.Background(), 1, goCourse.ID)
	assert.ErrorIs(t, err, domain.ErrCourseInCart)
}

func TestAddCourse_RejectsInactiveCourse(t *testing.T) {
	retired := goCourse
	retired.IsActive = false
	f := newCartFixture(t, retired)

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.AddCourse(context.Background(), 1, goCourse.ID)
	assert.ErrorIs(t, err, domain.ErrCourseInactive)
}

func TestAddCourse_RejectsEnrolledCourse(t *testing.T) {
	f := newCartFixture(t, goCourse)
	f.enrollments.active[goCourse.ID] = true

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.AddCourse(context.Background(), 1, goCourse.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadyEnrolled)
}

func TestRemoveCourse_RemovesItem(t *testing.T) {
	f := newCartFixture(t, goCourse)
	f.carts.carts[1] = &domain.Cart{ID: 1, UserID: 1}
	f.carts.items[1] = []domain.CartItem{{CartID: 1, CourseID: goCourse.ID}}

	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
	require.NoError(t, f.svc.RemoveCourse(context.Background(), 1, goCourse.ID))
	assert.Empty(t, f.carts.items[1])
}

func TestRemoveCourse_NotInCart(t *testing.T) {
	f := newCartFixture(t, goCourse)
	f.carts.carts[1] = &domain.Cart{ID: 1, UserID: 1}

	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
	err := f.svc.RemoveCourse(context.Background(), 1, goCourse.ID)
	assert.ErrorIs(t, err, domain.ErrCourseNotInCart)
}

func TestListItems_EnrichesWithCourseData(t *testing.T) {
	f := newCartFixture(t, goCourse)
	f.carts.carts[1] = &domain.Cart{ID: 1, UserID: 1}
	f.carts.items[1] = []domain.CartItem{
		{CartID: 1, CourseID: goCourse.ID},
		{CartID: 1, CourseID: 999}, // vanished from catalog
	}

	items, err := f.svc.ListItems(context.Background(), 1)
	require.NoError(t, err)

	require.Len(t, items, 1)
	assert.Equal(t, "Go Basics", items[0].Title)
	assert.Equal(t, int64(4999), items[0].PriceCents)
}

func TestListItems_NoCartMeansEmptyList(t *testing.T) {
	f := newCartFixture(t, goCourse)

	items, err := f.svc.ListItems(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}
