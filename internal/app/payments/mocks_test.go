package payments_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"coursepay/internal/app/payments"
	"coursepay/internal/domain"
	"coursepay/internal/gateway"
)

// ---- fake payment repository ----

type fakePaymentRepo struct {
	nextID    int64
	payments  map[int64]*domain.Payment
	createErr error
	lockCalls int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: map[int64]*domain.Payment{}}
}

func (r *fakePaymentRepo) add(p domain.Payment) *domain.Payment {
	r.nextID++
	p.ID = r.nextID
	r.payments[p.ID] = &p
	return &p
}

func (r *fakePaymentRepo) CreateTx(_ context.Context, _ domain.Querier, payment *domain.Payment) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.nextID++
	payment.ID = r.nextID
	stored := *payment
	r.payments[payment.ID] = &stored
	return nil
}

func (r *fakePaymentRepo) GetByIDTx(_ context.Context, _ domain.Querier, id int64) (*domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return nil, domain.ErrPaymentNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakePaymentRepo) GetByIDForUpdateTx(ctx context.Context, q domain.Querier, id int64) (*domain.Payment, error) {
	return r.GetByIDTx(ctx, q, id)
}

func (r *fakePaymentRepo) GetByGatewayTxnIDForUpdateTx(_ context.Context, _ domain.Querier, gatewayTxnID string) (*domain.Payment, error) {
	for _, p := range r.payments {
		if p.GatewayTxnID.Valid && p.GatewayTxnID.String == gatewayTxnID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, domain.ErrPaymentNotFound
}

func (r *fakePaymentRepo) FindLatestPendingForCourseTx(_ context.Context, _ domain.Querier, userID, courseID int64) (*domain.Payment, error) {
	for _, p := range r.payments {
		if p.UserID == userID && p.CourseID.Valid && p.CourseID.Int64 == courseID && p.Status == domain.PaymentStatusPending {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakePaymentRepo) FindLatestPendingCartTx(_ context.Context, _ domain.Querier, userID int64) (*domain.Payment, error) {
	for _, p := range r.payments {
		if p.UserID == userID && !p.CourseID.Valid && p.Status == domain.PaymentStatusPending {
			copied := *p
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *fakePaymentRepo) SetGatewayTxnIDTx(_ context.Context, _ domain.Querier, id int64, gatewayTxnID string) error {
	p, ok := r.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.GatewayTxnID = sql.NullString{String: gatewayTxnID, Valid: true}
	return nil
}

func (r *fakePaymentRepo) UpdateStatusTx(_ context.Context, _ domain.Querier, id int64, status domain.PaymentStatus) error {
	p, ok := r.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = status
	return nil
}

func (r *fakePaymentRepo) MarkRefundedTx(_ context.Context, _ domain.Querier, id int64, refundedAt time.Time) error {
	p, ok := r.payments[id]
	if !ok {
		return domain.ErrPaymentNotFound
	}
	p.Status = domain.PaymentStatusRefunded
	p.RefundedAt = &refundedAt
	return nil
}

func (r *fakePaymentRepo) ListByUserTx(_ context.Context, _ domain.Querier, userID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.payments {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) ListByCreatedRangeTx(_ context.Context, _ domain.Querier, from, to time.Time) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.payments {
		if !p.CreatedAt.Before(from) && p.CreatedAt.Before(to) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) AcquireCheckoutLockTx(_ context.Context, _ domain.Querier, _, _ int64) error {
	r.lockCalls++
	return nil
}

// ---- fake payment items repository ----

type fakePaymentItemRepo struct {
	items map[int64][]domain.PaymentItem
}

func newFakePaymentItemRepo() *fakePaymentItemRepo {
	return &fakePaymentItemRepo{items: map[int64][]domain.PaymentItem{}}
}

func (r *fakePaymentItemRepo) CreateTx(_ context.Context, _ domain.Querier, item *domain.PaymentItem) error {
	item.ID = int64(len(r.items[item.PaymentID]) + 1)
	r.items[item.PaymentID] = append(r.items[item.PaymentID], *item)
	return nil
}

func (r *fakePaymentItemRepo) ListByPaymentTx(_ context.Context, _ domain.Querier, paymentID int64) ([]domain.PaymentItem, error) {
	return r.items[paymentID], nil
}

// ---- fake enrollment repository ----

type enrollmentKey struct{ userID, courseID int64 }

type fakeEnrollmentRepo struct {
	enrollments map[enrollmentKey]domain.EnrollmentStatus
	created     int
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: map[enrollmentKey]domain.EnrollmentStatus{}}
}

func (r *fakeEnrollmentRepo) CreateTx(_ context.Context, _ domain.Querier, e *domain.Enrollment) error {
	key := enrollmentKey{e.UserID, e.CourseID}
	if _, ok := r.enrollments[key]; ok {
		return domain.ErrAlreadyEnrolled
	}
	r.enrollments[key] = e.Status
	r.created++
	return nil
}

func (r *fakeEnrollmentRepo) ExistsTx(_ context.Context, _ domain.Querier, userID, courseID int64) (bool, error) {
	_, ok := r.enrollments[enrollmentKey{userID, courseID}]
	return ok, nil
}

func (r *fakeEnrollmentRepo) ExistsActiveTx(_ context.Context, _ domain.Querier, userID, courseID int64) (bool, error) {
	status, ok := r.enrollments[enrollmentKey{userID, courseID}]
	return ok && status == domain.EnrollmentStatusActive, nil
}

func (r *fakeEnrollmentRepo) CancelActiveTx(_ context.Context, _ domain.Querier, userID, courseID int64, _ time.Time) (bool, error) {
	key := enrollmentKey{userID, courseID}
	if r.enrollments[key] != domain.EnrollmentStatusActive {
		return false, nil
	}
	r.enrollments[key] = domain.EnrollmentStatusCanceled
	return true, nil
}

// ---- fake catalog repositories ----

type fakeCourseRepo struct {
	courses map[int64]*domain.Course
}

func newFakeCourseRepo(courses ...domain.Course) *fakeCourseRepo {
	r := &fakeCourseRepo{courses: map[int64]*domain.Course{}}
	for i := range courses {
		r.courses[courses[i].ID] = &courses[i]
	}
	return r
}

func (r *fakeCourseRepo) GetByIDTx(_ context.Context, _ domain.Querier, id int64) (*domain.Course, error) {
	c, ok := r.courses[id]
	if !ok {
		return nil, domain.ErrCourseNotFound
	}
	return c, nil
}

type fakeUserRepo struct {
	users map[int64]*domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	r := &fakeUserRepo{users: map[int64]*domain.User{}}
	for i := range users {
		r.users[users[i].ID] = &users[i]
	}
	return r
}

func (r *fakeUserRepo) GetByIDTx(_ context.Context, _ domain.Querier, id int64) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

// ---- fake cart repository ----

type fakeCartRepo struct {
	carts map[int64]*domain.Cart
	items map[int64][]domain.CartItem
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[int64]*domain.Cart{}, items: map[int64][]domain.CartItem{}}
}

func (r *fakeCartRepo) seed(userID int64, courseIDs ...int64) {
	cartID := int64(len(r.carts) + 1)
	r.carts[userID] = &domain.Cart{ID: cartID, UserID: userID}
	for _, courseID := range courseIDs {
		r.items[cartID] = append(r.items[cartID], domain.CartItem{CartID: cartID, CourseID: courseID})
	}
}

func (r *fakeCartRepo) GetByUserTx(_ context.Context, _ domain.Querier, userID int64) (*domain.Cart, error) {
	c, ok := r.carts[userID]
	if !ok {
		return nil, domain.ErrCartNotFound
	}
	return c, nil
}

func (r *fakeCartRepo) CreateTx(_ context.Context, _ domain.Querier, cart *domain.Cart) error {
	cart.ID = int64(len(r.carts) + 1)
	r.carts[cart.UserID] = cart
	return nil
}

func (r *fakeCartRepo) AddItemTx(_ context.Context, _ domain.Querier, item *domain.CartItem) error {
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

// ---- fake webhook deliveries repository ----

type fakeDeliveryRepo struct {
	deliveries []domain.WebhookDelivery
}

func (r *fakeDeliveryRepo) CreateTx(_ context.Context, _ domain.Querier, d *domain.WebhookDelivery) error {
	r.deliveries = append(r.deliveries, *d)
	return nil
}

func (r *fakeDeliveryRepo) lastOutcome() domain.WebhookOutcome {
	if len(r.deliveries) == 0 {
		return ""
	}
	return r.deliveries[len(r.deliveries)-1].Outcome
}

// ---- fake gateway client ----

type fakeGateway struct {
	createCalls     int
	createErr       error
	lastIdemKey     string
	retrieveCalls   int
	retrieveErr     error
	nextClientSecret string
}

func (g *fakeGateway) CreateIntent(_ context.Context, _ int64, _ string, idempotencyKey string, _ map[string]string) (*gateway.Intent, error) {
	g.createCalls++
	g.lastIdemKey = idempotencyKey
	if g.createErr != nil {
		return nil, g.createErr
	}
	secret := g.nextClientSecret
	if secret == "" {
		secret = fmt.Sprintf("secret_%s", idempotencyKey)
	}
	return &gateway.Intent{ID: "pi_" + idempotencyKey, ClientSecret: secret}, nil
}

func (g *fakeGateway) RetrieveIntent(_ context.Context, intentID string) (*gateway.Intent, error) {
	g.retrieveCalls++
	if g.retrieveErr != nil {
		return nil, g.retrieveErr
	}
	return &gateway.Intent{ID: intentID, ClientSecret: "secret_retrieved"}, nil
}

// ---- fake secret cache ----

type fakeSecretCache struct {
	entries map[string]string
}

func newFakeSecretCache() *fakeSecretCache {
	return &fakeSecretCache{entries: map[string]string{}}
}

func (c *fakeSecretCache) Get(_ context.Context, gatewayTxnID string) (string, bool) {
	secret, ok := c.entries[gatewayTxnID]
	return secret, ok
}

func (c *fakeSecretCache) Set(_ context.Context, gatewayTxnID, clientSecret string) {
	c.entries[gatewayTxnID] = clientSecret
}

// ---- fake notifier ----

type fakeNotifier struct {
	receipts      int
	confirmations int
	refunds       int
}

func (n *fakeNotifier) PaymentReceipt(_ context.Context, _ domain.Querier, _ *domain.Payment, _ *domain.User) {
	n.receipts++
}

func (n *fakeNotifier) EnrollmentConfirmation(_ context.Context, _ domain.Querier, _ *domain.Payment, _ *domain.User, _ *domain.Course) {
	n.confirmations++
}

func (n *fakeNotifier) PaymentRefunded(_ context.Context, _ domain.Querier, _ *domain.Payment, _ *domain.User) {
	n.refunds++
}

// ---- fixture ----

type fixture struct {
	db          *sql.DB
	mock        sqlmock.Sqlmock
	payments    *fakePaymentRepo
	items       *fakePaymentItemRepo
	enrollments *fakeEnrollmentRepo
	courses     *fakeCourseRepo
	users       *fakeUserRepo
	carts       *fakeCartRepo
	deliveries  *fakeDeliveryRepo
	gw          *fakeGateway
	cache       *fakeSecretCache
	notifier    *fakeNotifier
	svc         payments.PaymentService
}

func newFixture(t *testing.T, courses []domain.Course, users []domain.User) *fixture {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:          db,
		mock:        mock,
		payments:    newFakePaymentRepo(),
		items:       newFakePaymentItemRepo(),
		enrollments: newFakeEnrollmentRepo(),
		courses:     newFakeCourseRepo(courses...),
		users:       newFakeUserRepo(users...),
		carts:       newFakeCartRepo(),
		deliveries:  &fakeDeliveryRepo{},
		gw:          &fakeGateway{},
		cache:       newFakeSecretCache(),
		notifier:    &fakeNotifier{},
	}
	f.svc = payments.NewPaymentService(
		db,
		f.payments,
		f.items,
		f.enrollments,
		f.courses,
		f.users,
		f.carts,
		f.deliveries,
		f.gw,
		f.cache,
		f.notifier,
		zap.NewNop(),
	)
	return f
}

func (f *fixture) expectTx() {
	f.mock.ExpectBegin()
	f.mock.ExpectCommit()
}

func (f *fixture) expectTxRollback() {
	f.mock.ExpectBegin()
	f.mock.ExpectRollback()
}
