package service

import (
	"context"
	"time"

	"garage/internal/database"
	"garage/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockStore) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}
func (m *mockStore) ListBookings(ctx context.Context, f database.BookingFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockStore) GetBookingsByDateRange(ctx context.Context, s, e time.Time) ([]*models.Booking, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}
func (m *mockStore) UpdateBookingStatusIf(ctx context.Context, id int64, to string, expected ...string) error {
	callArgs := []interface{}{ctx, id, to}
	for _, s := range expected {
		callArgs = append(callArgs, s)
	}
	return m.Called(callArgs...).Error(0)
}
func (m *mockStore) UpdateBookingSchedule(ctx context.Context, id int64, at time.Time, expected ...string) error {
	callArgs := []interface{}{ctx, id, at}
	for _, s := range expected {
		callArgs = append(callArgs, s)
	}
	return m.Called(callArgs...).Error(0)
}
func (m *mockStore) AssignMechanic(ctx context.Context, bookingID, mechanicID int64) (*models.JobCard, error) {
	args := m.Called(ctx, bookingID, mechanicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobCard), args.Error(1)
}
func (m *mockStore) CreateJobCard(ctx context.Context, c *models.JobCard) error {
	return m.Called(ctx, c).Error(0)
}
func (m *mockStore) GetJobCard(ctx context.Context, id int64) (*models.JobCard, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobCard), args.Error(1)
}
func (m *mockStore) ListJobCards(ctx context.Context, f database.JobCardFilter) ([]*models.JobCard, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.JobCard), args.Error(1)
}
func (m *mockStore) StartJobCard(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) CancelJobCard(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) UpdateJobCardProgress(ctx context.Context, id int64, percent int, notes string) error {
	return m.Called(ctx, id, percent, notes).Error(0)
}
func (m *mockStore) AddTask(ctx context.Context, id int64, name string, cost decimal.Decimal) (*models.JobCard, error) {
	args := m.Called(ctx, id, name, cost)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobCard), args.Error(1)
}
func (m *mockStore) AddSparePart(ctx context.Context, id, partID, qty int64, price decimal.Decimal) (*models.JobCard, error) {
	args := m.Called(ctx, id, partID, qty, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.JobCard), args.Error(1)
}
func (m *mockStore) CompleteJobCard(ctx context.Context, id int64, notes string) (*models.Invoice, bool, error) {
	args := m.Called(ctx, id, notes)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.Invoice), args.Bool(1), args.Error(2)
}
func (m *mockStore) DeleteJobCard(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockStore) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *mockStore) GetInvoiceByJobCard(ctx context.Context, id int64) (*models.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}
func (m *mockStore) ListInvoices(ctx context.Context, f database.InvoiceFilter) ([]*models.Invoice, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Invoice), args.Error(1)
}
func (m *mockStore) MarkInvoicePaid(ctx context.Context, id int64, method string) error {
	return m.Called(ctx, id, method).Error(0)
}
func (m *mockStore) CreatePart(ctx context.Context, p *models.Part) error {
	return m.Called(ctx, p).Error(0)
}
func (m *mockStore) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Part), args.Error(1)
}
func (m *mockStore) ListParts(ctx context.Context) ([]*models.Part, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Part), args.Error(1)
}
func (m *mockStore) CreateUser(ctx context.Context, u *models.User) error {
	return m.Called(ctx, u).Error(0)
}
func (m *mockStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}
func (m *mockStore) ListUsersByRole(ctx context.Context, role string) ([]*models.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueBookingUpsert(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockSyncWorker) EnqueueBookingStatus(ctx context.Context, id int64, status string) error {
	return m.Called(ctx, id, status).Error(0)
}
func (m *mockSyncWorker) EnqueueInvoiceUpsert(ctx context.Context, inv *models.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}
func (m *mockCache) GetCached(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
func (m *mockCache) SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *mockCache) Invalidate(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}
