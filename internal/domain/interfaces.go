package domain

import (
	"context"
	"time"

	"garage/internal/database"
	"garage/internal/models"

	"github.com/shopspring/decimal"
)

// Store is the persistence surface the services depend on. *database.DB
// satisfies it; tests substitute mocks.
type Store interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, filter database.BookingFilter) ([]*models.Booking, error)
	GetBookingsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Booking, error)
	UpdateBookingStatusIf(ctx context.Context, id int64, to string, expected ...string) error
	UpdateBookingSchedule(ctx context.Context, id int64, scheduledAt time.Time, expected ...string) error
	AssignMechanic(ctx context.Context, bookingID, mechanicID int64) (*models.JobCard, error)

	CreateJobCard(ctx context.Context, card *models.JobCard) error
	GetJobCard(ctx context.Context, id int64) (*models.JobCard, error)
	ListJobCards(ctx context.Context, filter database.JobCardFilter) ([]*models.JobCard, error)
	StartJobCard(ctx context.Context, id int64) error
	CancelJobCard(ctx context.Context, id int64) error
	UpdateJobCardProgress(ctx context.Context, id int64, percent int, notes string) error
	AddTask(ctx context.Context, jobCardID int64, taskName string, taskCost decimal.Decimal) (*models.JobCard, error)
	AddSparePart(ctx context.Context, jobCardID, partID, quantity int64, unitPrice decimal.Decimal) (*models.JobCard, error)
	CompleteJobCard(ctx context.Context, id int64, notes string) (*models.Invoice, bool, error)
	DeleteJobCard(ctx context.Context, id int64) error

	GetInvoice(ctx context.Context, id int64) (*models.Invoice, error)
	GetInvoiceByJobCard(ctx context.Context, jobCardID int64) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter database.InvoiceFilter) ([]*models.Invoice, error)
	MarkInvoicePaid(ctx context.Context, id int64, paymentMethod string) error

	CreatePart(ctx context.Context, part *models.Part) error
	GetPart(ctx context.Context, id int64) (*models.Part, error)
	ListParts(ctx context.Context) ([]*models.Part, error)

	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	ListUsersByRole(ctx context.Context, role string) ([]*models.User, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// StateRepository backs rate limiting and the parts catalog cache. The
// redis implementation is primary; memory is the failover target.
type StateRepository interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	GetCached(ctx context.Context, key string) ([]byte, error)
	SetCached(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type SheetsWriter interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
	UpsertInvoice(ctx context.Context, invoice *models.Invoice) error
	UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error
}

type SyncWorker interface {
	EnqueueBookingUpsert(ctx context.Context, booking *models.Booking) error
	EnqueueBookingStatus(ctx context.Context, bookingID int64, status string) error
	EnqueueInvoiceUpsert(ctx context.Context, invoice *models.Invoice) error
}

type BookingService interface {
	CreateBooking(ctx context.Context, actor models.Principal, booking *models.Booking) error
	GetBooking(ctx context.Context, actor models.Principal, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context, actor models.Principal, filter database.BookingFilter) ([]*models.Booking, error)
	Transition(ctx context.Context, actor models.Principal, id int64, to string) (*models.Booking, error)
	Reschedule(ctx context.Context, actor models.Principal, id int64, scheduledAt time.Time) (*models.Booking, error)
	Assign(ctx context.Context, actor models.Principal, bookingID, mechanicID int64) (*models.Booking, *models.JobCard, error)
}

type JobCardService interface {
	Create(ctx context.Context, actor models.Principal, card *models.JobCard) error
	GetJobCard(ctx context.Context, actor models.Principal, id int64) (*models.JobCard, error)
	ListJobCards(ctx context.Context, actor models.Principal, filter database.JobCardFilter) ([]*models.JobCard, error)
	UpdateStatus(ctx context.Context, actor models.Principal, id int64, to string) (*models.JobCard, error)
	UpdateProgress(ctx context.Context, actor models.Principal, id int64, percent int, notes string) (*models.JobCard, error)
	AddTask(ctx context.Context, actor models.Principal, id int64, taskName string, taskCost decimal.Decimal) (*models.JobCard, error)
	AddSparePart(ctx context.Context, actor models.Principal, id, partID, quantity int64) (*models.JobCard, error)
	Complete(ctx context.Context, actor models.Principal, id int64, notes string) (*models.JobCard, *models.Invoice, error)
	Delete(ctx context.Context, actor models.Principal, id int64) error
}

type InvoiceService interface {
	GetInvoice(ctx context.Context, actor models.Principal, id int64) (*models.Invoice, error)
	ListInvoices(ctx context.Context, actor models.Principal, filter database.InvoiceFilter) ([]*models.Invoice, error)
	Pay(ctx context.Context, actor models.Principal, id int64, paymentMethod string) (*models.Invoice, error)
}

type PartService interface {
	CreatePart(ctx context.Context, actor models.Principal, part *models.Part) error
	ListParts(ctx context.Context) ([]*models.Part, error)
}

type UserService interface {
	CreateUser(ctx context.Context, actor models.Principal, user *models.User) error
	GetUser(ctx context.Context, actor models.Principal, id int64) (*models.User, error)
	ListMechanics(ctx context.Context) ([]*models.User, error)
}
