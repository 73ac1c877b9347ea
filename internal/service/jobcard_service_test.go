package service

import (
	"context"
	"testing"

	"garage/internal/database"
	"garage/internal/domain"
	"garage/internal/events"
	"garage/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newJobCardService(store *mockStore, sync *mockSyncWorker, cache *mockCache) *JobCardService {
	logger := zerolog.Nop()
	var sw domain.SyncWorker
	if sync != nil {
		sw = sync
	}
	var c domain.StateRepository
	if cache != nil {
		c = cache
	}
	return NewJobCardService(store, events.NewEventBus(), sw, c, &logger)
}

func cardFixture(id int64, status string) *models.JobCard {
	customerID := int64(1)
	mechanicID := int64(42)
	bookingID := int64(5)
	return &models.JobCard{
		ID:         id,
		BookingID:  &bookingID,
		CustomerID: &customerID,
		VehicleID:  100,
		MechanicID: &mechanicID,
		Status:     status,
	}
}

func TestJobCardVisibility(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	card := cardFixture(10, models.JobCardPending)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)

	_, err := svc.GetJobCard(ctx, customer, 10)
	assert.NoError(t, err, "owning customer may read")

	_, err = svc.GetJobCard(ctx, mechanic, 10)
	assert.NoError(t, err, "assigned mechanic may read")

	stranger := models.Principal{ID: 77, Role: models.RoleCustomer}
	_, err = svc.GetJobCard(ctx, stranger, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStartJobCardMirrorsBooking(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	card := cardFixture(10, models.JobCardPending)
	started := cardFixture(10, models.JobCardInProgress)

	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil).Once()
	store.On("StartJobCard", mock.Anything, int64(10)).Return(nil)
	store.On("UpdateBookingStatusIf", mock.Anything, int64(5), models.BookingInProgress, models.BookingAssigned).Return(nil)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(started, nil)

	got, err := svc.UpdateStatus(ctx, mechanic, 10, models.JobCardInProgress)
	require.NoError(t, err)
	assert.Equal(t, models.JobCardInProgress, got.Status)
	store.AssertExpectations(t)
}

func TestStartJobCardForbiddenForOtherMechanic(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)

	card := cardFixture(10, models.JobCardPending)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)

	other := models.Principal{ID: 43, Role: models.RoleMechanic}
	_, err := svc.UpdateStatus(context.Background(), other, 10, models.JobCardInProgress)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateProgressValidation(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.UpdateProgress(ctx, mechanic, 10, 120, "")
	assert.ErrorIs(t, err, ErrValidation)

	card := cardFixture(10, models.JobCardInProgress)
	card.PercentComplete = 60
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)

	// Regression is malformed input, not a conflict.
	_, err = svc.UpdateProgress(ctx, mechanic, 10, 40, "going backwards")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestUpdateProgressRequiresActiveCard(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)

	card := cardFixture(10, models.JobCardPending)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)

	_, err := svc.UpdateProgress(context.Background(), mechanic, 10, 10, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddTaskValidation(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.AddTask(ctx, mechanic, 10, "", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.AddTask(ctx, mechanic, 10, "weld", decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddSparePartChecksStock(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	card := cardFixture(10, models.JobCardInProgress)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)
	store.On("GetPart", mock.Anything, int64(3)).Return(&models.Part{
		ID: 3, Name: "Pad", UnitPrice: decimal.NewFromInt(20), StockQuantity: 1,
	}, nil)

	_, err := svc.AddSparePart(ctx, mechanic, 10, 3, 2)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddSparePartSnapshotsCatalogPrice(t *testing.T) {
	store := &mockStore{}
	cache := &mockCache{}
	svc := newJobCardService(store, nil, cache)
	ctx := context.Background()

	card := cardFixture(10, models.JobCardInProgress)
	price := decimal.RequireFromString("19.99")

	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)
	store.On("GetPart", mock.Anything, int64(3)).Return(&models.Part{
		ID: 3, Name: "Pad", UnitPrice: price, StockQuantity: 4,
	}, nil)
	store.On("AddSparePart", mock.Anything, int64(10), int64(3), int64(2), price).Return(card, nil)
	cache.On("Invalidate", mock.Anything, partsCacheKey).Return(nil)

	_, err := svc.AddSparePart(ctx, mechanic, 10, 3, 2)
	require.NoError(t, err)
	store.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestCompleteGeneratesInvoiceOnce(t *testing.T) {
	store := &mockStore{}
	sync := &mockSyncWorker{}
	svc := newJobCardService(store, sync, nil)
	ctx := context.Background()

	card := cardFixture(10, models.JobCardInProgress)
	done := cardFixture(10, models.JobCardCompleted)
	invoice := &models.Invoice{ID: 1, Number: "INV-ABC", JobCardID: 10, CustomerID: 1, Status: models.InvoiceUnpaid}

	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil).Once()
	store.On("CompleteJobCard", mock.Anything, int64(10), "finished").Return(invoice, true, nil)
	store.On("UpdateBookingStatusIf", mock.Anything, int64(5), models.BookingCompleted, models.BookingInProgress).Return(nil)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(done, nil)
	sync.On("EnqueueInvoiceUpsert", mock.Anything, invoice).Return(nil)

	gotCard, gotInvoice, err := svc.Complete(ctx, mechanic, 10, "finished")
	require.NoError(t, err)
	assert.Equal(t, models.JobCardCompleted, gotCard.Status)
	assert.Equal(t, invoice.Number, gotInvoice.Number)
	store.AssertExpectations(t)
	sync.AssertExpectations(t)
}

func TestCompleteAgainIsNoOp(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	done := cardFixture(10, models.JobCardCompleted)
	invoice := &models.Invoice{ID: 1, Number: "INV-ABC", JobCardID: 10, CustomerID: 1}

	store.On("GetJobCard", mock.Anything, int64(10)).Return(done, nil)
	store.On("CompleteJobCard", mock.Anything, int64(10), "").Return(invoice, false, nil)

	_, gotInvoice, err := svc.Complete(ctx, mechanic, 10, "")
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, gotInvoice.ID)
}

func TestCompletePendingIsValidation(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)

	card := cardFixture(10, models.JobCardPending)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)

	_, _, err := svc.Complete(context.Background(), mechanic, 10, "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateJobCardAdminOnly(t *testing.T) {
	svc := newJobCardService(&mockStore{}, nil, nil)

	card := &models.JobCard{VehicleID: 100}
	assert.ErrorIs(t, svc.Create(context.Background(), mechanic, card), ErrForbidden)
	assert.ErrorIs(t, svc.Create(context.Background(), customer, card), ErrForbidden)
}

func TestCreateJobCardValidation(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	err := svc.Create(ctx, admin, &models.JobCard{})
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.Create(ctx, admin, &models.JobCard{VehicleID: 100, LaborCost: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, ErrValidation)

	// Assignee must exist and hold the mechanic role.
	unknownID := int64(50)
	store.On("GetUser", mock.Anything, int64(50)).Return(nil, database.ErrNotFound)
	err = svc.Create(ctx, admin, &models.JobCard{VehicleID: 100, MechanicID: &unknownID})
	assert.ErrorIs(t, err, ErrValidation)

	customerID := int64(1)
	store.On("GetUser", mock.Anything, int64(1)).Return(&models.User{ID: 1, Role: models.RoleCustomer}, nil)
	err = svc.Create(ctx, admin, &models.JobCard{VehicleID: 100, MechanicID: &customerID})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateJobCardOpensPending(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	store.On("CreateJobCard", mock.Anything, mock.Anything).Return(nil)

	// Walk-in work: no booking, no mechanic yet.
	card := &models.JobCard{
		VehicleID:       100,
		LaborCost:       decimal.NewFromInt(50),
		Status:          models.JobCardCompleted, // must be reset
		PercentComplete: 80,                      // must be reset
	}
	require.NoError(t, svc.Create(ctx, admin, card))

	assert.Equal(t, models.JobCardPending, card.Status)
	assert.Zero(t, card.PercentComplete)
	store.AssertExpectations(t)
}

func TestDeleteJobCardAdminOnly(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)
	ctx := context.Background()

	card := cardFixture(10, models.JobCardPending)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)

	assert.ErrorIs(t, svc.Delete(ctx, mechanic, 10), ErrForbidden)

	store.On("DeleteJobCard", mock.Anything, int64(10)).Return(nil)
	assert.NoError(t, svc.Delete(ctx, admin, 10))
}

func TestDeleteBilledJobCard(t *testing.T) {
	store := &mockStore{}
	svc := newJobCardService(store, nil, nil)

	card := cardFixture(10, models.JobCardCompleted)
	store.On("GetJobCard", mock.Anything, int64(10)).Return(card, nil)
	store.On("DeleteJobCard", mock.Anything, int64(10)).Return(database.ErrHasInvoice)

	err := svc.Delete(context.Background(), admin, 10)
	assert.ErrorIs(t, err, database.ErrHasInvoice)
}
