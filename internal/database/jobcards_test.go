package database

import (
	"context"
	"testing"

	"garage/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeAssignedCard(t *testing.T, db *DB) *models.JobCard {
	t.Helper()
	b := makeBooking(t, db, 1, models.BookingApproved)
	card, err := db.AssignMechanic(context.Background(), b.ID, 42)
	require.NoError(t, err)
	return card
}

func TestStartJobCard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)
	require.NoError(t, db.StartJobCard(ctx, card.ID))

	got, err := db.GetJobCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCardInProgress, got.Status)
	assert.NotNil(t, got.StartedAt)

	// Already in progress, starting again conflicts.
	assert.ErrorIs(t, db.StartJobCard(ctx, card.ID), ErrConflict)
}

func TestUpdateJobCardProgress(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)

	// Progress writes require in_progress.
	assert.ErrorIs(t, db.UpdateJobCardProgress(ctx, card.ID, 10, "early"), ErrConflict)

	require.NoError(t, db.StartJobCard(ctx, card.ID))
	require.NoError(t, db.UpdateJobCardProgress(ctx, card.ID, 40, "halfway there"))

	got, err := db.GetJobCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, got.PercentComplete)
	assert.Equal(t, "halfway there", got.ProgressNotes)

	// Percent must not go backwards.
	assert.ErrorIs(t, db.UpdateJobCardProgress(ctx, card.ID, 30, "oops"), ErrConflict)

	// Same value is allowed, only regressions are rejected.
	require.NoError(t, db.UpdateJobCardProgress(ctx, card.ID, 40, "still at 40"))
}

func TestAddTaskRecomputesTotal(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)

	got, err := db.AddTask(ctx, card.ID, "replace filter", decimal.RequireFromString("15.50"))
	require.NoError(t, err)
	require.Len(t, got.Tasks, 1)
	assert.True(t, got.TotalCost.Equal(decimal.RequireFromString("15.50")))

	got, err = db.AddTask(ctx, card.ID, "flush coolant", decimal.RequireFromString("30.00"))
	require.NoError(t, err)
	require.Len(t, got.Tasks, 2)
	assert.True(t, got.TotalCost.Equal(decimal.RequireFromString("45.50")))
}

func TestAddSparePartSnapshotsPrice(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	part := &models.Part{Name: "Brake Pad", UnitPrice: decimal.RequireFromString("25.00"), StockQuantity: 10}
	require.NoError(t, db.CreatePart(ctx, part))

	card := makeAssignedCard(t, db)

	got, err := db.AddSparePart(ctx, card.ID, part.ID, 2, part.UnitPrice)
	require.NoError(t, err)
	require.Len(t, got.SpareParts, 1)
	assert.True(t, got.SpareParts[0].UnitPrice.Equal(decimal.RequireFromString("25.00")))
	assert.True(t, got.SpareParts[0].TotalPrice.Equal(decimal.RequireFromString("50.00")))
	assert.True(t, got.TotalCost.Equal(decimal.RequireFromString("50.00")))

	stocked, err := db.GetPart(ctx, part.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), stocked.StockQuantity)
}

func TestCostMutationOnTerminalCard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)
	require.NoError(t, db.CancelJobCard(ctx, card.ID))

	_, err := db.AddTask(ctx, card.ID, "late work", decimal.RequireFromString("10"))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCompleteJobCardGeneratesInvoice(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	part := &models.Part{Name: "Oil Filter", UnitPrice: decimal.RequireFromString("12.00"), StockQuantity: 5}
	require.NoError(t, db.CreatePart(ctx, part))

	card := makeAssignedCard(t, db)
	require.NoError(t, db.StartJobCard(ctx, card.ID))
	_, err := db.AddTask(ctx, card.ID, "drain and refill", decimal.RequireFromString("20.00"))
	require.NoError(t, err)
	_, err = db.AddSparePart(ctx, card.ID, part.ID, 1, part.UnitPrice)
	require.NoError(t, err)

	invoice, created, err := db.CompleteJobCard(ctx, card.ID, "all done")
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, invoice)
	assert.Equal(t, models.InvoiceUnpaid, invoice.Status)
	assert.True(t, invoice.PartsTotal.Equal(decimal.RequireFromString("12.00")))
	assert.True(t, invoice.LaborTotal.Equal(decimal.RequireFromString("20.00")))
	assert.True(t, invoice.GrandTotal.Equal(decimal.RequireFromString("32.00")))
	assert.NotEmpty(t, invoice.Number)

	got, err := db.GetJobCard(ctx, card.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCardCompleted, got.Status)
	assert.Equal(t, 100, got.PercentComplete)
	assert.NotNil(t, got.CompletedAt)
}

func TestCompleteJobCardIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)
	require.NoError(t, db.StartJobCard(ctx, card.ID))

	first, created, err := db.CompleteJobCard(ctx, card.ID, "done")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := db.CompleteJobCard(ctx, card.ID, "done again")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Number, second.Number)

	invoices, err := db.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, invoices, 1)
}

func TestCompleteJobCardWrongStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)

	// Still pending, completion is not reachable.
	_, _, err := db.CompleteJobCard(ctx, card.ID, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	_, _, err = db.CompleteJobCard(ctx, 9999, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteJobCard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)
	_, err := db.AddTask(ctx, card.ID, "inspect", decimal.RequireFromString("5"))
	require.NoError(t, err)

	require.NoError(t, db.DeleteJobCard(ctx, card.ID))

	_, err = db.GetJobCard(ctx, card.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBilledJobCard(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)
	require.NoError(t, db.StartJobCard(ctx, card.ID))
	_, _, err := db.CompleteJobCard(ctx, card.ID, "done")
	require.NoError(t, err)

	assert.ErrorIs(t, db.DeleteJobCard(ctx, card.ID), ErrHasInvoice)
}

func TestListJobCardsByMechanic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b1 := makeBooking(t, db, 1, models.BookingApproved)
	b2 := makeBooking(t, db, 2, models.BookingApproved)
	_, err := db.AssignMechanic(ctx, b1.ID, 42)
	require.NoError(t, err)
	_, err = db.AssignMechanic(ctx, b2.ID, 43)
	require.NoError(t, err)

	cards, err := db.ListJobCards(ctx, JobCardFilter{MechanicID: 42})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	require.NotNil(t, cards[0].MechanicID)
	assert.Equal(t, int64(42), *cards[0].MechanicID)
}
