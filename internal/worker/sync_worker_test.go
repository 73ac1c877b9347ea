package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"garage/internal/database"
	"garage/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSheets struct {
	err          error
	upsertCalls  int
	statusCalls  int
	invoiceCalls int
}

func (f *fakeSheets) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	f.upsertCalls++
	return f.err
}

func (f *fakeSheets) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	f.statusCalls++
	return f.err
}

func (f *fakeSheets) UpsertInvoice(ctx context.Context, invoice *models.Invoice) error {
	f.invoiceCalls++
	return f.err
}

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "worker.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func taskState(t *testing.T, db *database.DB, id int64) (string, int, *time.Time) {
	t.Helper()
	var status string
	var retryCount int
	var nextRetry *time.Time
	err := db.QueryRow(`SELECT status, retry_count, next_retry_at FROM sync_queue WHERE id = ?`, id).
		Scan(&status, &retryCount, &nextRetry)
	require.NoError(t, err)
	return status, retryCount, nextRetry
}

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{}
	w := NewSyncWorker(db, sheets, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	booking := &models.Booking{ID: 1, CustomerID: 1, VehicleID: 3, Status: models.BookingPending}
	require.NoError(t, w.EnqueueBookingUpsert(ctx, booking))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	status, retries, nextRetry := taskState(t, db, task.ID)
	assert.Equal(t, models.SyncDone, status)
	assert.Zero(t, retries)
	assert.Nil(t, nextRetry)
	assert.Equal(t, 1, sheets.upsertCalls)
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: assert.AnError}
	w := NewSyncWorker(db, sheets, nil, RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueBookingStatus(ctx, 2, models.BookingApproved))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	status, retries, nextRetry := taskState(t, db, task.ID)
	assert.Equal(t, models.SyncRetry, status)
	assert.Equal(t, 1, retries)
	require.NotNil(t, nextRetry)
	assert.True(t, nextRetry.After(time.Now()))
}

func TestProcessTaskDeadLetter(t *testing.T) {
	db := newTestDB(t)
	sheets := &fakeSheets{err: assert.AnError}
	w := NewSyncWorker(db, sheets, nil, RetryPolicy{MaxAttempts: 1}, nil)
	ctx := context.Background()

	invoice := &models.Invoice{ID: 7, JobCardID: 4, CustomerID: 1, GrandTotal: decimal.NewFromInt(100)}
	require.NoError(t, w.EnqueueInvoiceUpsert(ctx, invoice))

	task, ok := w.tryLocalQueue()
	require.True(t, ok)
	w.processTask(ctx, &task)

	status, _, _ := taskState(t, db, task.ID)
	assert.Equal(t, models.SyncDeadLetter, status)

	dead, err := db.GetDeadLetterSyncTasks(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, TaskInvoiceUpsert, dead[0].TaskType)
	assert.Equal(t, models.EntityInvoice, dead[0].EntityKind)
}

func TestEnqueueValidation(t *testing.T) {
	db := newTestDB(t)
	w := NewSyncWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	assert.Error(t, w.EnqueueBookingUpsert(ctx, nil))
	assert.Error(t, w.EnqueueBookingUpsert(ctx, &models.Booking{}))
	assert.Error(t, w.EnqueueBookingStatus(ctx, 0, "approved"))
	assert.Error(t, w.EnqueueBookingStatus(ctx, 1, ""))
	assert.Error(t, w.EnqueueInvoiceUpsert(ctx, nil))
}

func TestApplyUnknownTaskType(t *testing.T) {
	w := NewSyncWorker(nil, &fakeSheets{}, nil, RetryPolicy{}, nil)

	err := w.apply(context.Background(), &models.SyncTask{TaskType: "mystery"}, syncPayload{})
	assert.Error(t, err)
}

func TestPendingTasksVisibleToPoll(t *testing.T) {
	db := newTestDB(t)
	w := NewSyncWorker(db, &fakeSheets{}, nil, RetryPolicy{}, nil)
	ctx := context.Background()

	require.NoError(t, w.EnqueueBookingStatus(ctx, 9, models.BookingConfirmed))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, TaskBookingStatus, tasks[0].TaskType)
	assert.Equal(t, models.EntityBooking, tasks[0].EntityKind)
	assert.Equal(t, int64(9), tasks[0].EntityID)
}

func TestRetryPolicyDelayFor(t *testing.T) {
	policy := RetryPolicy{BaseDelay: time.Second, Factor: 2, MaxDelay: 5 * time.Second}

	assert.Equal(t, time.Second, policy.DelayFor(1))
	assert.Equal(t, 2*time.Second, policy.DelayFor(2))
	assert.Equal(t, 5*time.Second, policy.DelayFor(5))
}
