package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"garage/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupFileDB(t *testing.T) *DB {
	logger := zerolog.New(zerolog.NewConsoleWriter())
	dbPath := filepath.Join(t.TempDir(), "concurrency.db")
	db, err := NewDB(dbPath, &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestConcurrentStatusTransition(t *testing.T) {
	db := setupFileDB(t)
	ctx := context.Background()

	b := makeBooking(t, db, 1, models.BookingPending)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			results <- db.UpdateBookingStatusIf(ctx, b.ID, models.BookingApproved, models.BookingPending)
		}()
	}
	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, ErrConflict)
		}
	}
	assert.Equal(t, 1, successCount, "exactly one transition should win")

	got, err := db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingApproved, got.Status)
}

func TestConcurrentAssignment(t *testing.T) {
	db := setupFileDB(t)
	ctx := context.Background()

	b := makeBooking(t, db, 1, models.BookingApproved)

	const numGoroutines = 8
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(mechanicID int64) {
			defer wg.Done()
			_, err := db.AssignMechanic(ctx, b.ID, mechanicID)
			results <- err
		}(int64(40 + i))
	}
	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		}
	}
	assert.Equal(t, 1, successCount, "exactly one assignment should win")

	cards, err := db.ListJobCards(ctx, JobCardFilter{})
	require.NoError(t, err)
	assert.Len(t, cards, 1)
}

func TestConcurrentCompletion(t *testing.T) {
	db := setupFileDB(t)
	ctx := context.Background()

	card := makeAssignedCard(t, db)
	require.NoError(t, db.StartJobCard(ctx, card.ID))

	const numGoroutines = 6
	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			// Conflicts are acceptable here; a second invoice is not.
			_, _, _ = db.CompleteJobCard(ctx, card.ID, "done")
		}()
	}
	wg.Wait()

	invoices, err := db.ListInvoices(ctx, InvoiceFilter{})
	require.NoError(t, err)
	assert.Len(t, invoices, 1, "completion must generate exactly one invoice")
}
