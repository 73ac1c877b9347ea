package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"garage/internal/models"
)

const bookingColumns = `id, customer_id, vehicle_id, mechanic_id, service_type,
                 scheduled_at, status, estimated_cost, notes, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var mechanicID sql.NullInt64
	var costStr string
	var notes sql.NullString

	err := row.Scan(
		&b.ID, &b.CustomerID, &b.VehicleID, &mechanicID, &b.ServiceType,
		&b.ScheduledAt, &b.Status, &costStr, &notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.MechanicID = nullableID(mechanicID)
	if notes.Valid {
		b.Notes = notes.String
	}
	if b.EstimatedCost, err = scanDecimal(costStr); err != nil {
		return nil, err
	}
	return &b, nil
}

func (db *DB) CreateBooking(ctx context.Context, booking *models.Booking) error {
	query := `INSERT INTO bookings (
				customer_id, vehicle_id, mechanic_id, service_type, scheduled_at,
				status, estimated_cost, notes, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		booking.CustomerID,
		booking.VehicleID,
		booking.MechanicID,
		booking.ServiceType,
		booking.ScheduledAt,
		booking.Status,
		booking.EstimatedCost.String(),
		booking.Notes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now

	return nil
}

func (db *DB) GetBooking(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	booking, err := scanBooking(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// BookingFilter narrows ListBookings. Zero values mean "no filter".
type BookingFilter struct {
	CustomerID int64
	MechanicID int64
	Status     string
}

func (db *DB) ListBookings(ctx context.Context, filter BookingFilter) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings`
	var conds []string
	var args []any

	if filter.CustomerID != 0 {
		conds = append(conds, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.MechanicID != 0 {
		conds = append(conds, "mechanic_id = ?")
		args = append(args, filter.MechanicID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY scheduled_at ASC, id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (db *DB) GetBookingsByDateRange(ctx context.Context, startDate, endDate time.Time) ([]*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
              WHERE date(scheduled_at) >= ? AND date(scheduled_at) <= ?
              ORDER BY scheduled_at ASC`
	rows, err := db.QueryContext(ctx, query,
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings by date range: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// UpdateBookingStatusIf applies a conditional transition: the write succeeds
// only while the row still holds one of the expected statuses. Zero rows
// affected means a concurrent writer got there first.
func (db *DB) UpdateBookingStatusIf(ctx context.Context, id int64, to string, expected ...string) error {
	if len(expected) == 0 {
		return fmt.Errorf("expected statuses required")
	}
	placeholders := strings.Repeat("?, ", len(expected)-1) + "?"
	query := `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders + `)`

	args := []any{to, time.Now(), id}
	for _, s := range expected {
		args = append(args, s)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateBookingSchedule moves scheduled_at without changing status. Only
// permitted while no work is active, which the conditional write enforces.
func (db *DB) UpdateBookingSchedule(ctx context.Context, id int64, scheduledAt time.Time, expected ...string) error {
	if len(expected) == 0 {
		return fmt.Errorf("expected statuses required")
	}
	placeholders := strings.Repeat("?, ", len(expected)-1) + "?"
	query := `UPDATE bookings SET scheduled_at = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders + `)`

	args := []any{scheduledAt, time.Now(), id}
	for _, s := range expected {
		args = append(args, s)
	}

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to reschedule booking: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// AssignMechanic binds a mechanic to an approved booking and opens the job
// card, all-or-nothing. The unique index on job_cards.booking_id and the
// conditional booking update together guarantee at most one card per booking.
func (db *DB) AssignMechanic(ctx context.Context, bookingID, mechanicID int64) (*models.JobCard, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	booking, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, bookingID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load booking in tx: %w", err)
	}

	if booking.Status == models.BookingAssigned {
		return nil, ErrAlreadyAssigned
	}
	if booking.Status != models.BookingApproved && booking.Status != models.BookingConfirmed {
		return nil, ErrInvalidState
	}

	var existing int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM job_cards WHERE booking_id = ?`, bookingID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing job card: %w", err)
	}
	if existing > 0 {
		return nil, ErrAlreadyAssigned
	}

	now := time.Now()
	result, err := tx.ExecContext(ctx,
		`INSERT INTO job_cards (booking_id, customer_id, vehicle_id, mechanic_id,
             status, labor_cost, total_cost, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, '0', '0', ?, ?)`,
		bookingID, booking.CustomerID, booking.VehicleID, mechanicID,
		models.JobCardPending, now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrAlreadyAssigned
		}
		return nil, fmt.Errorf("failed to create job card in tx: %w", err)
	}

	cardID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get job card id: %w", err)
	}

	updateResult, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, mechanic_id = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		models.BookingAssigned, mechanicID, now,
		bookingID, models.BookingApproved, models.BookingConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking in tx: %w", err)
	}
	rows, _ := updateResult.RowsAffected()
	if rows == 0 {
		return nil, ErrConflict
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit assignment: %w", err)
	}

	card := &models.JobCard{
		ID:         cardID,
		BookingID:  &bookingID,
		CustomerID: &booking.CustomerID,
		VehicleID:  booking.VehicleID,
		MechanicID: &mechanicID,
		Status:     models.JobCardPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return card, nil
}
