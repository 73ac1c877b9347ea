package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"garage/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const jobCardColumns = `id, booking_id, customer_id, vehicle_id, mechanic_id, status,
                 labor_cost, total_cost, percent_complete, progress_notes,
                 started_at, completed_at, created_at, updated_at`

func scanJobCard(row rowScanner) (*models.JobCard, error) {
	var j models.JobCard
	var bookingID, customerID, mechanicID sql.NullInt64
	var laborStr, totalStr string
	var notes sql.NullString
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&j.ID, &bookingID, &customerID, &j.VehicleID, &mechanicID, &j.Status,
		&laborStr, &totalStr, &j.PercentComplete, &notes,
		&startedAt, &completedAt, &j.CreatedAt, &j.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.BookingID = nullableID(bookingID)
	j.CustomerID = nullableID(customerID)
	j.MechanicID = nullableID(mechanicID)
	j.StartedAt = nullableTime(startedAt)
	j.CompletedAt = nullableTime(completedAt)
	if notes.Valid {
		j.ProgressNotes = notes.String
	}
	if j.LaborCost, err = scanDecimal(laborStr); err != nil {
		return nil, err
	}
	if j.TotalCost, err = scanDecimal(totalStr); err != nil {
		return nil, err
	}
	return &j, nil
}

// CreateJobCard opens a card outside the assignment flow (administrative
// use: walk-in work with no booking behind it).
func (db *DB) CreateJobCard(ctx context.Context, card *models.JobCard) error {
	query := `INSERT INTO job_cards (booking_id, customer_id, vehicle_id, mechanic_id,
                status, labor_cost, total_cost, percent_complete, progress_notes,
                created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		card.BookingID,
		card.CustomerID,
		card.VehicleID,
		card.MechanicID,
		card.Status,
		card.LaborCost.String(),
		card.LaborCost.String(), // no tasks or parts yet
		card.PercentComplete,
		card.ProgressNotes,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create job card: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	card.ID = id
	card.TotalCost = card.LaborCost
	card.CreatedAt = now
	card.UpdatedAt = now

	return nil
}

// GetJobCard loads the card together with its tasks and spare parts.
func (db *DB) GetJobCard(ctx context.Context, id int64) (*models.JobCard, error) {
	card, err := scanJobCard(db.QueryRowContext(ctx,
		`SELECT `+jobCardColumns+` FROM job_cards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job card: %w", err)
	}

	if card.Tasks, err = db.getTasks(ctx, db.DB, id); err != nil {
		return nil, err
	}
	if card.SpareParts, err = db.getSpareParts(ctx, db.DB, id); err != nil {
		return nil, err
	}
	return card, nil
}

// JobCardFilter narrows ListJobCards. Zero values mean "no filter".
type JobCardFilter struct {
	MechanicID int64
	CustomerID int64
	Status     string
}

func (db *DB) ListJobCards(ctx context.Context, filter JobCardFilter) ([]*models.JobCard, error) {
	query := `SELECT ` + jobCardColumns + ` FROM job_cards`
	var conds []string
	var args []any

	if filter.MechanicID != 0 {
		conds = append(conds, "mechanic_id = ?")
		args = append(args, filter.MechanicID)
	}
	if filter.CustomerID != 0 {
		conds = append(conds, "customer_id = ?")
		args = append(args, filter.CustomerID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list job cards: %w", err)
	}
	defer rows.Close()

	var cards []*models.JobCard
	for rows.Next() {
		c, err := scanJobCard(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// StartJobCard moves pending -> in_progress and stamps started_at.
func (db *DB) StartJobCard(ctx context.Context, id int64) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`UPDATE job_cards SET status = ?, started_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		models.JobCardInProgress, now, now, id, models.JobCardPending,
	)
	if err != nil {
		return fmt.Errorf("failed to start job card: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// CancelJobCard closes a non-terminal card.
func (db *DB) CancelJobCard(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE job_cards SET status = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		models.JobCardCancelled, time.Now(),
		id, models.JobCardPending, models.JobCardInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel job card: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateJobCardProgress writes percent/notes while work is in progress.
// The condition also enforces that percent never decreases.
func (db *DB) UpdateJobCardProgress(ctx context.Context, id int64, percent int, notes string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE job_cards SET percent_complete = ?, progress_notes = ?, updated_at = ?
         WHERE id = ? AND status = ? AND percent_complete <= ?`,
		percent, notes, time.Now(), id, models.JobCardInProgress, percent,
	)
	if err != nil {
		return fmt.Errorf("failed to update job card progress: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

// AddTask appends a labor line and recomputes the card total, one transaction.
func (db *DB) AddTask(ctx context.Context, jobCardID int64, taskName string, taskCost decimal.Decimal) (*models.JobCard, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := db.requireOpenCard(ctx, tx, jobCardID); err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO job_card_tasks (job_card_id, task_name, task_cost, status, created_at)
         VALUES (?, ?, ?, ?, ?)`,
		jobCardID, taskName, taskCost.String(), models.TaskPending, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert task: %w", err)
	}

	if err := db.recomputeTotal(ctx, tx, jobCardID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit task: %w", err)
	}
	return db.GetJobCard(ctx, jobCardID)
}

// AddSparePart records a consumed part at the given snapshot price and
// recomputes the card total, one transaction. Stock is decremented for
// bookkeeping; the catalog remains the source of truth for pricing.
func (db *DB) AddSparePart(ctx context.Context, jobCardID, partID, quantity int64, unitPrice decimal.Decimal) (*models.JobCard, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := db.requireOpenCard(ctx, tx, jobCardID); err != nil {
		return nil, err
	}

	totalPrice := unitPrice.Mul(decimal.NewFromInt(quantity))
	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO job_card_parts (job_card_id, part_id, quantity, unit_price, total_price, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		jobCardID, partID, quantity, unitPrice.String(), totalPrice.String(), now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert spare part: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE parts SET stock_quantity = stock_quantity - ?, updated_at = ? WHERE id = ?`,
		quantity, now, partID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement part stock: %w", err)
	}

	if err := db.recomputeTotal(ctx, tx, jobCardID, now); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit spare part: %w", err)
	}
	return db.GetJobCard(ctx, jobCardID)
}

// CompleteJobCard moves in_progress -> completed and generates the invoice
// inside the same transaction. Completing an already-completed card is a
// status-level no-op that never creates a second invoice; the unique index
// on invoices.job_card_id backs that up. The bool reports whether an
// invoice row was created by this call.
func (db *DB) CompleteJobCard(ctx context.Context, id int64, notes string) (*models.Invoice, bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	card, err := scanJobCard(tx.QueryRowContext(ctx,
		`SELECT `+jobCardColumns+` FROM job_cards WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load job card in tx: %w", err)
	}

	now := time.Now()
	switch card.Status {
	case models.JobCardInProgress:
		result, err := tx.ExecContext(ctx,
			`UPDATE job_cards SET status = ?, percent_complete = 100, progress_notes = ?,
                 completed_at = ?, updated_at = ?
             WHERE id = ? AND status = ?`,
			models.JobCardCompleted, notes, now, now, id, models.JobCardInProgress,
		)
		if err != nil {
			return nil, false, fmt.Errorf("failed to complete job card: %w", err)
		}
		rows, _ := result.RowsAffected()
		if rows == 0 {
			return nil, false, ErrConflict
		}
	case models.JobCardCompleted:
		// Idempotent: fall through to the invoice check.
	default:
		return nil, false, ErrInvalidState
	}

	invoice, created, err := db.generateInvoice(ctx, tx, card, now)
	if err != nil {
		return nil, false, err
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit completion: %w", err)
	}
	return invoice, created, nil
}

// DeleteJobCard removes a card and its children. Billed cards stay.
func (db *DB) DeleteJobCard(ctx context.Context, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var invoices int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM invoices WHERE job_card_id = ?`, id).Scan(&invoices); err != nil {
		return fmt.Errorf("failed to check invoices: %w", err)
	}
	if invoices > 0 {
		return ErrHasInvoice
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM job_card_tasks WHERE job_card_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete tasks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM job_card_parts WHERE job_card_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete spare parts: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM job_cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job card: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (db *DB) getTasks(ctx context.Context, q queryer, jobCardID int64) ([]models.JobCardTask, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, job_card_id, task_name, task_cost, status, created_at
         FROM job_card_tasks WHERE job_card_id = ? ORDER BY id ASC`, jobCardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.JobCardTask
	for rows.Next() {
		var t models.JobCardTask
		var costStr string
		if err := rows.Scan(&t.ID, &t.JobCardID, &t.TaskName, &costStr, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if t.TaskCost, err = scanDecimal(costStr); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (db *DB) getSpareParts(ctx context.Context, q queryer, jobCardID int64) ([]models.JobCardSparePart, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, job_card_id, part_id, quantity, unit_price, total_price, created_at
         FROM job_card_parts WHERE job_card_id = ? ORDER BY id ASC`, jobCardID)
	if err != nil {
		return nil, fmt.Errorf("failed to get spare parts: %w", err)
	}
	defer rows.Close()

	var parts []models.JobCardSparePart
	for rows.Next() {
		var p models.JobCardSparePart
		var unitStr, totalStr string
		if err := rows.Scan(&p.ID, &p.JobCardID, &p.PartID, &p.Quantity, &unitStr, &totalStr, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan spare part: %w", err)
		}
		if p.UnitPrice, err = scanDecimal(unitStr); err != nil {
			return nil, err
		}
		if p.TotalPrice, err = scanDecimal(totalStr); err != nil {
			return nil, err
		}
		parts = append(parts, p)
	}
	return parts, rows.Err()
}

// requireOpenCard rejects cost mutations on terminal cards.
func (db *DB) requireOpenCard(ctx context.Context, tx *sql.Tx, jobCardID int64) error {
	var status string
	err := tx.QueryRowContext(ctx,
		`SELECT status FROM job_cards WHERE id = ?`, jobCardID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load job card status: %w", err)
	}
	if status != models.JobCardPending && status != models.JobCardInProgress {
		return ErrInvalidState
	}
	return nil
}

// recomputeTotal re-derives total_cost = labor_cost + sum(tasks) + sum(parts).
// Sums run through decimal arithmetic in Go so money stays exact.
func (db *DB) recomputeTotal(ctx context.Context, tx *sql.Tx, jobCardID int64, now time.Time) error {
	var laborStr string
	if err := tx.QueryRowContext(ctx,
		`SELECT labor_cost FROM job_cards WHERE id = ?`, jobCardID).Scan(&laborStr); err != nil {
		return fmt.Errorf("failed to load labor cost: %w", err)
	}
	total, err := scanDecimal(laborStr)
	if err != nil {
		return err
	}

	taskSum, err := sumColumn(ctx, tx,
		`SELECT task_cost FROM job_card_tasks WHERE job_card_id = ?`, jobCardID)
	if err != nil {
		return err
	}
	partSum, err := sumColumn(ctx, tx,
		`SELECT total_price FROM job_card_parts WHERE job_card_id = ?`, jobCardID)
	if err != nil {
		return err
	}
	total = total.Add(taskSum).Add(partSum)

	result, err := tx.ExecContext(ctx,
		`UPDATE job_cards SET total_cost = ?, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		total.String(), now, jobCardID, models.JobCardPending, models.JobCardInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to update total cost: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}

func sumColumn(ctx context.Context, tx *sql.Tx, query string, args ...any) (decimal.Decimal, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum column: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan column: %w", err)
		}
		d, err := scanDecimal(raw)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(d)
	}
	return sum, rows.Err()
}

// generateInvoice persists the invoice for a completed card. A pre-existing
// invoice is returned as-is: generation is exactly-once per card.
func (db *DB) generateInvoice(ctx context.Context, tx *sql.Tx, card *models.JobCard, now time.Time) (*models.Invoice, bool, error) {
	existing, err := scanInvoice(tx.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE job_card_id = ?`, card.ID))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to check existing invoice: %w", err)
	}

	partsTotal, err := sumColumn(ctx, tx,
		`SELECT total_price FROM job_card_parts WHERE job_card_id = ?`, card.ID)
	if err != nil {
		return nil, false, err
	}
	taskSum, err := sumColumn(ctx, tx,
		`SELECT task_cost FROM job_card_tasks WHERE job_card_id = ?`, card.ID)
	if err != nil {
		return nil, false, err
	}
	laborTotal := card.LaborCost.Add(taskSum)
	grandTotal := partsTotal.Add(laborTotal)

	var customerID int64
	if card.CustomerID != nil {
		customerID = *card.CustomerID
	}

	invoice := &models.Invoice{
		Number:     "INV-" + strings.ToUpper(uuid.NewString()[:8]),
		JobCardID:  card.ID,
		CustomerID: customerID,
		PartsTotal: partsTotal,
		LaborTotal: laborTotal,
		GrandTotal: grandTotal,
		Status:     models.InvoiceUnpaid,
		CreatedAt:  now,
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO invoices (number, job_card_id, customer_id, parts_total,
             labor_total, grand_total, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.Number, invoice.JobCardID, invoice.CustomerID,
		invoice.PartsTotal.String(), invoice.LaborTotal.String(),
		invoice.GrandTotal.String(), invoice.Status, now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert invoice: %w", err)
	}
	invoice.ID, err = result.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get invoice id: %w", err)
	}
	return invoice, true, nil
}
