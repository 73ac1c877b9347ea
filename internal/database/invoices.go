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

const invoiceColumns = `id, number, job_card_id, customer_id, parts_total,
                 labor_total, grand_total, status, payment_method, paid_at, created_at`

func scanInvoice(row rowScanner) (*models.Invoice, error) {
	var inv models.Invoice
	var partsStr, laborStr, grandStr string
	var method sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.Number, &inv.JobCardID, &inv.CustomerID,
		&partsStr, &laborStr, &grandStr, &inv.Status, &method, &paidAt, &inv.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.PaymentMethod = nullableString(method)
	inv.PaidAt = nullableTime(paidAt)
	if inv.PartsTotal, err = scanDecimal(partsStr); err != nil {
		return nil, err
	}
	if inv.LaborTotal, err = scanDecimal(laborStr); err != nil {
		return nil, err
	}
	if inv.GrandTotal, err = scanDecimal(grandStr); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (db *DB) GetInvoice(ctx context.Context, id int64) (*models.Invoice, error) {
	invoice, err := scanInvoice(db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}
	return invoice, nil
}

func (db *DB) GetInvoiceByJobCard(ctx context.Context, jobCardID int64) (*models.Invoice, error) {
	invoice, err := scanInvoice(db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE job_card_id = ?`, jobCardID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice by job card: %w", err)
	}
	return invoice, nil
}

// InvoiceFilter narrows ListInvoices. Zero values mean "no filter".
type InvoiceFilter struct {
	CustomerID int64
	Status     string
}

func (db *DB) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var conds []string
	var args []any

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
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*models.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// MarkInvoicePaid settles an unpaid invoice. Paying twice conflicts.
func (db *DB) MarkInvoicePaid(ctx context.Context, id int64, paymentMethod string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE invoices SET status = ?, payment_method = ?, paid_at = ?
         WHERE id = ? AND status = ?`,
		models.InvoicePaid, paymentMethod, time.Now(), id, models.InvoiceUnpaid,
	)
	if err != nil {
		return fmt.Errorf("failed to mark invoice paid: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConflict
	}
	return nil
}
