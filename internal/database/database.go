package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the sqlite connection used by the workflow core. All multi-row
// mutations (assignment, completion + invoice) run inside one transaction.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return &DB{DB: db, logger: logger}, nil
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT,
            role TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            customer_id INTEGER NOT NULL,
            vehicle_id INTEGER NOT NULL,
            mechanic_id INTEGER,
            service_type TEXT NOT NULL,
            scheduled_at DATETIME NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            estimated_cost TEXT NOT NULL DEFAULT '0',
            notes TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS job_cards (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            booking_id INTEGER,
            customer_id INTEGER,
            vehicle_id INTEGER NOT NULL,
            mechanic_id INTEGER,
            status TEXT NOT NULL DEFAULT 'pending',
            labor_cost TEXT NOT NULL DEFAULT '0',
            total_cost TEXT NOT NULL DEFAULT '0',
            percent_complete INTEGER NOT NULL DEFAULT 0,
            progress_notes TEXT,
            started_at DATETIME,
            completed_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS job_card_tasks (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            job_card_id INTEGER NOT NULL REFERENCES job_cards(id),
            task_name TEXT NOT NULL,
            task_cost TEXT NOT NULL DEFAULT '0',
            status TEXT NOT NULL DEFAULT 'pending',
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS job_card_parts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            job_card_id INTEGER NOT NULL REFERENCES job_cards(id),
            part_id INTEGER NOT NULL,
            quantity INTEGER NOT NULL,
            unit_price TEXT NOT NULL,
            total_price TEXT NOT NULL,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS invoices (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            number TEXT NOT NULL,
            job_card_id INTEGER NOT NULL,
            customer_id INTEGER NOT NULL,
            parts_total TEXT NOT NULL,
            labor_total TEXT NOT NULL,
            grand_total TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'unpaid',
            payment_method TEXT,
            paid_at DATETIME,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS parts (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            unit_price TEXT NOT NULL DEFAULT '0',
            stock_quantity INTEGER NOT NULL DEFAULT 0,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            entity_kind TEXT NOT NULL,
            entity_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		// One job card per booking. NULL booking_id rows (administrative
		// cards) are exempt from the uniqueness.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_job_cards_booking_id ON job_cards(booking_id) WHERE booking_id IS NOT NULL`,
		// One invoice per job card, enforced by the storage engine.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_invoices_job_card_id ON invoices(job_card_id)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_customer_id ON bookings(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_mechanic_id ON bookings(mechanic_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE INDEX IF NOT EXISTS idx_job_cards_mechanic_id ON job_cards(mechanic_id)`,
		`CREATE INDEX IF NOT EXISTS idx_job_cards_status ON job_cards(status)`,
		`CREATE INDEX IF NOT EXISTS idx_job_card_tasks_card ON job_card_tasks(job_card_id)`,
		`CREATE INDEX IF NOT EXISTS idx_job_card_parts_card ON job_card_parts(job_card_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invoices_customer_id ON invoices(customer_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// scanDecimal parses a TEXT money column. Costs are stored as decimal
// strings so catalog arithmetic stays exact.
func scanDecimal(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse decimal %q: %w", raw, err)
	}
	return d, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
