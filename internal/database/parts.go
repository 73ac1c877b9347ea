package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"garage/internal/models"
)

func (db *DB) CreatePart(ctx context.Context, part *models.Part) error {
	now := time.Now()
	result, err := db.ExecContext(ctx,
		`INSERT INTO parts (name, unit_price, stock_quantity, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		part.Name, part.UnitPrice.String(), part.StockQuantity, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create part: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	part.ID = id
	part.CreatedAt = now
	part.UpdatedAt = now
	return nil
}

func (db *DB) GetPart(ctx context.Context, id int64) (*models.Part, error) {
	var p models.Part
	var priceStr string
	err := db.QueryRowContext(ctx,
		`SELECT id, name, unit_price, stock_quantity, created_at, updated_at
         FROM parts WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &priceStr, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get part: %w", err)
	}
	if p.UnitPrice, err = scanDecimal(priceStr); err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) ListParts(ctx context.Context) ([]*models.Part, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, name, unit_price, stock_quantity, created_at, updated_at
         FROM parts ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list parts: %w", err)
	}
	defer rows.Close()

	var parts []*models.Part
	for rows.Next() {
		var p models.Part
		var priceStr string
		if err := rows.Scan(&p.ID, &p.Name, &priceStr, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan part: %w", err)
		}
		if p.UnitPrice, err = scanDecimal(priceStr); err != nil {
			return nil, err
		}
		parts = append(parts, &p)
	}
	return parts, rows.Err()
}
