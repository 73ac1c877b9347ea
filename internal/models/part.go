package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part is a catalog entry. The workflow only reads it to snapshot the unit
// price when a spare part is consumed on a job card.
type Part struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	StockQuantity int64           `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
