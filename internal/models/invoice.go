package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice is generated exactly once per completed job card, never by a direct
// client request. GrandTotal = PartsTotal + LaborTotal.
type Invoice struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	JobCardID     int64           `json:"job_card_id"`
	CustomerID    int64           `json:"customer_id"`
	PartsTotal    decimal.Decimal `json:"parts_total"`
	LaborTotal    decimal.Decimal `json:"labor_total"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	Status        string          `json:"status"`
	PaymentMethod *string         `json:"payment_method,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}
