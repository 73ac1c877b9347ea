package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Booking is a customer's request for a service on a vehicle at a scheduled
// time. Rows are never deleted; terminal statuses close the record.
type Booking struct {
	ID            int64           `json:"id"`
	CustomerID    int64           `json:"customer_id"`
	VehicleID     int64           `json:"vehicle_id"`
	MechanicID    *int64          `json:"mechanic_id,omitempty"`
	ServiceType   string          `json:"service_type"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	Status        string          `json:"status"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsTerminal reports whether no further booking transitions are permitted.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingCompleted || b.Status == BookingCancelled || b.Status == BookingRejected
}
