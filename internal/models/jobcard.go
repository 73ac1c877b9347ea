package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// JobCard is the mechanic-facing work order created when a booking is
// assigned. BookingID is nullable: administrative flows may open a card
// without a booking behind it.
type JobCard struct {
	ID              int64           `json:"id"`
	BookingID       *int64          `json:"booking_id,omitempty"`
	CustomerID      *int64          `json:"customer_id,omitempty"`
	VehicleID       int64           `json:"vehicle_id"`
	MechanicID      *int64          `json:"mechanic_id,omitempty"`
	Status          string          `json:"status"`
	LaborCost       decimal.Decimal `json:"labor_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	PercentComplete int             `json:"percent_complete"`
	ProgressNotes   string          `json:"progress_notes,omitempty"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`

	Tasks      []JobCardTask      `json:"tasks,omitempty"`
	SpareParts []JobCardSparePart `json:"spare_parts,omitempty"`
}

// IsTerminal reports whether the card no longer accepts work or costs.
func (j *JobCard) IsTerminal() bool {
	return j.Status == JobCardCompleted || j.Status == JobCardCancelled
}

// JobCardTask is a labor line item. Immutable once created except status.
type JobCardTask struct {
	ID        int64           `json:"id"`
	JobCardID int64           `json:"job_card_id"`
	TaskName  string          `json:"task_name"`
	TaskCost  decimal.Decimal `json:"task_cost"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// JobCardSparePart records a consumed catalog part. UnitPrice is snapshotted
// at insertion time; later catalog changes do not alter historical totals.
type JobCardSparePart struct {
	ID         int64           `json:"id"`
	JobCardID  int64           `json:"job_card_id"`
	PartID     int64           `json:"part_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}
