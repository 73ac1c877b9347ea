package google

import (
	"testing"
	"time"

	"garage/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookingRowValues(t *testing.T) {
	mechanicID := int64(42)
	scheduled := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	booking := &models.Booking{
		ID:            123,
		CustomerID:    1,
		VehicleID:     7,
		MechanicID:    &mechanicID,
		ServiceType:   "brake_service",
		ScheduledAt:   scheduled,
		Status:        models.BookingAssigned,
		EstimatedCost: decimal.NewFromFloat(149.5),
		Notes:         "squeaking",
		CreatedAt:     created,
		UpdatedAt:     created,
	}

	values := bookingRowValues(booking)
	require.Len(t, values, 11)
	assert.Equal(t, int64(123), values[0])
	assert.Equal(t, int64(42), values[3])
	assert.Equal(t, "2026-03-14 10:30", values[5])
	assert.Equal(t, models.BookingAssigned, values[6])
	assert.Equal(t, "149.50", values[7])
}

func TestBookingRowValuesUnassigned(t *testing.T) {
	values := bookingRowValues(&models.Booking{ID: 1, CustomerID: 2, VehicleID: 3})
	assert.Nil(t, values[3])
}

func TestInvoiceRowValues(t *testing.T) {
	method := "card"
	paidAt := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	invoice := &models.Invoice{
		ID:            5,
		Number:        "INV-AB12CD34",
		JobCardID:     9,
		CustomerID:    1,
		PartsTotal:    decimal.NewFromInt(80),
		LaborTotal:    decimal.NewFromInt(120),
		GrandTotal:    decimal.NewFromInt(200),
		Status:        models.InvoicePaid,
		PaymentMethod: &method,
		PaidAt:        &paidAt,
	}

	values := invoiceRowValues(invoice)
	require.Len(t, values, 10)
	assert.Equal(t, "INV-AB12CD34", values[1])
	assert.Equal(t, "200.00", values[6])
	assert.Equal(t, "card", values[8])
	assert.Equal(t, "2026-04-02 12:00:00", values[9])
}

func TestInvoiceRowValuesUnpaid(t *testing.T) {
	values := invoiceRowValues(&models.Invoice{
		ID:         6,
		GrandTotal: decimal.NewFromInt(50),
		Status:     models.InvoiceUnpaid,
	})
	assert.Nil(t, values[8])
	assert.Nil(t, values[9])
}
