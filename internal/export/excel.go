package export

import (
	"context"
	"fmt"
	"io"
	"time"

	"garage/internal/database"
	"garage/internal/domain"
	"garage/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const (
	bookingsSheet = "Bookings"
	invoicesSheet = "Invoices"
)

// ExcelExporter renders the current bookings and invoices into a two-sheet
// workbook for the back office.
type ExcelExporter struct {
	store  domain.Store
	logger *zerolog.Logger
}

func NewExcelExporter(store domain.Store, logger *zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{store: store, logger: logger}
}

// WriteWorkbook streams the workbook. A non-zero from/to pair restricts
// bookings to that scheduled-date window and invoices to their creation
// dates within it.
func (e *ExcelExporter) WriteWorkbook(ctx context.Context, w io.Writer, from, to time.Time) error {
	ranged := !from.IsZero() || !to.IsZero()

	var bookings []*models.Booking
	var err error
	if ranged {
		bookings, err = e.store.GetBookingsByDateRange(ctx, from, to)
	} else {
		bookings, err = e.store.ListBookings(ctx, database.BookingFilter{})
	}
	if err != nil {
		return fmt.Errorf("load bookings: %w", err)
	}

	invoices, err := e.store.ListInvoices(ctx, database.InvoiceFilter{})
	if err != nil {
		return fmt.Errorf("load invoices: %w", err)
	}
	if ranged {
		invoices = filterInvoicesByDate(invoices, from, to)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := e.writeBookings(f, bookings); err != nil {
		return err
	}
	if err := e.writeInvoices(f, invoices); err != nil {
		return err
	}
	_ = f.DeleteSheet("Sheet1")

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	e.logger.Info().
		Int("bookings", len(bookings)).
		Int("invoices", len(invoices)).
		Msg("workbook exported")
	return nil
}

func (e *ExcelExporter) writeBookings(f *excelize.File, bookings []*models.Booking) error {
	index, err := f.NewSheet(bookingsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	writeHeader(f, bookingsSheet, []string{
		"ID", "Customer", "Vehicle", "Mechanic", "Service", "Scheduled", "Status", "Estimated Cost", "Notes",
	})

	for i, b := range bookings {
		row := i + 2
		mechanic := ""
		if b.MechanicID != nil {
			mechanic = fmt.Sprintf("%d", *b.MechanicID)
		}
		setRow(f, bookingsSheet, row, []interface{}{
			b.ID,
			b.CustomerID,
			b.VehicleID,
			mechanic,
			b.ServiceType,
			b.ScheduledAt.Format("2006-01-02 15:04"),
			b.Status,
			b.EstimatedCost.StringFixed(2),
			b.Notes,
		})
	}

	_ = f.SetColWidth(bookingsSheet, "A", "I", 18)
	return nil
}

func (e *ExcelExporter) writeInvoices(f *excelize.File, invoices []*models.Invoice) error {
	if _, err := f.NewSheet(invoicesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	writeHeader(f, invoicesSheet, []string{
		"ID", "Number", "Job Card", "Customer", "Parts Total", "Labor Total", "Grand Total", "Status", "Paid At",
	})

	for i, inv := range invoices {
		row := i + 2
		paidAt := ""
		if inv.PaidAt != nil {
			paidAt = inv.PaidAt.Format("2006-01-02 15:04")
		}
		setRow(f, invoicesSheet, row, []interface{}{
			inv.ID,
			inv.Number,
			inv.JobCardID,
			inv.CustomerID,
			inv.PartsTotal.StringFixed(2),
			inv.LaborTotal.StringFixed(2),
			inv.GrandTotal.StringFixed(2),
			inv.Status,
			paidAt,
		})
	}

	_ = f.SetColWidth(invoicesSheet, "A", "I", 18)
	return nil
}

// filterInvoicesByDate keeps invoices whose creation date falls inside the
// inclusive day window.
func filterInvoicesByDate(invoices []*models.Invoice, from, to time.Time) []*models.Invoice {
	fromDay := from.Truncate(24 * time.Hour)
	toDay := to.Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)

	var kept []*models.Invoice
	for _, inv := range invoices {
		if inv.CreatedAt.Before(fromDay) || inv.CreatedAt.After(toDay) {
			continue
		}
		kept = append(kept, inv)
	}
	return kept
}

func writeHeader(f *excelize.File, sheet string, headers []string) {
	style, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
		_ = f.SetCellStyle(sheet, cell, cell, style)
	}
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		_ = f.SetCellValue(sheet, cell, v)
	}
}
