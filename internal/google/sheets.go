package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"garage/internal/config"
	"garage/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	bookingsSheet = "Bookings"
	invoicesSheet = "Invoices"
)

var errRowNotFound = errors.New("row not found")

// SheetsService mirrors bookings and invoices into a back-office
// spreadsheet. Row lookups go through an in-memory index of the ID column
// to avoid a full-column read per update.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string

	cacheMu     sync.RWMutex
	bookingRows map[int64]int
	invoiceRows map[int64]int
}

func NewSheetsService(ctx context.Context, cfg config.GoogleConfig) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return &SheetsService{
		service:       srv,
		spreadsheetID: cfg.SpreadsheetID,
		bookingRows:   make(map[int64]int),
		invoiceRows:   make(map[int64]int),
	}, nil
}

// TestConnection reads one cell to verify credentials and sharing.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, bookingsSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

func (s *SheetsService) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	if booking == nil {
		return errors.New("booking is nil")
	}

	values := bookingRowValues(booking)
	rowIdx, err := s.findRow(ctx, bookingsSheet, s.bookingRows, booking.ID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.appendRow(ctx, bookingsSheet, values)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:K%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// UpdateBookingStatus rewrites the status and updated-at cells of an
// existing booking row.
func (s *SheetsService) UpdateBookingStatus(ctx context.Context, bookingID int64, status string) error {
	rowIdx, err := s.findRow(ctx, bookingsSheet, s.bookingRows, bookingID)
	if err != nil {
		return err
	}

	statusRange := fmt.Sprintf("%s!G%d:G%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, statusRange, &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("%s!K%d:K%d", bookingsSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, updatedRange, &sheets.ValueRange{
		Values: [][]interface{}{{time.Now().Format("2006-01-02 15:04:05")}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *SheetsService) UpsertInvoice(ctx context.Context, invoice *models.Invoice) error {
	if invoice == nil {
		return errors.New("invoice is nil")
	}

	values := invoiceRowValues(invoice)
	rowIdx, err := s.findRow(ctx, invoicesSheet, s.invoiceRows, invoice.ID)
	if err != nil {
		if errors.Is(err, errRowNotFound) {
			return s.appendRow(ctx, invoicesSheet, values)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:J%d", invoicesSheet, rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *SheetsService) appendRow(ctx context.Context, sheet string, values []interface{}) error {
	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, sheet+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{values},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

// findRow locates the 1-based row of id in column A, consulting and
// refreshing the given cache.
func (s *SheetsService) findRow(ctx context.Context, sheet string, cache map[int64]int, id int64) (int, error) {
	if id == 0 {
		return 0, errors.New("id is required")
	}

	s.cacheMu.RLock()
	row, ok := cache[id]
	s.cacheMu.RUnlock()
	if ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, cells := range resp.Values {
		if len(cells) == 0 {
			continue
		}
		var got int64
		switch v := cells[0].(type) {
		case float64:
			got = int64(v)
		case string:
			fmt.Sscanf(v, "%d", &got)
		}
		if got == id {
			rowIdx := i + 1
			s.cacheMu.Lock()
			cache[id] = rowIdx
			s.cacheMu.Unlock()
			return rowIdx, nil
		}
	}

	return 0, errRowNotFound
}

func bookingRowValues(b *models.Booking) []interface{} {
	var mechanic interface{}
	if b.MechanicID != nil {
		mechanic = *b.MechanicID
	}
	return []interface{}{
		b.ID,
		b.CustomerID,
		b.VehicleID,
		mechanic,
		b.ServiceType,
		b.ScheduledAt.Format("2006-01-02 15:04"),
		b.Status,
		b.EstimatedCost.StringFixed(2),
		b.Notes,
		b.CreatedAt.Format("2006-01-02 15:04:05"),
		b.UpdatedAt.Format("2006-01-02 15:04:05"),
	}
}

func invoiceRowValues(inv *models.Invoice) []interface{} {
	var paidAt interface{}
	if inv.PaidAt != nil {
		paidAt = inv.PaidAt.Format("2006-01-02 15:04:05")
	}
	var method interface{}
	if inv.PaymentMethod != nil {
		method = *inv.PaymentMethod
	}
	return []interface{}{
		inv.ID,
		inv.Number,
		inv.JobCardID,
		inv.CustomerID,
		inv.PartsTotal.StringFixed(2),
		inv.LaborTotal.StringFixed(2),
		inv.GrandTotal.StringFixed(2),
		inv.Status,
		method,
		paidAt,
	}
}
