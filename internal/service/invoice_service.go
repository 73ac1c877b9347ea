package service

import (
	"context"
	"errors"
	"fmt"

	"garage/internal/database"
	"garage/internal/domain"
	"garage/internal/events"
	"garage/internal/models"

	"github.com/rs/zerolog"
)

type InvoiceService struct {
	store    domain.Store
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewInvoiceService(store domain.Store, eventBus domain.EventPublisher, logger *zerolog.Logger) *InvoiceService {
	return &InvoiceService{
		store:    store,
		eventBus: eventBus,
		logger:   logger,
	}
}

func (s *InvoiceService) GetInvoice(ctx context.Context, actor models.Principal, id int64) (*models.Invoice, error) {
	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && invoice.CustomerID != actor.ID {
		return nil, ErrForbidden
	}
	return invoice, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context, actor models.Principal, filter database.InvoiceFilter) ([]*models.Invoice, error) {
	switch actor.Role {
	case models.RoleCustomer:
		filter.CustomerID = actor.ID
	case models.RoleAdmin:
	default:
		// Mechanics have no billing visibility.
		return nil, ErrForbidden
	}
	return s.store.ListInvoices(ctx, filter)
}

// Pay settles an unpaid invoice.
func (s *InvoiceService) Pay(ctx context.Context, actor models.Principal, id int64, paymentMethod string) (*models.Invoice, error) {
	if paymentMethod == "" {
		return nil, fmt.Errorf("%w: payment method is required", ErrValidation)
	}

	invoice, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && invoice.CustomerID != actor.ID {
		return nil, ErrForbidden
	}

	if err := s.store.MarkInvoicePaid(ctx, id, paymentMethod); err != nil {
		if errors.Is(err, database.ErrConflict) && invoice.Status != models.InvoiceUnpaid {
			return nil, fmt.Errorf("%w: invoice is already %s", ErrValidation, invoice.Status)
		}
		return nil, err
	}

	paid, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.eventBus != nil {
		payload := events.InvoiceEventPayload{
			InvoiceID:  paid.ID,
			Number:     paid.Number,
			JobCardID:  paid.JobCardID,
			CustomerID: paid.CustomerID,
			GrandTotal: paid.GrandTotal.String(),
			Status:     paid.Status,
		}
		if err := s.eventBus.PublishJSON(events.EventInvoicePaid, payload); err != nil {
			s.logger.Error().Err(err).Int64("invoice_id", paid.ID).Msg("publish event error")
		}
	}

	return paid, nil
}
