package service

import (
	"context"
	"errors"
	"fmt"

	"garage/internal/authz"
	"garage/internal/database"
	"garage/internal/domain"
	"garage/internal/events"
	"garage/internal/metrics"
	"garage/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type JobCardService struct {
	store      domain.Store
	eventBus   domain.EventPublisher
	syncWorker domain.SyncWorker
	cache      domain.StateRepository
	logger     *zerolog.Logger
}

func NewJobCardService(store domain.Store, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, cache domain.StateRepository, logger *zerolog.Logger) *JobCardService {
	return &JobCardService{
		store:      store,
		eventBus:   eventBus,
		syncWorker: syncWorker,
		cache:      cache,
		logger:     logger,
	}
}

func jobCardRelation(actor models.Principal, card *models.JobCard) authz.Relation {
	return authz.Relation{
		IsOwner:            card.CustomerID != nil && *card.CustomerID == actor.ID,
		IsAssignedMechanic: card.MechanicID != nil && *card.MechanicID == actor.ID,
	}
}

// Create opens a card outside the assignment flow. Walk-in work has no
// booking behind it, so BookingID may stay nil.
func (s *JobCardService) Create(ctx context.Context, actor models.Principal, card *models.JobCard) error {
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if card.VehicleID == 0 {
		return fmt.Errorf("%w: vehicle id is required", ErrValidation)
	}
	if card.LaborCost.IsNegative() {
		return fmt.Errorf("%w: labor cost cannot be negative", ErrValidation)
	}
	if card.MechanicID != nil {
		mechanic, err := s.store.GetUser(ctx, *card.MechanicID)
		if err != nil {
			return fmt.Errorf("%w: mechanic %d not found", ErrValidation, *card.MechanicID)
		}
		if mechanic.Role != models.RoleMechanic {
			return fmt.Errorf("%w: user %d is not a mechanic", ErrValidation, *card.MechanicID)
		}
	}

	card.Status = models.JobCardPending
	card.PercentComplete = 0
	if err := s.store.CreateJobCard(ctx, card); err != nil {
		return err
	}

	s.publishEvent(events.EventJobCardCreated, card, actor.ID)
	return nil
}

func (s *JobCardService) GetJobCard(ctx context.Context, actor models.Principal, id int64) (*models.JobCard, error) {
	card, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, err
	}
	rel := jobCardRelation(actor, card)
	if !actor.IsAdmin() && !rel.IsOwner && !rel.IsAssignedMechanic {
		return nil, ErrForbidden
	}
	return card, nil
}

func (s *JobCardService) ListJobCards(ctx context.Context, actor models.Principal, filter database.JobCardFilter) ([]*models.JobCard, error) {
	switch actor.Role {
	case models.RoleCustomer:
		filter.CustomerID = actor.ID
	case models.RoleMechanic:
		filter.MechanicID = actor.ID
	}
	return s.store.ListJobCards(ctx, filter)
}

// UpdateStatus moves the card along one edge of its state machine.
// Completion goes through Complete so the invoice is generated atomically.
func (s *JobCardService) UpdateStatus(ctx context.Context, actor models.Principal, id int64, to string) (*models.JobCard, error) {
	if !authz.ValidJobCardStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}

	card, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, err
	}

	if to == models.JobCardCompleted {
		updated, _, err := s.complete(ctx, actor, card, "")
		return updated, err
	}

	if !authz.EdgeExists(models.EntityJobCard, card.Status, to) {
		return nil, fmt.Errorf("%w: cannot move job card from %s to %s", ErrValidation, card.Status, to)
	}
	if !authz.CanTransition(actor.Role, models.EntityJobCard, card.Status, to, jobCardRelation(actor, card)) {
		return nil, ErrForbidden
	}

	switch to {
	case models.JobCardInProgress:
		err = s.store.StartJobCard(ctx, id)
	case models.JobCardCancelled:
		err = s.store.CancelJobCard(ctx, id)
	default:
		return nil, fmt.Errorf("%w: status %s is not reachable directly", ErrValidation, to)
	}
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncConflict(models.EntityJobCard)
		}
		return nil, err
	}

	// Work starting or stopping is mirrored onto the parent booking.
	if to == models.JobCardInProgress && card.BookingID != nil {
		if berr := s.store.UpdateBookingStatusIf(ctx, *card.BookingID, models.BookingInProgress, models.BookingAssigned); berr != nil {
			s.logger.Warn().Err(berr).Int64("booking_id", *card.BookingID).Msg("booking status mirror failed")
		}
	}

	updated, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(cardEvent(to), updated, actor.ID)
	metrics.IncTransition(models.EntityJobCard, to)

	return updated, nil
}

func cardEvent(status string) string {
	switch status {
	case models.JobCardInProgress:
		return events.EventJobCardStarted
	case models.JobCardCompleted:
		return events.EventJobCardCompleted
	case models.JobCardCancelled:
		return events.EventJobCardCancelled
	default:
		return "job_card_" + status
	}
}

// UpdateProgress records percent complete and notes while work is active.
// Percent only moves forward.
func (s *JobCardService) UpdateProgress(ctx context.Context, actor models.Principal, id int64, percent int, notes string) (*models.JobCard, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: percent must be between 0 and 100", ErrValidation)
	}

	card, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, err
	}

	rel := jobCardRelation(actor, card)
	if !actor.IsAdmin() && !rel.IsAssignedMechanic {
		return nil, ErrForbidden
	}
	if card.Status != models.JobCardInProgress {
		return nil, fmt.Errorf("%w: progress updates require an active job card", ErrValidation)
	}
	if percent < card.PercentComplete {
		return nil, fmt.Errorf("%w: percent cannot decrease from %d to %d", ErrValidation, card.PercentComplete, percent)
	}

	if err := s.store.UpdateJobCardProgress(ctx, id, percent, notes); err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncConflict(models.EntityJobCard)
		}
		return nil, err
	}

	updated, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventJobCardProgress, updated, actor.ID)

	return updated, nil
}

func (s *JobCardService) AddTask(ctx context.Context, actor models.Principal, id int64, taskName string, taskCost decimal.Decimal) (*models.JobCard, error) {
	if taskName == "" {
		return nil, fmt.Errorf("%w: task name is required", ErrValidation)
	}
	if taskCost.IsNegative() {
		return nil, fmt.Errorf("%w: task cost cannot be negative", ErrValidation)
	}

	card, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(actor, card); err != nil {
		return nil, err
	}

	updated, err := s.store.AddTask(ctx, id, taskName, taskCost)
	if err != nil {
		if errors.Is(err, database.ErrInvalidState) {
			return nil, fmt.Errorf("%w: job card is closed", ErrValidation)
		}
		return nil, err
	}
	return updated, nil
}

func (s *JobCardService) AddSparePart(ctx context.Context, actor models.Principal, id, partID, quantity int64) (*models.JobCard, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}

	card, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.requireWriter(actor, card); err != nil {
		return nil, err
	}

	part, err := s.store.GetPart(ctx, partID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fmt.Errorf("%w: part %d not found", ErrValidation, partID)
		}
		return nil, err
	}
	if part.StockQuantity < quantity {
		return nil, fmt.Errorf("%w: insufficient stock for part %d", ErrValidation, partID)
	}

	// The catalog price at the time of use is frozen into the line item.
	updated, err := s.store.AddSparePart(ctx, id, partID, quantity, part.UnitPrice)
	if err != nil {
		if errors.Is(err, database.ErrInvalidState) {
			return nil, fmt.Errorf("%w: job card is closed", ErrValidation)
		}
		return nil, err
	}

	s.invalidatePartsCache(ctx)

	return updated, nil
}

// Complete closes the card and returns it together with its invoice.
func (s *JobCardService) Complete(ctx context.Context, actor models.Principal, id int64, notes string) (*models.JobCard, *models.Invoice, error) {
	card, err := s.store.GetJobCard(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return s.complete(ctx, actor, card, notes)
}

func (s *JobCardService) complete(ctx context.Context, actor models.Principal, card *models.JobCard, notes string) (*models.JobCard, *models.Invoice, error) {
	rel := jobCardRelation(actor, card)

	switch card.Status {
	case models.JobCardInProgress:
		if !authz.CanTransition(actor.Role, models.EntityJobCard, card.Status, models.JobCardCompleted, rel) {
			return nil, nil, ErrForbidden
		}
	case models.JobCardCompleted:
		// Re-completing is a no-op for anyone who may complete.
		if !actor.IsAdmin() && !rel.IsAssignedMechanic {
			return nil, nil, ErrForbidden
		}
	default:
		return nil, nil, fmt.Errorf("%w: cannot complete a job card in status %s", ErrValidation, card.Status)
	}

	invoice, created, err := s.store.CompleteJobCard(ctx, card.ID, notes)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncConflict(models.EntityJobCard)
		}
		if errors.Is(err, database.ErrInvalidState) {
			return nil, nil, fmt.Errorf("%w: cannot complete a job card in its current status", ErrValidation)
		}
		return nil, nil, err
	}

	if created {
		metrics.IncTransition(models.EntityJobCard, models.JobCardCompleted)
		metrics.IncInvoiceGenerated()

		if card.BookingID != nil {
			if berr := s.store.UpdateBookingStatusIf(ctx, *card.BookingID, models.BookingCompleted, models.BookingInProgress); berr != nil {
				s.logger.Warn().Err(berr).Int64("booking_id", *card.BookingID).Msg("booking status mirror failed")
			}
		}

		s.publishInvoiceEvent(events.EventInvoiceGenerated, invoice)
		s.enqueueInvoice(ctx, invoice)
	}

	updated, err := s.store.GetJobCard(ctx, card.ID)
	if err != nil {
		return nil, nil, err
	}

	if created {
		s.publishEvent(events.EventJobCardCompleted, updated, actor.ID)
	}

	return updated, invoice, nil
}

// Delete removes an unbilled job card. Admin only.
func (s *JobCardService) Delete(ctx context.Context, actor models.Principal, id int64) error {
	if _, err := s.store.GetJobCard(ctx, id); err != nil {
		return err
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	return s.store.DeleteJobCard(ctx, id)
}

func (s *JobCardService) requireWriter(actor models.Principal, card *models.JobCard) error {
	rel := jobCardRelation(actor, card)
	if !actor.IsAdmin() && !rel.IsAssignedMechanic {
		return ErrForbidden
	}
	return nil
}

func (s *JobCardService) publishEvent(eventType string, card *models.JobCard, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.JobCardEventPayload{
		JobCardID:       card.ID,
		Status:          card.Status,
		PercentComplete: card.PercentComplete,
		TotalCost:       card.TotalCost.String(),
		ChangedByID:     actorID,
	}
	if card.BookingID != nil {
		payload.BookingID = *card.BookingID
	}
	if card.MechanicID != nil {
		payload.MechanicID = *card.MechanicID
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("job_card_id", card.ID).Msg("publish event error")
	}
}

func (s *JobCardService) publishInvoiceEvent(eventType string, invoice *models.Invoice) {
	if s.eventBus == nil {
		return
	}

	payload := events.InvoiceEventPayload{
		InvoiceID:  invoice.ID,
		Number:     invoice.Number,
		JobCardID:  invoice.JobCardID,
		CustomerID: invoice.CustomerID,
		GrandTotal: invoice.GrandTotal.String(),
		Status:     invoice.Status,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("invoice_id", invoice.ID).Msg("publish event error")
	}
}

func (s *JobCardService) enqueueInvoice(ctx context.Context, invoice *models.Invoice) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueInvoiceUpsert(ctx, invoice); err != nil {
		s.logger.Error().Err(err).Int64("invoice_id", invoice.ID).Msg("sync enqueue error")
	}
}

func (s *JobCardService) invalidatePartsCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, partsCacheKey); err != nil {
		s.logger.Warn().Err(err).Msg("parts cache invalidation failed")
	}
}
