package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"garage/internal/authz"
	"garage/internal/database"
	"garage/internal/domain"
	"garage/internal/events"
	"garage/internal/metrics"
	"garage/internal/models"

	"github.com/rs/zerolog"
)

type BookingService struct {
	store           domain.Store
	eventBus        domain.EventPublisher
	syncWorker      domain.SyncWorker
	maxScheduleDays int
	logger          *zerolog.Logger
}

func NewBookingService(store domain.Store, eventBus domain.EventPublisher, syncWorker domain.SyncWorker, maxScheduleDays int, logger *zerolog.Logger) *BookingService {
	if maxScheduleDays <= 0 {
		maxScheduleDays = 90
	}
	return &BookingService{
		store:           store,
		eventBus:        eventBus,
		syncWorker:      syncWorker,
		maxScheduleDays: maxScheduleDays,
		logger:          logger,
	}
}

// bookingRelation derives the actor's relation to the booking for the guard.
func bookingRelation(actor models.Principal, booking *models.Booking) authz.Relation {
	return authz.Relation{
		IsOwner:            actor.ID == booking.CustomerID,
		IsAssignedMechanic: booking.MechanicID != nil && *booking.MechanicID == actor.ID,
	}
}

func (s *BookingService) validateSchedule(scheduledAt time.Time) error {
	if scheduledAt.Before(time.Now()) {
		return fmt.Errorf("%w: scheduled time is in the past", ErrValidation)
	}
	if scheduledAt.After(time.Now().AddDate(0, 0, s.maxScheduleDays)) {
		return fmt.Errorf("%w: scheduled time is more than %d days out", ErrValidation, s.maxScheduleDays)
	}
	return nil
}

func (s *BookingService) CreateBooking(ctx context.Context, actor models.Principal, booking *models.Booking) error {
	if booking.ServiceType == "" {
		return fmt.Errorf("%w: service type is required", ErrValidation)
	}
	if booking.VehicleID == 0 {
		return fmt.Errorf("%w: vehicle id is required", ErrValidation)
	}
	if booking.EstimatedCost.IsNegative() {
		return fmt.Errorf("%w: estimated cost cannot be negative", ErrValidation)
	}
	if err := s.validateSchedule(booking.ScheduledAt); err != nil {
		return err
	}

	// Customers book for themselves; admins may book on behalf of anyone.
	if !actor.IsAdmin() || booking.CustomerID == 0 {
		booking.CustomerID = actor.ID
	}
	booking.Status = models.BookingPending
	booking.MechanicID = nil

	if err := s.store.CreateBooking(ctx, booking); err != nil {
		return err
	}

	s.publishEvent(events.EventBookingCreated, booking, actor.ID)
	s.enqueueUpsert(ctx, booking)
	metrics.IncTransition(models.EntityBooking, booking.Status)

	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, actor models.Principal, id int64) (*models.Booking, error) {
	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canView(actor, booking) {
		return nil, ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) canView(actor models.Principal, booking *models.Booking) bool {
	if actor.IsAdmin() {
		return true
	}
	rel := bookingRelation(actor, booking)
	return rel.IsOwner || rel.IsAssignedMechanic
}

func (s *BookingService) ListBookings(ctx context.Context, actor models.Principal, filter database.BookingFilter) ([]*models.Booking, error) {
	// Non-admins only ever see their own slice of the data.
	switch actor.Role {
	case models.RoleCustomer:
		filter.CustomerID = actor.ID
	case models.RoleMechanic:
		filter.MechanicID = actor.ID
	}
	return s.store.ListBookings(ctx, filter)
}

// Transition moves a booking along one edge of its state machine. The
// assigned status is reachable only through Assign.
func (s *BookingService) Transition(ctx context.Context, actor models.Principal, id int64, to string) (*models.Booking, error) {
	if !authz.ValidBookingStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if to == models.BookingAssigned {
		return nil, fmt.Errorf("%w: assignment requires a mechanic", ErrValidation)
	}

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	if !authz.EdgeExists(models.EntityBooking, booking.Status, to) {
		return nil, fmt.Errorf("%w: cannot move booking from %s to %s", ErrValidation, booking.Status, to)
	}
	if !authz.CanTransition(actor.Role, models.EntityBooking, booking.Status, to, bookingRelation(actor, booking)) {
		return nil, ErrForbidden
	}

	if err := s.store.UpdateBookingStatusIf(ctx, id, to, booking.Status); err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncConflict(models.EntityBooking)
		}
		return nil, err
	}

	updated, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(transitionEvent(to), updated, actor.ID)
	s.enqueueStatus(ctx, updated)
	metrics.IncTransition(models.EntityBooking, to)

	return updated, nil
}

func transitionEvent(status string) string {
	switch status {
	case models.BookingApproved:
		return events.EventBookingApproved
	case models.BookingRejected:
		return events.EventBookingRejected
	case models.BookingConfirmed:
		return events.EventBookingConfirmed
	case models.BookingCancelled:
		return events.EventBookingCancelled
	default:
		return "booking_" + status
	}
}

// Reschedule moves the appointment time while no work is active.
func (s *BookingService) Reschedule(ctx context.Context, actor models.Principal, id int64, scheduledAt time.Time) (*models.Booking, error) {
	if err := s.validateSchedule(scheduledAt); err != nil {
		return nil, err
	}

	booking, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	rel := bookingRelation(actor, booking)
	if !actor.IsAdmin() && !rel.IsOwner {
		return nil, ErrForbidden
	}

	switch booking.Status {
	case models.BookingPending, models.BookingApproved, models.BookingConfirmed:
	default:
		return nil, fmt.Errorf("%w: cannot reschedule a booking in status %s", ErrValidation, booking.Status)
	}

	err = s.store.UpdateBookingSchedule(ctx, id, scheduledAt,
		models.BookingPending, models.BookingApproved, models.BookingConfirmed)
	if err != nil {
		if errors.Is(err, database.ErrConflict) {
			metrics.IncConflict(models.EntityBooking)
		}
		return nil, err
	}

	updated, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventBookingRescheduled, updated, actor.ID)
	s.enqueueUpsert(ctx, updated)

	return updated, nil
}

// Assign binds a mechanic to the booking and opens its job card.
func (s *BookingService) Assign(ctx context.Context, actor models.Principal, bookingID, mechanicID int64) (*models.Booking, *models.JobCard, error) {
	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}

	if !authz.CanTransition(actor.Role, models.EntityBooking, booking.Status, models.BookingAssigned, bookingRelation(actor, booking)) {
		if !authz.EdgeExists(models.EntityBooking, booking.Status, models.BookingAssigned) {
			return nil, nil, fmt.Errorf("%w: cannot assign a booking in status %s", ErrValidation, booking.Status)
		}
		return nil, nil, ErrForbidden
	}

	mechanic, err := s.store.GetUser(ctx, mechanicID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: mechanic %d not found", ErrValidation, mechanicID)
	}
	if mechanic.Role != models.RoleMechanic {
		return nil, nil, fmt.Errorf("%w: user %d is not a mechanic", ErrValidation, mechanicID)
	}

	card, err := s.store.AssignMechanic(ctx, bookingID, mechanicID)
	if err != nil {
		if errors.Is(err, database.ErrConflict) || errors.Is(err, database.ErrAlreadyAssigned) {
			metrics.IncConflict(models.EntityBooking)
		}
		return nil, nil, err
	}

	updated, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, nil, err
	}
	s.publishEvent(events.EventMechanicAssigned, updated, actor.ID)
	s.enqueueStatus(ctx, updated)
	metrics.IncTransition(models.EntityBooking, models.BookingAssigned)

	return updated, card, nil
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, actorID int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		ServiceType: booking.ServiceType,
		Status:      booking.Status,
		ScheduledAt: booking.ScheduledAt,
		ChangedByID: actorID,
	}
	if booking.MechanicID != nil {
		payload.MechanicID = *booking.MechanicID
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", booking.ID).Msg("publish event error")
	}
}

func (s *BookingService) enqueueUpsert(ctx context.Context, booking *models.Booking) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueBookingUpsert(ctx, booking); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sync enqueue error")
	}
}

func (s *BookingService) enqueueStatus(ctx context.Context, booking *models.Booking) {
	if s.syncWorker == nil {
		return
	}
	if err := s.syncWorker.EnqueueBookingStatus(ctx, booking.ID, booking.Status); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", booking.ID).Msg("sync enqueue error")
	}
}
