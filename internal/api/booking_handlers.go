package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"garage/internal/database"
	"garage/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

type createBookingRequest struct {
	CustomerID    int64           `json:"customer_id"`
	VehicleID     int64           `json:"vehicle_id"`
	ServiceType   string          `json:"service_type"`
	ScheduledAt   time.Time       `json:"scheduled_at"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Notes         string          `json:"notes"`
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())

	var req createBookingRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking := &models.Booking{
		CustomerID:    req.CustomerID,
		VehicleID:     req.VehicleID,
		ServiceType:   req.ServiceType,
		ScheduledAt:   req.ScheduledAt,
		EstimatedCost: req.EstimatedCost,
		Notes:         req.Notes,
	}
	if err := s.bookings.CreateBooking(r.Context(), actor, booking); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())

	filter := database.BookingFilter{Status: r.URL.Query().Get("status")}
	bookings, err := s.bookings.ListBookings(r.Context(), actor, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	booking, err := s.bookings.GetBooking(r.Context(), actor, id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// transitionHandler serves the verb-style routes (approve, reject, ...)
// that all funnel into the same guarded transition.
func (s *Server) transitionHandler(to string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := PrincipalFromContext(r.Context())
		id, ok := idParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid booking id")
			return
		}

		booking, err := s.bookings.Transition(r.Context(), actor, id, to)
		if err != nil {
			respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, booking)
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleBookingStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := s.bookings.Transition(r.Context(), actor, id, req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type rescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (s *Server) handleReschedule(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req rescheduleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, err := s.bookings.Reschedule(r.Context(), actor, id, req.ScheduledAt)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

type assignRequest struct {
	MechanicID int64 `json:"mechanic_id"`
}

type assignResponse struct {
	Booking *models.Booking `json:"booking"`
	JobCard *models.JobCard `json:"job_card"`
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid booking id")
		return
	}

	var req assignRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	booking, card, err := s.bookings.Assign(r.Context(), actor, id, req.MechanicID)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assignResponse{Booking: booking, JobCard: card})
}
