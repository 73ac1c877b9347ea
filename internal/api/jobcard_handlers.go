package api

import (
	"net/http"

	"garage/internal/database"
	"garage/internal/models"

	"github.com/shopspring/decimal"
)

type createJobCardRequest struct {
	BookingID  *int64          `json:"booking_id"`
	CustomerID *int64          `json:"customer_id"`
	VehicleID  int64           `json:"vehicle_id"`
	MechanicID *int64          `json:"mechanic_id"`
	LaborCost  decimal.Decimal `json:"labor_cost"`
	Notes      string          `json:"notes"`
}

func (s *Server) handleCreateJobCard(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())

	var req createJobCardRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card := &models.JobCard{
		BookingID:     req.BookingID,
		CustomerID:    req.CustomerID,
		VehicleID:     req.VehicleID,
		MechanicID:    req.MechanicID,
		LaborCost:     req.LaborCost,
		ProgressNotes: req.Notes,
	}
	if err := s.jobCards.Create(r.Context(), actor, card); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, card)
}

func (s *Server) handleListJobCards(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())

	filter := database.JobCardFilter{Status: r.URL.Query().Get("status")}
	cards, err := s.jobCards.ListJobCards(r.Context(), actor, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

func (s *Server) handleGetJobCard(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job card id")
		return
	}

	card, err := s.jobCards.GetJobCard(r.Context(), actor, id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

func (s *Server) handleJobCardStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job card id")
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := s.jobCards.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type progressRequest struct {
	PercentComplete int    `json:"percent_complete"`
	Notes           string `json:"notes"`
}

func (s *Server) handleJobCardProgress(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job card id")
		return
	}

	var req progressRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := s.jobCards.UpdateProgress(r.Context(), actor, id, req.PercentComplete, req.Notes)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type addTaskRequest struct {
	TaskName string          `json:"task_name"`
	TaskCost decimal.Decimal `json:"task_cost"`
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job card id")
		return
	}

	var req addTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := s.jobCards.AddTask(r.Context(), actor, id, req.TaskName, req.TaskCost)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type addSparePartRequest struct {
	PartID   int64 `json:"part_id"`
	Quantity int64 `json:"quantity"`
}

func (s *Server) handleAddSparePart(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job card id")
		return
	}

	var req addSparePartRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	card, err := s.jobCards.AddSparePart(r.Context(), actor, id, req.PartID, req.Quantity)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, card)
}

type completeRequest struct {
	Notes string `json:"notes"`
}

type completeResponse struct {
	JobCard *models.JobCard `json:"job_card"`
	Invoice *models.Invoice `json:"invoice"`
}

func (s *Server) handleCompleteJobCard(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job card id")
		return
	}

	var req completeRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}

	card, invoice, err := s.jobCards.Complete(r.Context(), actor, id, req.Notes)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{JobCard: card, Invoice: invoice})
}

func (s *Server) handleDeleteJobCard(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid job card id")
		return
	}

	if err := s.jobCards.Delete(r.Context(), actor, id); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
