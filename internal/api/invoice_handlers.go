package api

import (
	"net/http"

	"garage/internal/database"
)

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())

	filter := database.InvoiceFilter{Status: r.URL.Query().Get("status")}
	invoices, err := s.invoices.ListInvoices(r.Context(), actor, filter)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoices)
}

func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	invoice, err := s.invoices.GetInvoice(r.Context(), actor, id)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}

type payInvoiceRequest struct {
	PaymentMethod string `json:"payment_method"`
}

func (s *Server) handlePayInvoice(w http.ResponseWriter, r *http.Request) {
	actor, _ := PrincipalFromContext(r.Context())
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid invoice id")
		return
	}

	var req payInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	invoice, err := s.invoices.Pay(r.Context(), actor, id, req.PaymentMethod)
	if err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invoice)
}
