package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"garage/internal/config"
	"garage/internal/domain"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Exporter produces the admin workbook download. Zero from/to values mean
// an unbounded dump.
type Exporter interface {
	WriteWorkbook(ctx context.Context, w io.Writer, from, to time.Time) error
}

// Server exposes the workflow REST API.
type Server struct {
	cfg      config.APIConfig
	bookings domain.BookingService
	jobCards domain.JobCardService
	invoices domain.InvoiceService
	parts    domain.PartService
	users    domain.UserService
	exporter Exporter
	verifier *TokenVerifier
	logger   *zerolog.Logger
	server   *http.Server
}

type Deps struct {
	Bookings domain.BookingService
	JobCards domain.JobCardService
	Invoices domain.InvoiceService
	Parts    domain.PartService
	Users    domain.UserService
	States   domain.StateRepository
	Exporter Exporter
}

func NewServer(cfg config.APIConfig, deps Deps, logger *zerolog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		bookings: deps.Bookings,
		jobCards: deps.JobCards,
		invoices: deps.Invoices,
		parts:    deps.Parts,
		users:    deps.Users,
		exporter: deps.Exporter,
		verifier: NewTokenVerifier(cfg.Auth),
		logger:   logger,
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Router(deps.States),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s
}

// Router builds the full route tree. Split out so tests can drive the
// handler stack without a listening socket.
func (s *Server) Router(states domain.StateRepository) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(s.logger))

	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	window := time.Duration(s.cfg.RateLimit.Window) * time.Second

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.verifier.Authenticate)
		r.Use(rateLimit(states, s.cfg.RateLimit.Requests, window, s.logger))
		r.Use(requestMetrics)

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", s.handleCreateBooking)
			r.Get("/", s.handleListBookings)
			r.Get("/{id}", s.handleGetBooking)
			r.Put("/{id}/approve", s.transitionHandler("approved"))
			r.Put("/{id}/reject", s.transitionHandler("rejected"))
			r.Put("/{id}/cancel", s.transitionHandler("cancelled"))
			r.Put("/{id}/confirm", s.transitionHandler("confirmed"))
			r.Put("/{id}/status", s.handleBookingStatus)
			r.Put("/{id}/reschedule", s.handleReschedule)
			r.Put("/{id}/assign", s.handleAssign)
		})

		r.Route("/jobcards", func(r chi.Router) {
			r.Post("/", s.handleCreateJobCard)
			r.Get("/", s.handleListJobCards)
			r.Get("/{id}", s.handleGetJobCard)
			r.Put("/{id}/status", s.handleJobCardStatus)
			r.Put("/{id}/progress", s.handleJobCardProgress)
			r.Post("/{id}/tasks", s.handleAddTask)
			r.Post("/{id}/parts", s.handleAddSparePart)
			r.Put("/{id}/complete", s.handleCompleteJobCard)
			r.Delete("/{id}", s.handleDeleteJobCard)
		})

		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", s.handleListInvoices)
			r.Get("/{id}", s.handleGetInvoice)
			r.Put("/{id}/pay", s.handlePayInvoice)
		})

		r.Route("/parts", func(r chi.Router) {
			r.Get("/", s.handleListParts)
			r.Post("/", s.handleCreatePart)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Get("/mechanics", s.handleListMechanics)
			r.Get("/{id}", s.handleGetUser)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/export", s.handleExport)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("http api listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
