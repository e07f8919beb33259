package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"tripcart/internal/booking"
	"tripcart/internal/config"
	"tripcart/internal/models"
	"tripcart/internal/service"

	"github.com/rs/zerolog"
)

// BookingService is what the HTTP layer needs from the booking service.
type BookingService interface {
	CreateSession(ctx context.Context, userID string) (*service.SessionView, error)
	GetSession(ctx context.Context, id string) (*service.SessionView, error)
	DeleteSession(ctx context.Context, id string) error
	ResetSession(ctx context.Context, id string) (*service.SessionView, error)
	SelectFlight(ctx context.Context, id string, sel models.FlightSelection) (*service.SessionView, error)
	SelectHotel(ctx context.Context, id string, sel models.HotelSelection) (*service.SessionView, error)
	SelectHostel(ctx context.Context, id string, sel models.HostelSelection) (*service.SessionView, error)
	SelectCab(ctx context.Context, id string, sel models.CabSelection) (*service.SessionView, error)
	Navigate(ctx context.Context, id string, stage models.Stage) (*service.SessionView, error)
	ConfirmBooking(ctx context.Context, id string) (*service.SessionView, error)
	Pay(ctx context.Context, id, userID string, req models.PaymentRequest) (*service.PaymentOutcome, error)
	SearchFlights(ctx context.Context, id string, req models.FlightSearchRequest) (*service.SearchResult, error)
	Predictions(ctx context.Context, origin, destination, date string) ([]models.PricePrediction, error)
	Summary(ctx context.Context, id string) (booking.Summary, error)
	ExportItinerary(ctx context.Context, id string, w io.Writer) error
	GetBookingRecord(ctx context.Context, id int64) (*models.BookingRecord, error)
	ListUserBookings(ctx context.Context, userID string) ([]*models.BookingRecord, error)
	CancelBooking(ctx context.Context, id int64) (*models.BookingRecord, error)
	FailedMirrorTasks(ctx context.Context) ([]models.SyncTask, error)
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// HTTPServer exposes the booking JSON API.
type HTTPServer struct {
	cfg     config.APIConfig
	svc     BookingService
	checks  map[string]ReadyCheck
	server  *http.Server
	auth    *HTTPAuth
	logger  *zerolog.Logger
	handler http.Handler
}

func NewHTTPServer(cfg config.APIConfig, svc BookingService, checks map[string]ReadyCheck, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{cfg: cfg, svc: svc, checks: checks, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	srv.routes(mux)
	srv.handler = loggingMiddleware(logger, recoverMiddleware(logger, srv.auth.Wrap(mux)))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	return srv
}

// Handler returns the full middleware chain; used by tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.handler
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/v1/sessions", s.handleCreateSession)
	mux.HandleFunc("GET /api/v1/sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /api/v1/sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /api/v1/sessions/{id}/reset", s.handleResetSession)

	mux.HandleFunc("PUT /api/v1/sessions/{id}/flight", s.handleSelectFlight)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/hotel", s.handleSelectHotel)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/hostel", s.handleSelectHostel)
	mux.HandleFunc("PUT /api/v1/sessions/{id}/cab", s.handleSelectCab)

	mux.HandleFunc("POST /api/v1/sessions/{id}/navigate", s.handleNavigate)
	mux.HandleFunc("POST /api/v1/sessions/{id}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /api/v1/sessions/{id}/pay", s.handlePay)

	mux.HandleFunc("POST /api/v1/sessions/{id}/flights/search", s.handleSearchFlights)
	mux.HandleFunc("GET /api/v1/predictions", s.handlePredictions)

	mux.HandleFunc("GET /api/v1/sessions/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/v1/sessions/{id}/itinerary", s.handleItinerary)

	mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", s.handleCancelBooking)
	mux.HandleFunc("GET /api/v1/users/{userID}/bookings", s.handleUserBookings)

	mux.HandleFunc("GET /api/v1/mirror/failed", s.handleFailedMirrorTasks)
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	if s.logger != nil {
		s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	}
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// decodeJSON reads a JSON body; an empty body is allowed when optional is set.
func decodeJSON(r *http.Request, dst any, optional bool) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *booking.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, errRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, booking.ErrInvalidTransition), errors.Is(err, booking.ErrSessionConfirmed):
		return http.StatusConflict
	case errors.Is(err, service.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, service.ErrCollaborator):
		return http.StatusBadGateway
	case errors.Is(err, service.ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		if s.logger != nil {
			s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		}
		msg = "internal error"
	}

	var ve *booking.ValidationError
	if errors.As(err, &ve) {
		writeJSON(w, code, map[string]string{"error": ve.Message, "field": ve.Field})
		return
	}
	writeError(w, code, msg)
}
