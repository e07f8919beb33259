package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"tripcart/internal/booking"
	"tripcart/internal/domain"
	"tripcart/internal/events"
	"tripcart/internal/export"
	"tripcart/internal/metrics"
	"tripcart/internal/models"
	"tripcart/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Deps are the collaborators of BookingService. Events and Mirror may be nil.
type Deps struct {
	Store    domain.SessionStore
	Records  domain.RecordRepository
	Pricing  domain.PricingClient
	Payments domain.PaymentGateway
	Events   domain.EventPublisher
	Mirror   domain.SyncWorker
}

// Options tune the service; zero values fall back to defaults.
type Options struct {
	TaxRate          float64
	SearchRateLimit  int
	SearchRateWindow time.Duration
	PersistRetry     worker.RetryPolicy
	// ExportDir receives a copy of the itinerary of every confirmed booking.
	ExportDir string
}

// BookingService drives browsing sessions: selections, flight search,
// confirmation and payment. Mutations of one session are serialized by a
// per-session lock; the pricing function is called without holding it.
type BookingService struct {
	store    domain.SessionStore
	records  domain.RecordRepository
	pricing  domain.PricingClient
	payments domain.PaymentGateway
	eventBus domain.EventPublisher
	mirror   domain.SyncWorker

	calc         booking.Calculator
	searchLimit  int
	searchWindow time.Duration
	persistRetry worker.RetryPolicy
	exportDir    string

	locksMu sync.Mutex
	locks   map[string]*sessionLock
	now    func() time.Time
	newID  func() string
	logger *zerolog.Logger
}

func NewBookingService(deps Deps, opts Options, logger *zerolog.Logger) *BookingService {
	if opts.SearchRateWindow <= 0 {
		opts.SearchRateWindow = models.DefaultSearchRateWindow * time.Second
	}
	if opts.PersistRetry.MaxRetries <= 0 {
		opts.PersistRetry.MaxRetries = 3
	}
	if opts.PersistRetry.InitialDelay <= 0 {
		opts.PersistRetry.InitialDelay = 200 * time.Millisecond
	}
	return &BookingService{
		store:        deps.Store,
		records:      deps.Records,
		pricing:      deps.Pricing,
		payments:     deps.Payments,
		eventBus:     deps.Events,
		mirror:       deps.Mirror,
		calc:         booking.NewCalculator(opts.TaxRate),
		searchLimit:  opts.SearchRateLimit,
		searchWindow: opts.SearchRateWindow,
		persistRetry: opts.PersistRetry,
		exportDir:    opts.ExportDir,
		locks:        make(map[string]*sessionLock),
		now:          time.Now,
		newID:        uuid.NewString,
		logger:       logger,
	}
}

// sessionLock is held by at most one request per session. refs counts the
// holder and the waiters; the entry is dropped when it reaches zero.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (s *BookingService) lock(id string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, id)
		}
		s.locksMu.Unlock()
	}
}

func (s *BookingService) load(ctx context.Context, id string) (*booking.Session, error) {
	snap, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if snap == nil {
		return nil, ErrSessionNotFound
	}
	return booking.RestoreSession(snap), nil
}

func (s *BookingService) save(ctx context.Context, sess *booking.Session) error {
	sess.Touch(s.now())
	if err := s.store.SaveSession(ctx, sess.Snapshot()); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// mutate runs fn on the locked session and saves it afterwards. The session
// is saved even when fn fails, since failures may record a notice or reason.
func (s *BookingService) mutate(ctx context.Context, id string, fn func(sess *booking.Session) error) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	fnErr := fn(sess)
	if err := s.save(ctx, sess); err != nil {
		if fnErr != nil {
			s.logger.Error().Err(err).Str("session_id", id).Msg("Failed to save session after error")
			return nil, fnErr
		}
		return nil, err
	}
	if fnErr != nil {
		return nil, fnErr
	}
	return s.view(sess), nil
}

func (s *BookingService) publish(eventType string, payload interface{}) {
	if s.eventBus == nil {
		return
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}

// CreateSession starts an empty session for userID (may be empty).
func (s *BookingService) CreateSession(ctx context.Context, userID string) (*SessionView, error) {
	sess := booking.NewSession(s.newID(), s.now())
	sess.UserID = userID
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info().Str("session_id", sess.ID).Str("user_id", userID).Msg("Session created")
	s.publish(events.EventSessionCreated, events.SessionEventPayload{
		SessionID: sess.ID,
		UserID:    userID,
		Stage:     string(sess.Flow.Stage()),
	})
	return s.view(sess), nil
}

func (s *BookingService) GetSession(ctx context.Context, id string) (*SessionView, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *BookingService) DeleteSession(ctx context.Context, id string) error {
	unlock := s.lock(id)
	defer unlock()

	if err := s.store.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ResetSession clears every selection and returns to flight selection. It is
// the only way out of a confirmed booking.
func (s *BookingService) ResetSession(ctx context.Context, id string) (*SessionView, error) {
	v, err := s.mutate(ctx, id, func(sess *booking.Session) error {
		sess.Reset()
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(events.EventSessionReset, events.SessionEventPayload{SessionID: id, UserID: v.UserID, Stage: string(v.Stage)})
	return v, nil
}

func (s *BookingService) SelectFlight(ctx context.Context, id string, sel models.FlightSelection) (*SessionView, error) {
	if err := validateFlight(sel); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.SelectFlight(sel)
	})
}

func (s *BookingService) SelectHotel(ctx context.Context, id string, sel models.HotelSelection) (*SessionView, error) {
	if err := validateStay(sel.StayDetails); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.SelectHotel(sel)
	})
}

func (s *BookingService) SelectHostel(ctx context.Context, id string, sel models.HostelSelection) (*SessionView, error) {
	if err := validateStay(sel.StayDetails); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.SelectHostel(sel)
	})
}

func (s *BookingService) SelectCab(ctx context.Context, id string, sel models.CabSelection) (*SessionView, error) {
	if err := validateCab(sel); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.SelectCab(sel)
	})
}

// Navigate switches the user-visible tab.
func (s *BookingService) Navigate(ctx context.Context, id string, stage models.Stage) (*SessionView, error) {
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.Flow.Navigate(stage)
	})
}

// ConfirmBooking moves a reviewed booking to payment.
func (s *BookingService) ConfirmBooking(ctx context.Context, id string) (*SessionView, error) {
	return s.mutate(ctx, id, func(sess *booking.Session) error {
		return sess.Flow.Confirm(sess.Aggregate)
	})
}

// Summary returns the price breakdown of the current selection.
func (s *BookingService) Summary(ctx context.Context, id string) (booking.Summary, error) {
	v, err := s.GetSession(ctx, id)
	if err != nil {
		return booking.Summary{}, err
	}
	return v.Summary, nil
}

// Pay charges the booking total. The session lock is held for the whole
// charge so a session can never be paid twice.
func (s *BookingService) Pay(ctx context.Context, id, userID string, req models.PaymentRequest) (*PaymentOutcome, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.Flow.Confirmed() {
		return nil, booking.ErrSessionConfirmed
	}
	if sess.Flow.Stage() != models.StageAwaitingPayment {
		return nil, fmt.Errorf("%w: pay from %q", booking.ErrInvalidTransition, sess.Flow.Stage())
	}
	if userID == "" {
		userID = sess.UserID
	}
	if sess.UserID == "" {
		sess.UserID = userID
	}

	sum := s.calc.Summarize(sess.Aggregate)
	log := s.logger.With().Str("session_id", id).Str("method", req.Method).Int64("amount", sum.Total).Logger()

	res, err := s.payments.Charge(ctx, sum.Total, req)
	if err != nil {
		if booking.IsValidation(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		log.Warn().Err(err).Msg("Payment failed")
		return nil, s.failPayment(ctx, sess, "declined", err)
	}

	rec := booking.BuildRecord(sess.Aggregate, sum, userID, req.Method, res.TransactionID, s.now())
	err = s.persistRetry.Do(ctx, func(ctx context.Context) error {
		return s.records.CreateBookingRecord(ctx, rec)
	})
	if err != nil {
		log.Error().Err(err).Str("transaction_id", res.TransactionID).Msg("Failed to persist booking record")
		return nil, s.failPayment(ctx, sess, "persist", fmt.Errorf("booking could not be saved: %w", err))
	}

	if err := sess.Flow.PaymentSucceeded(res.TransactionID, rec.ID); err != nil {
		return nil, err
	}
	if err := s.save(ctx, sess); err != nil {
		// запись уже в базе, сессию восстановим при следующем сохранении
		log.Error().Err(err).Int64("record_id", rec.ID).Msg("Failed to save confirmed session")
	}

	log.Info().Int64("record_id", rec.ID).Str("transaction_id", res.TransactionID).Msg("Booking confirmed")
	metrics.ObserveBooking(req.Method, sum.Total)
	s.publish(events.EventBookingConfirmed, events.BookingEventPayload{
		RecordID:      rec.ID,
		SessionID:     id,
		UserID:        userID,
		TransactionID: res.TransactionID,
		PaymentMethod: req.Method,
		Total:         sum.Total,
		Legs:          legs(sess.Aggregate),
		ConfirmedAt:   rec.CreatedAt,
	})
	if s.mirror != nil {
		if err := s.mirror.EnqueueTask(ctx, models.SyncTaskAppend, rec.ID, rec, ""); err != nil {
			log.Error().Err(err).Int64("record_id", rec.ID).Msg("Failed to enqueue mirror task")
		}
	}

	s.archiveItinerary(sess, sum)

	return &PaymentOutcome{Payment: res, Record: rec, Session: s.view(sess)}, nil
}

func (s *BookingService) archiveItinerary(sess *booking.Session, sum booking.Summary) {
	if s.exportDir == "" {
		return
	}
	path, err := export.SaveToDir(s.exportDir, export.Itinerary{
		SessionID:     sess.ID,
		Aggregate:     sess.Aggregate,
		Summary:       sum,
		TaxRate:       sum.TaxRate,
		TransactionID: sess.Flow.TransactionID(),
		GeneratedAt:   s.now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", sess.ID).Msg("Failed to archive itinerary")
		return
	}
	s.logger.Debug().Str("path", path).Msg("Itinerary archived")
}

func (s *BookingService) failPayment(ctx context.Context, sess *booking.Session, reason string, cause error) error {
	sess.Flow.PaymentFailed(cause.Error())
	if err := s.save(ctx, sess); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("Failed to save session after payment failure")
	}
	metrics.IncPaymentFailed(reason)
	s.publish(events.EventPaymentFailed, events.SessionEventPayload{
		SessionID: sess.ID,
		UserID:    sess.UserID,
		Stage:     string(sess.Flow.Stage()),
		Reason:    cause.Error(),
	})
	return fmt.Errorf("%w: %v", ErrPaymentFailed, cause)
}

func legs(a *booking.Aggregate) []string {
	var out []string
	if a.HasFlight() {
		out = append(out, "flight")
	}
	if acc := a.Accommodation(); acc != nil {
		out = append(out, string(acc.Kind()))
	}
	if a.HasCab() {
		out = append(out, "cab")
	}
	return out
}

// SearchFlights queries the pricing function for the session. Overlapping
// searches resolve to the most recently issued one; older responses come
// back with Stale set and leave the session untouched.
func (s *BookingService) SearchFlights(ctx context.Context, id string, req models.FlightSearchRequest) (*SearchResult, error) {
	req = normalizeSearch(req)
	if err := validateSearch(req); err != nil {
		return nil, err
	}

	if s.searchLimit > 0 {
		allowed, err := s.store.CheckRateLimit(ctx, "search:"+id, s.searchLimit, s.searchWindow)
		if err != nil {
			s.logger.Warn().Err(err).Str("session_id", id).Msg("Search rate limit check failed")
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	token, err := s.beginSearch(ctx, id)
	if err != nil {
		return nil, err
	}

	resp, callErr := s.pricing.SearchFlights(ctx, req)

	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	if callErr != nil {
		notice := "Flight prices are temporarily unavailable. Please try again."
		accepted := sess.FailSearch(token, req, notice, now)
		if accepted {
			if err := s.save(ctx, sess); err != nil {
				s.logger.Error().Err(err).Str("session_id", id).Msg("Failed to save session after search failure")
			}
		}
		metrics.IncSearch("error")
		s.logger.Warn().Err(callErr).Str("session_id", id).Bool("stale", !accepted).Msg("Flight search failed")
		s.publish(events.EventSearchFailed, events.SessionEventPayload{SessionID: id, UserID: sess.UserID, Reason: callErr.Error()})
		return &SearchResult{Flights: []models.FlightOffer{}, Stale: !accepted, Notice: notice},
			collaboratorError(callErr)
	}

	if !sess.CompleteSearch(token, req, resp, now) {
		metrics.IncSearch("stale")
		s.logger.Debug().Str("session_id", id).Uint64("token", token).Msg("Stale search response discarded")
		return &SearchResult{Flights: resp.Flights, Source: resp.Source, Stale: true}, nil
	}
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}

	metrics.IncSearch(resp.Source)
	return &SearchResult{Flights: sess.LastSearch().Flights, Source: resp.Source}, nil
}

func (s *BookingService) beginSearch(ctx context.Context, id string) (uint64, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	token := sess.BeginSearch()
	if err := s.save(ctx, sess); err != nil {
		return 0, err
	}
	return token, nil
}

// Predictions returns the fare prediction window for a route.
func (s *BookingService) Predictions(ctx context.Context, origin, destination, date string) ([]models.PricePrediction, error) {
	req := normalizeSearch(models.FlightSearchRequest{Origin: origin, Destination: destination, DepartureDate: date})
	if err := validateSearch(req); err != nil {
		return nil, err
	}
	preds, err := s.pricing.GetPredictions(ctx, req.Origin, req.Destination, req.DepartureDate)
	if err != nil {
		s.logger.Warn().Err(err).Str("origin", req.Origin).Str("destination", req.Destination).Msg("Price predictions failed")
		return nil, collaboratorError(err)
	}
	if preds == nil {
		preds = []models.PricePrediction{}
	}
	return preds, nil
}

// ExportItinerary writes the session itinerary as an xlsx workbook.
func (s *BookingService) ExportItinerary(ctx context.Context, id string, w io.Writer) error {
	unlock := s.lock(id)
	sess, err := s.load(ctx, id)
	unlock()
	if err != nil {
		return err
	}

	sum := s.calc.Summarize(sess.Aggregate)
	return export.Write(w, export.Itinerary{
		SessionID:     sess.ID,
		Aggregate:     sess.Aggregate,
		Summary:       sum,
		TaxRate:       sum.TaxRate,
		TransactionID: sess.Flow.TransactionID(),
		GeneratedAt:   s.now(),
	})
}

func (s *BookingService) GetBookingRecord(ctx context.Context, id int64) (*models.BookingRecord, error) {
	return s.records.GetBookingRecord(ctx, id)
}

func (s *BookingService) ListUserBookings(ctx context.Context, userID string) ([]*models.BookingRecord, error) {
	if userID == "" {
		return nil, booking.NewValidationError("user_id", "user id is required")
	}
	recs, err := s.records.GetUserBookingRecords(ctx, userID)
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []*models.BookingRecord{}
	}
	return recs, nil
}

// CancelBooking marks a confirmed booking record as cancelled and mirrors the
// new status. Cancelling twice is an invalid transition.
func (s *BookingService) CancelBooking(ctx context.Context, id int64) (*models.BookingRecord, error) {
	rec, err := s.records.GetBookingRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status != models.StatusConfirmed {
		return nil, fmt.Errorf("%w: booking is %s", booking.ErrInvalidTransition, rec.Status)
	}

	if err := s.records.UpdateBookingRecordStatus(ctx, id, models.StatusCancelled); err != nil {
		return nil, err
	}
	rec.Status = models.StatusCancelled

	log := s.logger.With().Int64("record_id", id).Str("user_id", rec.UserID).Logger()
	log.Info().Msg("Booking cancelled")

	s.publish(events.EventBookingCancelled, events.BookingEventPayload{
		RecordID:      rec.ID,
		UserID:        rec.UserID,
		TransactionID: rec.TransactionID,
		PaymentMethod: rec.PaymentMethod,
		Total:         rec.Total,
	})
	if s.mirror != nil {
		if err := s.mirror.EnqueueTask(ctx, models.SyncTaskUpdateStatus, id, nil, models.StatusCancelled); err != nil {
			log.Error().Err(err).Msg("Failed to enqueue mirror status task")
		}
	}
	return rec, nil
}

// FailedMirrorTasks lists spreadsheet mirror tasks that ran out of retries.
// It is empty when no mirror is configured.
func (s *BookingService) FailedMirrorTasks(ctx context.Context) ([]models.SyncTask, error) {
	if s.mirror == nil {
		return []models.SyncTask{}, nil
	}
	return s.mirror.FailedTasks(ctx)
}
