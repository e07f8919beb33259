package booking

import (
	"time"

	"tripcart/internal/models"
)

// Session is the explicitly owned state of one browsing session: the
// aggregate, its flow and the bookkeeping for overlapping searches.
type Session struct {
	ID         string
	UserID     string
	Aggregate  *Aggregate
	Flow       *Flow
	searchSeq  uint64
	lastSearch *models.SearchSnapshot
	notice     string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewSession returns an empty session created at now.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:        id,
		Aggregate: NewAggregate(),
		Flow:      NewFlow(),
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) Notice() string                     { return s.notice }
func (s *Session) LastSearch() *models.SearchSnapshot { return s.lastSearch }
func (s *Session) CreatedAt() time.Time               { return s.createdAt }
func (s *Session) UpdatedAt() time.Time               { return s.updatedAt }

// SetNotice stores a user-facing message such as a recoverable error.
func (s *Session) SetNotice(msg string) {
	s.notice = msg
}

func (s *Session) mutable() error {
	if s.Flow.Confirmed() {
		return ErrSessionConfirmed
	}
	return nil
}

func (s *Session) afterSelect() {
	s.notice = ""
	s.Flow.Observe(s.Aggregate)
}

func (s *Session) SelectFlight(sel models.FlightSelection) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.Aggregate.SetFlight(sel)
	s.afterSelect()
	return nil
}

func (s *Session) SelectHotel(sel models.HotelSelection) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.Aggregate.SetHotel(sel)
	s.afterSelect()
	return nil
}

func (s *Session) SelectHostel(sel models.HostelSelection) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.Aggregate.SetHostel(sel)
	s.afterSelect()
	return nil
}

func (s *Session) SelectCab(sel models.CabSelection) error {
	if err := s.mutable(); err != nil {
		return err
	}
	s.Aggregate.SetCab(sel)
	s.afterSelect()
	return nil
}

// Reset clears the aggregate and restarts the flow. The search sequence is
// advanced so responses to searches issued before the reset are stale.
func (s *Session) Reset() {
	s.searchSeq++
	s.Aggregate.Reset()
	s.Flow.Reset()
	s.lastSearch = nil
	s.notice = ""
}

// BeginSearch issues the token for a new search. Any response carrying an
// older token is discarded on arrival.
func (s *Session) BeginSearch() uint64 {
	s.searchSeq++
	return s.searchSeq
}

// CompleteSearch records a search result if token is still current.
func (s *Session) CompleteSearch(token uint64, req models.FlightSearchRequest, resp *models.FlightSearchResponse, now time.Time) bool {
	if token != s.searchSeq {
		return false
	}
	snap := &models.SearchSnapshot{
		Token:      token,
		Request:    req,
		Source:     resp.Source,
		Flights:    resp.Flights,
		ReceivedAt: now,
	}
	if snap.Flights == nil {
		snap.Flights = []models.FlightOffer{}
	}
	s.lastSearch = snap
	s.notice = ""
	return true
}

// FailSearch degrades the current search to an empty result with a notice.
// The aggregate is left untouched.
func (s *Session) FailSearch(token uint64, req models.FlightSearchRequest, msg string, now time.Time) bool {
	if token != s.searchSeq {
		return false
	}
	s.lastSearch = &models.SearchSnapshot{
		Token:      token,
		Request:    req,
		Flights:    []models.FlightOffer{},
		Error:      msg,
		ReceivedAt: now,
	}
	s.notice = msg
	return true
}

// Touch updates the modification time.
func (s *Session) Touch(now time.Time) {
	s.updatedAt = now
}

func (s *Session) Snapshot() *models.SessionSnapshot {
	return &models.SessionSnapshot{
		ID:         s.ID,
		UserID:     s.UserID,
		Aggregate:  s.Aggregate.Snapshot(),
		Flow:       s.Flow.Snapshot(),
		SearchSeq:  s.searchSeq,
		LastSearch: s.lastSearch,
		Notice:     s.notice,
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
	}
}

// RestoreSession rebuilds a session from the store.
func RestoreSession(snap *models.SessionSnapshot) *Session {
	return &Session{
		ID:         snap.ID,
		UserID:     snap.UserID,
		Aggregate:  RestoreAggregate(snap.Aggregate),
		Flow:       RestoreFlow(snap.Flow),
		searchSeq:  snap.SearchSeq,
		lastSearch: snap.LastSearch,
		notice:     snap.Notice,
		createdAt:  snap.CreatedAt,
		updatedAt:  snap.UpdatedAt,
	}
}
