package service

import (
	"time"

	"tripcart/internal/booking"
	"tripcart/internal/models"
)

// SessionView is the read model of a session returned to clients.
type SessionView struct {
	ID            string                   `json:"id"`
	UserID        string                   `json:"user_id,omitempty"`
	Stage         models.Stage             `json:"stage"`
	Selections    models.AggregateSnapshot `json:"selections"`
	HasFlight     bool                     `json:"has_flight"`
	HasStay       bool                     `json:"has_accommodation"`
	HasCab        bool                     `json:"has_cab"`
	Summary       booking.Summary          `json:"summary"`
	Notice        string                   `json:"notice,omitempty"`
	FailureReason string                   `json:"failure_reason,omitempty"`
	TransactionID string                   `json:"transaction_id,omitempty"`
	RecordID      int64                    `json:"record_id,omitempty"`
	LastSearch    *models.SearchSnapshot   `json:"last_search,omitempty"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// SearchResult is returned by SearchFlights. Stale is set when a newer
// search superseded this one; its flights were not stored on the session.
type SearchResult struct {
	Flights []models.FlightOffer `json:"flights"`
	Source  string               `json:"source,omitempty"`
	Stale   bool                 `json:"stale"`
	Notice  string               `json:"notice,omitempty"`
}

// PaymentOutcome is returned by a successful Pay.
type PaymentOutcome struct {
	Payment *models.PaymentResult `json:"payment"`
	Record  *models.BookingRecord `json:"record"`
	Session *SessionView          `json:"session"`
}

func (s *BookingService) view(sess *booking.Session) *SessionView {
	agg := sess.Aggregate
	return &SessionView{
		ID:            sess.ID,
		UserID:        sess.UserID,
		Stage:         sess.Flow.Stage(),
		Selections:    agg.Snapshot(),
		HasFlight:     agg.HasFlight(),
		HasStay:       agg.HasAccommodation(),
		HasCab:        agg.HasCab(),
		Summary:       s.calc.Summarize(agg),
		Notice:        sess.Notice(),
		FailureReason: sess.Flow.FailureReason(),
		TransactionID: sess.Flow.TransactionID(),
		RecordID:      sess.Flow.RecordID(),
		LastSearch:    sess.LastSearch(),
		CreatedAt:     sess.CreatedAt(),
		UpdatedAt:     sess.UpdatedAt(),
	}
}
