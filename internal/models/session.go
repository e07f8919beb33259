package models

import "time"

// Stage is a step of the booking flow.
type Stage string

const (
	StageSelectingFlight        Stage = "selecting_flight"
	StageSelectingAccommodation Stage = "selecting_accommodation"
	StageReviewingSummary       Stage = "reviewing_summary"
	StageAwaitingPayment        Stage = "awaiting_payment"
	StageConfirmed              Stage = "confirmed"
)

// AggregateSnapshot is the serialisable form of a booking aggregate.
// At most one of Hotel and Hostel is set.
type AggregateSnapshot struct {
	Flight *FlightSelection `json:"flight"`
	Hotel  *HotelSelection  `json:"hotel"`
	Hostel *HostelSelection `json:"hostel"`
	Cab    *CabSelection    `json:"cab"`
}

// FlowSnapshot is the serialisable form of the flow controller.
type FlowSnapshot struct {
	Stage            Stage  `json:"stage"`
	SawFlight        bool   `json:"saw_flight"`
	SawAccommodation bool   `json:"saw_accommodation"`
	FailureReason    string `json:"failure_reason,omitempty"`
	TransactionID    string `json:"transaction_id,omitempty"`
	RecordID         int64  `json:"record_id,omitempty"`
}

// SearchSnapshot keeps the last accepted flight search of a session.
type SearchSnapshot struct {
	Token      uint64              `json:"token"`
	Request    FlightSearchRequest `json:"request"`
	Flights    []FlightOffer       `json:"flights"`
	Source     string              `json:"source"`
	Error      string              `json:"error,omitempty"`
	ReceivedAt time.Time           `json:"received_at"`
}

// SessionSnapshot is what the session store keeps per browsing session.
type SessionSnapshot struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id,omitempty"`
	Aggregate  AggregateSnapshot `json:"aggregate"`
	Flow       FlowSnapshot      `json:"flow"`
	SearchSeq  uint64            `json:"search_seq"`
	LastSearch *SearchSnapshot   `json:"last_search,omitempty"`
	Notice     string            `json:"notice,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}
