package models

import "time"

// BookingRecord is the durable, denormalised snapshot written when a
// payment is confirmed. Empty leg fields mean the leg was not booked.
type BookingRecord struct {
	ID     int64  `json:"id"`
	UserID string `json:"user_id"`

	FlightAirline     string `json:"flight_airline,omitempty"`
	FlightOrigin      string `json:"flight_origin,omitempty"`
	FlightDestination string `json:"flight_destination,omitempty"`
	FlightDeparture   string `json:"flight_departure,omitempty"`
	FlightArrival     string `json:"flight_arrival,omitempty"`
	FlightClass       string `json:"flight_class,omitempty"`
	FlightPassengers  int    `json:"flight_passengers,omitempty"`
	FlightPrice       int64  `json:"flight_price,omitempty"`

	StayType     string     `json:"stay_type,omitempty"` // hotel, hostel
	StayName     string     `json:"stay_name,omitempty"`
	StayLocation string     `json:"stay_location,omitempty"`
	StayCheckIn  *time.Time `json:"stay_check_in,omitempty"`
	StayCheckOut *time.Time `json:"stay_check_out,omitempty"`
	StayPrice    int64      `json:"stay_price,omitempty"`

	CabType    string     `json:"cab_type,omitempty"`
	CabPickup  string     `json:"cab_pickup,omitempty"`
	CabDropoff string     `json:"cab_dropoff,omitempty"`
	CabTime    *time.Time `json:"cab_time,omitempty"`
	CabPrice   int64      `json:"cab_price,omitempty"`

	Subtotal      int64     `json:"subtotal"`
	Tax           int64     `json:"tax"`
	Total         int64     `json:"total"`
	PaymentMethod string    `json:"payment_method"`
	TransactionID string    `json:"transaction_id"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
