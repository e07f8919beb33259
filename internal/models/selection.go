package models

import "time"

// GeoPoint is a latitude/longitude pair as returned by the places API.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FlightSelection is a priced flight offer the user picked.
// It is replaced wholesale on re-selection.
type FlightSelection struct {
	ID            string `json:"id"`
	Airline       string `json:"airline"`
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departure_time"`
	ArrivalTime   string `json:"arrival_time"`
	Duration      string `json:"duration"`
	Price         int64  `json:"price"`
	Passengers    int    `json:"passengers"`
	CabinClass    string `json:"cabin_class"`
}

// AccommodationKind tags the variant held by an Accommodation value.
type AccommodationKind string

const (
	AccommodationHotel  AccommodationKind = "hotel"
	AccommodationHostel AccommodationKind = "hostel"
)

// Accommodation is either a hotel or a hostel stay. The unexported marker
// keeps the set of variants closed to this package.
type Accommodation interface {
	Kind() AccommodationKind
	Stay() StayDetails
	accommodation()
}

// StayDetails holds the fields shared by every accommodation variant.
type StayDetails struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	CheckIn       time.Time `json:"check_in"`
	CheckOut      time.Time `json:"check_out"`
	PricePerNight int64     `json:"price_per_night"`
	TotalPrice    int64     `json:"total_price"`
	Guests        int       `json:"guests"`
	Amenities     []string  `json:"amenities,omitempty"`
	Rating        float64   `json:"rating"`
	Coordinates   GeoPoint  `json:"coordinates"`
}

type HotelSelection struct {
	StayDetails
	RoomType string `json:"room_type"`
}

func (h *HotelSelection) Kind() AccommodationKind { return AccommodationHotel }
func (h *HotelSelection) Stay() StayDetails       { return h.StayDetails }
func (h *HotelSelection) accommodation()          {}

type HostelSelection struct {
	StayDetails
	BedType string `json:"bed_type"`
}

func (h *HostelSelection) Kind() AccommodationKind { return AccommodationHostel }
func (h *HostelSelection) Stay() StayDetails       { return h.StayDetails }
func (h *HostelSelection) accommodation()          {}

// CabSelection is a ground transport leg.
type CabSelection struct {
	ID              string    `json:"id"`
	CabType         string    `json:"cab_type"`
	PickupLocation  string    `json:"pickup_location"`
	DropoffLocation string    `json:"dropoff_location"`
	PickupTime      time.Time `json:"pickup_time"`
	Price           int64     `json:"price"`
	Distance        string    `json:"distance"`
	Duration        string    `json:"duration"`
	DriverName      string    `json:"driver_name,omitempty"`
	VehicleNumber   string    `json:"vehicle_number,omitempty"`
	PickupCoords    GeoPoint  `json:"pickup_coords"`
	DropoffCoords   GeoPoint  `json:"dropoff_coords"`
}
