package service

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"tripcart/internal/booking"
	"tripcart/internal/models"
)

const searchDateLayout = "2006-01-02"

var airportCode = regexp.MustCompile(`^[A-Z]{3}$`)

// normalizeSearch upper-cases airport codes and fills the defaults the
// search form leaves empty.
func normalizeSearch(req models.FlightSearchRequest) models.FlightSearchRequest {
	req.Origin = strings.ToUpper(strings.TrimSpace(req.Origin))
	req.Destination = strings.ToUpper(strings.TrimSpace(req.Destination))
	req.DepartureDate = strings.TrimSpace(req.DepartureDate)
	req.ReturnDate = strings.TrimSpace(req.ReturnDate)
	if req.CabinClass == "" {
		req.CabinClass = models.CabinEconomy
	}
	if req.Passengers == 0 {
		req.Passengers = 1
	}
	return req
}

func validateSearch(req models.FlightSearchRequest) error {
	if req.Origin == "" {
		return booking.NewValidationError("origin", "origin is required")
	}
	if req.Destination == "" {
		return booking.NewValidationError("destination", "destination is required")
	}
	if !airportCode.MatchString(req.Origin) {
		return booking.NewValidationError("origin", "origin must be a 3-letter airport code")
	}
	if !airportCode.MatchString(req.Destination) {
		return booking.NewValidationError("destination", "destination must be a 3-letter airport code")
	}
	if req.Origin == req.Destination {
		return booking.NewValidationError("destination", "origin and destination must differ")
	}

	departure, err := time.Parse(searchDateLayout, req.DepartureDate)
	if err != nil {
		return booking.NewValidationError("departureDate", "departure date must be YYYY-MM-DD")
	}
	if req.ReturnDate != "" {
		ret, err := time.Parse(searchDateLayout, req.ReturnDate)
		if err != nil {
			return booking.NewValidationError("returnDate", "return date must be YYYY-MM-DD")
		}
		if ret.Before(departure) {
			return booking.NewValidationError("returnDate", "return date cannot be before departure")
		}
	}

	if req.Passengers < 1 || req.Passengers > models.MaxPassengers {
		return booking.NewValidationError("passengers", "passengers must be between 1 and 9")
	}

	switch req.CabinClass {
	case models.CabinEconomy, models.CabinPremiumEconomy, models.CabinBusiness, models.CabinFirst:
	default:
		return booking.NewValidationError("cabinClass", "unknown cabin class")
	}
	return nil
}

func validateFlight(sel models.FlightSelection) error {
	if strings.TrimSpace(sel.Airline) == "" {
		return booking.NewValidationError("airline", "airline is required")
	}
	if err := validatePrice("price", sel.Price); err != nil {
		return err
	}
	if sel.Passengers < 0 || sel.Passengers > models.MaxPassengers {
		return booking.NewValidationError("passengers", "passengers must be between 1 and 9")
	}
	return nil
}

func validateStay(stay models.StayDetails) error {
	if strings.TrimSpace(stay.Name) == "" {
		return booking.NewValidationError("name", "name is required")
	}
	if err := validatePrice("price_per_night", stay.PricePerNight); err != nil {
		return err
	}
	if stay.CheckIn.IsZero() || stay.CheckOut.IsZero() {
		return booking.NewValidationError("check_in", "check-in and check-out dates are required")
	}
	if stay.CheckOut.Before(stay.CheckIn) {
		return booking.NewValidationError("check_out", "check-out cannot be before check-in")
	}
	if stay.Guests < 0 {
		return booking.NewValidationError("guests", "guests cannot be negative")
	}
	return nil
}

func validateCab(sel models.CabSelection) error {
	if strings.TrimSpace(sel.PickupLocation) == "" {
		return booking.NewValidationError("pickup_location", "pickup location is required")
	}
	if strings.TrimSpace(sel.DropoffLocation) == "" {
		return booking.NewValidationError("dropoff_location", "dropoff location is required")
	}
	return validatePrice("price", sel.Price)
}

func validatePrice(field string, price int64) error {
	if price < 0 {
		return booking.NewValidationError(field, "price cannot be negative")
	}
	if price > booking.MaxPrice {
		return booking.NewValidationError(field, fmt.Sprintf("price cannot exceed %d", booking.MaxPrice))
	}
	return nil
}
