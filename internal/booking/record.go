package booking

import (
	"time"

	"tripcart/internal/models"
)

// BuildRecord denormalises the aggregate into the durable booking record
// written at payment confirmation.
func BuildRecord(a *Aggregate, sum Summary, userID, method, transactionID string, now time.Time) *models.BookingRecord {
	rec := &models.BookingRecord{
		UserID:        userID,
		Subtotal:      sum.Subtotal,
		Tax:           sum.Tax,
		Total:         sum.Total,
		PaymentMethod: method,
		TransactionID: transactionID,
		Status:        models.StatusConfirmed,
		CreatedAt:     now,
	}

	if f := a.Flight(); f != nil {
		rec.FlightAirline = f.Airline
		rec.FlightOrigin = f.Origin
		rec.FlightDestination = f.Destination
		rec.FlightDeparture = f.DepartureTime
		rec.FlightArrival = f.ArrivalTime
		rec.FlightClass = f.CabinClass
		rec.FlightPassengers = f.Passengers
		rec.FlightPrice = f.Price
	}

	if acc := a.Accommodation(); acc != nil {
		stay := acc.Stay()
		checkIn, checkOut := stay.CheckIn, stay.CheckOut
		rec.StayType = string(acc.Kind())
		rec.StayName = stay.Name
		rec.StayLocation = stay.Location
		rec.StayCheckIn = &checkIn
		rec.StayCheckOut = &checkOut
		rec.StayPrice = stay.TotalPrice
	}

	if c := a.Cab(); c != nil {
		pickup := c.PickupTime
		rec.CabType = c.CabType
		rec.CabPickup = c.PickupLocation
		rec.CabDropoff = c.DropoffLocation
		rec.CabTime = &pickup
		rec.CabPrice = c.Price
	}

	return rec
}
