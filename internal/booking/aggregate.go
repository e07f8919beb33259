package booking

import "tripcart/internal/models"

// Aggregate is the current selection of one session across all legs.
// It is owned by a single session and is not safe for concurrent writers.
type Aggregate struct {
	flight        *models.FlightSelection
	accommodation models.Accommodation
	cab           *models.CabSelection
}

// NewAggregate returns an empty aggregate.
func NewAggregate() *Aggregate {
	return &Aggregate{}
}

// SetFlight replaces the flight leg.
func (a *Aggregate) SetFlight(sel models.FlightSelection) {
	a.flight = &sel
}

// SetHotel replaces the accommodation with a hotel; any hostel is dropped.
// The stay total is recomputed from the nightly price.
func (a *Aggregate) SetHotel(sel models.HotelSelection) {
	sel.TotalPrice = StayTotal(sel.PricePerNight, sel.CheckIn, sel.CheckOut)
	a.accommodation = &sel
}

// SetHostel replaces the accommodation with a hostel; any hotel is dropped.
func (a *Aggregate) SetHostel(sel models.HostelSelection) {
	sel.TotalPrice = StayTotal(sel.PricePerNight, sel.CheckIn, sel.CheckOut)
	a.accommodation = &sel
}

// SetCab replaces the ground transport leg.
func (a *Aggregate) SetCab(sel models.CabSelection) {
	a.cab = &sel
}

// Reset clears every leg.
func (a *Aggregate) Reset() {
	a.flight = nil
	a.accommodation = nil
	a.cab = nil
}

func (a *Aggregate) HasFlight() bool        { return a.flight != nil }
func (a *Aggregate) HasAccommodation() bool { return a.accommodation != nil }
func (a *Aggregate) HasCab() bool           { return a.cab != nil }

// Flight returns a copy of the flight leg or nil.
func (a *Aggregate) Flight() *models.FlightSelection {
	if a.flight == nil {
		return nil
	}
	f := *a.flight
	return &f
}

// Accommodation returns the current stay variant or nil.
func (a *Aggregate) Accommodation() models.Accommodation {
	return a.accommodation
}

// Hotel returns a copy of the hotel leg, nil when none or a hostel is held.
func (a *Aggregate) Hotel() *models.HotelSelection {
	h, ok := a.accommodation.(*models.HotelSelection)
	if !ok {
		return nil
	}
	cp := *h
	return &cp
}

// Hostel returns a copy of the hostel leg, nil when none or a hotel is held.
func (a *Aggregate) Hostel() *models.HostelSelection {
	h, ok := a.accommodation.(*models.HostelSelection)
	if !ok {
		return nil
	}
	cp := *h
	return &cp
}

// Cab returns a copy of the cab leg or nil.
func (a *Aggregate) Cab() *models.CabSelection {
	if a.cab == nil {
		return nil
	}
	c := *a.cab
	return &c
}

// Snapshot returns the serialisable form of the aggregate.
func (a *Aggregate) Snapshot() models.AggregateSnapshot {
	return models.AggregateSnapshot{
		Flight: a.Flight(),
		Hotel:  a.Hotel(),
		Hostel: a.Hostel(),
		Cab:    a.Cab(),
	}
}

// RestoreAggregate rebuilds an aggregate from a snapshot. A snapshot holding
// both stays keeps the hotel, so the result always satisfies exclusivity.
func RestoreAggregate(s models.AggregateSnapshot) *Aggregate {
	a := NewAggregate()
	if s.Flight != nil {
		a.SetFlight(*s.Flight)
	}
	switch {
	case s.Hotel != nil:
		h := *s.Hotel
		a.accommodation = &h
	case s.Hostel != nil:
		h := *s.Hostel
		a.accommodation = &h
	}
	if s.Cab != nil {
		a.SetCab(*s.Cab)
	}
	return a
}
