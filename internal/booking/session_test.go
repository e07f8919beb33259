package booking

import (
	"testing"
	"time"

	"tripcart/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var searchReq = models.FlightSearchRequest{
	Origin:        "DEL",
	Destination:   "BOM",
	DepartureDate: "2025-12-20",
	CabinClass:    models.CabinEconomy,
	Passengers:    1,
}

func TestSession_SelectionsDriveFlow(t *testing.T) {
	s := NewSession("s1", day0)

	require.NoError(t, s.SelectFlight(testFlight(5000)))
	assert.Equal(t, models.StageSelectingAccommodation, s.Flow.Stage())

	require.NoError(t, s.SelectHotel(testHotel(1000, 3)))
	assert.Equal(t, models.StageReviewingSummary, s.Flow.Stage())

	require.NoError(t, s.SelectCab(testCab(500)))
	assert.Equal(t, models.StageReviewingSummary, s.Flow.Stage())
	assert.Equal(t, int64(8500), TotalPrice(s.Aggregate))
}

func TestSession_StaleSearchDiscarded(t *testing.T) {
	s := NewSession("s1", day0)

	first := s.BeginSearch()
	second := s.BeginSearch()

	late := &models.FlightSearchResponse{Source: models.SourceAPI, Flights: []models.FlightOffer{{ID: "old"}}}
	fresh := &models.FlightSearchResponse{Source: models.SourceCache, Flights: []models.FlightOffer{{ID: "new"}}}

	assert.True(t, s.CompleteSearch(second, searchReq, fresh, day0))
	assert.False(t, s.CompleteSearch(first, searchReq, late, day0))

	require.NotNil(t, s.LastSearch())
	assert.Equal(t, "new", s.LastSearch().Flights[0].ID)
	assert.Equal(t, models.SourceCache, s.LastSearch().Source)
}

func TestSession_FailedSearchLeavesAggregate(t *testing.T) {
	s := NewSession("s1", day0)
	require.NoError(t, s.SelectFlight(testFlight(5000)))
	before := s.Aggregate.Snapshot()

	token := s.BeginSearch()
	assert.True(t, s.FailSearch(token, searchReq, "flight prices are unavailable right now", day0))

	assert.Equal(t, before, s.Aggregate.Snapshot())
	assert.Equal(t, "flight prices are unavailable right now", s.Notice())
	require.NotNil(t, s.LastSearch())
	assert.Empty(t, s.LastSearch().Flights)
}

func TestSession_ResetInvalidatesInflightSearch(t *testing.T) {
	s := NewSession("s1", day0)
	token := s.BeginSearch()
	s.Reset()
	s.BeginSearch()

	assert.False(t, s.CompleteSearch(token, searchReq, &models.FlightSearchResponse{}, day0))
}

func TestSession_ConfirmedRejectsSelections(t *testing.T) {
	s := NewSession("s1", day0)
	require.NoError(t, s.SelectFlight(testFlight(5000)))
	require.NoError(t, s.Flow.Navigate(models.StageReviewingSummary))
	require.NoError(t, s.Flow.Confirm(s.Aggregate))
	require.NoError(t, s.Flow.PaymentSucceeded("TXN123456789", 1))

	assert.ErrorIs(t, s.SelectFlight(testFlight(1)), ErrSessionConfirmed)
	assert.ErrorIs(t, s.SelectHotel(testHotel(1, 1)), ErrSessionConfirmed)
	assert.ErrorIs(t, s.SelectHostel(testHostel(1, 1)), ErrSessionConfirmed)
	assert.ErrorIs(t, s.SelectCab(testCab(1)), ErrSessionConfirmed)
	assert.Equal(t, int64(5000), TotalPrice(s.Aggregate))

	s.Reset()
	assert.False(t, s.Aggregate.HasFlight())
	assert.Equal(t, models.StageSelectingFlight, s.Flow.Stage())
	assert.NoError(t, s.SelectFlight(testFlight(1)))
}

func TestSession_SnapshotRoundTrip(t *testing.T) {
	s := NewSession("s1", day0)
	require.NoError(t, s.SelectFlight(testFlight(5000)))
	require.NoError(t, s.SelectHostel(testHostel(400, 2)))
	token := s.BeginSearch()
	s.CompleteSearch(token, searchReq, &models.FlightSearchResponse{Source: models.SourceAPI}, day0)
	s.Touch(day0.Add(time.Minute))

	restored := RestoreSession(s.Snapshot())
	assert.Equal(t, s.Snapshot(), restored.Snapshot())
	assert.Equal(t, token+1, restored.BeginSearch())
}

func TestBuildRecord(t *testing.T) {
	a := NewAggregate()
	a.SetFlight(testFlight(5000))
	a.SetHotel(testHotel(1000, 3))
	a.SetCab(testCab(500))
	sum := NewCalculator(DefaultTaxRate).Summarize(a)

	rec := BuildRecord(a, sum, "user-1", models.PaymentCard, "TXN123456789", day0)

	assert.Equal(t, "user-1", rec.UserID)
	assert.Equal(t, "IndiGo", rec.FlightAirline)
	assert.Equal(t, "DEL", rec.FlightOrigin)
	assert.Equal(t, int64(5000), rec.FlightPrice)
	assert.Equal(t, "hotel", rec.StayType)
	assert.Equal(t, int64(3000), rec.StayPrice)
	require.NotNil(t, rec.StayCheckIn)
	assert.Equal(t, day0, *rec.StayCheckIn)
	assert.Equal(t, "Sedan", rec.CabType)
	assert.Equal(t, int64(8500), rec.Subtotal)
	assert.Equal(t, int64(1530), rec.Tax)
	assert.Equal(t, int64(10030), rec.Total)
	assert.Equal(t, models.StatusConfirmed, rec.Status)
	assert.Equal(t, "TXN123456789", rec.TransactionID)
}

func TestBuildRecord_FlightOnly(t *testing.T) {
	a := NewAggregate()
	a.SetFlight(testFlight(5000))

	rec := BuildRecord(a, Calculator{}.Summarize(a), "u", models.PaymentUPI, "TXN000000001", day0)
	assert.Empty(t, rec.StayType)
	assert.Nil(t, rec.StayCheckIn)
	assert.Nil(t, rec.CabTime)
	assert.Equal(t, int64(5900), rec.Total)
}
