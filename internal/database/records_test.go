package database

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"tripcart/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(userID, txn string, created time.Time) *models.BookingRecord {
	checkIn := time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC)
	checkOut := checkIn.AddDate(0, 0, 3)
	return &models.BookingRecord{
		UserID:            userID,
		FlightAirline:     "IndiGo",
		FlightOrigin:      "DEL",
		FlightDestination: "BOM",
		FlightDeparture:   "06:10",
		FlightArrival:     "08:25",
		FlightClass:       models.CabinEconomy,
		FlightPassengers:  1,
		FlightPrice:       5000,
		StayType:          "hotel",
		StayName:          "Sea View",
		StayLocation:      "Mumbai",
		StayCheckIn:       &checkIn,
		StayCheckOut:      &checkOut,
		StayPrice:         3000,
		Subtotal:          8000,
		Tax:               1440,
		Total:             9440,
		PaymentMethod:     models.PaymentCard,
		TransactionID:     txn,
		Status:            models.StatusConfirmed,
		CreatedAt:         created,
	}
}

func TestBookingRecordCRUD(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

	rec := testRecord("user-1", "TXN000000001", now)
	require.NoError(t, db.CreateBookingRecord(ctx, rec))
	assert.NotZero(t, rec.ID)

	got, err := db.GetBookingRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, int64(9440), got.Total)
	assert.Equal(t, "TXN000000001", got.TransactionID)
	require.NotNil(t, got.StayCheckIn)
	assert.True(t, rec.StayCheckIn.Equal(*got.StayCheckIn))
	assert.Nil(t, got.CabTime)
	assert.True(t, now.Equal(got.CreatedAt))

	require.NoError(t, db.UpdateBookingRecordStatus(ctx, rec.ID, models.StatusCancelled))
	got, err = db.GetBookingRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, got.Status)
}

func TestGetBookingRecord_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetBookingRecord(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.ErrorIs(t, db.UpdateBookingRecordStatus(context.Background(), 42, "x"), ErrRecordNotFound)
}

func TestCreateBookingRecord_DuplicateTransaction(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateBookingRecord(ctx, testRecord("u", "TXN000000002", time.Now())))
	assert.Error(t, db.CreateBookingRecord(ctx, testRecord("u", "TXN000000002", time.Now())))
}

func TestGetUserBookingRecords(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 12, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, db.CreateBookingRecord(ctx, testRecord("alice", "TXN000000010", base)))
	require.NoError(t, db.CreateBookingRecord(ctx, testRecord("alice", "TXN000000011", base.Add(time.Hour))))
	require.NoError(t, db.CreateBookingRecord(ctx, testRecord("bob", "TXN000000012", base)))

	records, err := db.GetUserBookingRecords(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "TXN000000011", records[0].TransactionID)

	records, err = db.GetUserBookingRecords(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestConcurrentRecordWrites(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	const n = 10

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- db.CreateBookingRecord(ctx, testRecord("load", fmt.Sprintf("TXN%09d", i), time.Now()))
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	records, err := db.GetUserBookingRecords(ctx, "load")
	require.NoError(t, err)
	assert.Len(t, records, n)
}

func TestDB_ErrorPaths(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()

	assert.Error(t, db.CreateBookingRecord(ctx, testRecord("u", "TXN1", time.Now())))
	_, err = db.GetBookingRecord(ctx, 1)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRecordNotFound)
	_, err = db.GetUserBookingRecords(ctx, "u")
	assert.Error(t, err)
	assert.Error(t, db.CreateSyncTask(ctx, &models.SyncTask{}))
}
