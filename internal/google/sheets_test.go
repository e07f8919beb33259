package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"tripcart/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func setupMockServer(t *testing.T) (*http.ServeMux, *SheetsService) {
	t.Helper()
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	s := newSheetsService(srv, "records_tid", "Bookings")
	s.now = func() time.Time { return fixedNow }
	return mux, s
}

func testRecord() *models.BookingRecord {
	checkIn := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC)
	return &models.BookingRecord{
		ID:                42,
		UserID:            "user-7",
		FlightAirline:     "IndiGo",
		FlightOrigin:      "DEL",
		FlightDestination: "BOM",
		FlightDeparture:   "2025-04-01 06:00",
		FlightClass:       "economy",
		FlightPassengers:  2,
		FlightPrice:       5000,
		StayType:          "hotel",
		StayName:          "Taj",
		StayLocation:      "Mumbai",
		StayCheckIn:       &checkIn,
		StayCheckOut:      &checkOut,
		StayPrice:         6000,
		Subtotal:          11000,
		Tax:               1980,
		Total:             12980,
		PaymentMethod:     "card",
		TransactionID:     "TXN000000042",
		Status:            models.StatusConfirmed,
		CreatedAt:         fixedNow,
	}
}

func TestRecordRowValues(t *testing.T) {
	values := recordRowValues(testRecord(), fixedNow)

	require.Len(t, values, len(recordHeaders))
	assert.Equal(t, int64(42), values[0])
	assert.Equal(t, "TXN000000042", values[2])
	assert.Equal(t, "DEL → BOM", values[4])
	assert.Equal(t, 2, values[7])
	assert.Equal(t, "Taj, Mumbai", values[9])
	assert.Equal(t, "2025-04-01", values[10])
	assert.Equal(t, "2025-04-03", values[11])
	assert.Equal(t, "", values[12])
	assert.Equal(t, "", values[13])
	assert.Equal(t, "", values[14])
	assert.Equal(t, int64(12980), values[17])
	assert.Equal(t, models.StatusConfirmed, values[18])
	assert.Equal(t, "2025-03-10 12:00:00", values[19])
}

func TestRecordRowValues_FlightOnly(t *testing.T) {
	rec := &models.BookingRecord{ID: 1, FlightAirline: "Vistara", Total: 5900}
	values := recordRowValues(rec, fixedNow)

	assert.Equal(t, "", values[7])
	assert.Equal(t, "", values[9])
	assert.Equal(t, "", values[10])
}

func TestRowFromRange(t *testing.T) {
	assert.Equal(t, 10, rowFromRange("Bookings!A10:T10"))
	assert.Equal(t, 2, rowFromRange("'My Sheet'!A2:T2"))
	assert.Equal(t, 0, rowFromRange("garbage"))
}

func TestCellID(t *testing.T) {
	assert.Equal(t, int64(5), cellID(float64(5)))
	assert.Equal(t, int64(12), cellID(" 12 "))
	assert.Equal(t, int64(0), cellID("ID"))
	assert.Equal(t, int64(0), cellID(true))
}

func TestSheetsService_TestConnection(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	assert.NoError(t, s.TestConnection(context.Background()))
}

func TestSheetsService_EnsureHeader(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!A1:T1", func(w http.ResponseWriter, r *http.Request) {
		var body sheets.ValueRange
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Values, 1) {
			assert.Equal(t, "ID", body.Values[0][0])
		}
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	assert.NoError(t, s.EnsureHeader(context.Background()))
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"123"}, {}, {"456"}},
		})
	})
	require.NoError(t, s.WarmUpCache(context.Background()))

	row, ok := s.getCachedRow(123)
	assert.True(t, ok)
	assert.Equal(t, 2, row)
	row, ok = s.getCachedRow(456)
	assert.True(t, ok)
	assert.Equal(t, 4, row)
}

func TestSheetsService_AppendBookingRecord_New(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	var appended atomic.Int32
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		appended.Add(1)
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Bookings!A10:T10"},
		})
	})

	require.NoError(t, s.AppendBookingRecord(context.Background(), testRecord()))
	assert.Equal(t, int32(1), appended.Load())

	row, ok := s.getCachedRow(42)
	assert.True(t, ok)
	assert.Equal(t, 10, row)
}

func TestSheetsService_AppendBookingRecord_Existing(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow(42, 3)
	var updated atomic.Int32
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!A3:T3", func(w http.ResponseWriter, r *http.Request) {
		updated.Add(1)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	require.NoError(t, s.AppendBookingRecord(context.Background(), testRecord()))
	assert.Equal(t, int32(1), updated.Load())
}

func TestSheetsService_AppendBookingRecord_Nil(t *testing.T) {
	_, s := setupMockServer(t)
	assert.Error(t, s.AppendBookingRecord(context.Background(), nil))
}

func TestSheetsService_UpdateRecordStatus(t *testing.T) {
	mux, s := setupMockServer(t)
	s.setCachedRow(42, 2)
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!S2:S2", func(w http.ResponseWriter, r *http.Request) {
		var body sheets.ValueRange
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Values, 1) {
			assert.Equal(t, models.StatusCancelled, body.Values[0][0])
		}
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!T2:T2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	assert.NoError(t, s.UpdateRecordStatus(context.Background(), 42, models.StatusCancelled))
}

func TestSheetsService_FindRecordRow(t *testing.T) {
	mux, s := setupMockServer(t)
	mux.HandleFunc("/v4/spreadsheets/records_tid/values/Bookings!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"999"}},
		})
	})
	ctx := context.Background()

	row, err := s.FindRecordRow(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	_, err = s.FindRecordRow(ctx, 1000)
	assert.ErrorIs(t, err, ErrRowNotFound)

	_, err = s.FindRecordRow(ctx, 0)
	assert.Error(t, err)
}

func TestSheetsService_ClearCache(t *testing.T) {
	_, s := setupMockServer(t)
	s.setCachedRow(1, 2)
	s.ClearCache()
	_, ok := s.getCachedRow(1)
	assert.False(t, ok)
}

func TestGetServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"client_email":"mirror@project.iam.gserviceaccount.com"}`), 0o600))

	email, err := GetServiceAccountEmail(path)
	require.NoError(t, err)
	assert.Equal(t, "mirror@project.iam.gserviceaccount.com", email)

	_, err = GetServiceAccountEmail(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
