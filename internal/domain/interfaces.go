package domain

import (
	"context"
	"time"

	"tripcart/internal/models"
)

// SessionStore keeps browsing session snapshots. GetSession returns nil, nil
// for an unknown or expired session.
type SessionStore interface {
	GetSession(ctx context.Context, id string) (*models.SessionSnapshot, error)
	SaveSession(ctx context.Context, snap *models.SessionSnapshot) error
	DeleteSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RecordRepository interface {
	CreateBookingRecord(ctx context.Context, rec *models.BookingRecord) error
	GetBookingRecord(ctx context.Context, id int64) (*models.BookingRecord, error)
	GetUserBookingRecords(ctx context.Context, userID string) ([]*models.BookingRecord, error)
	UpdateBookingRecordStatus(ctx context.Context, id int64, status string) error
}

// PricingClient talks to the remote flight pricing function.
type PricingClient interface {
	SearchFlights(ctx context.Context, req models.FlightSearchRequest) (*models.FlightSearchResponse, error)
	GetPredictions(ctx context.Context, origin, destination, date string) ([]models.PricePrediction, error)
}

type PaymentGateway interface {
	Charge(ctx context.Context, amount int64, req models.PaymentRequest) (*models.PaymentResult, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	AppendBookingRecord(ctx context.Context, rec *models.BookingRecord) error
	UpdateRecordStatus(ctx context.Context, recordID int64, status string) error
}

// SyncWorker mirrors record changes to the spreadsheet asynchronously.
type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, recordID int64, rec *models.BookingRecord, status string) error
	FailedTasks(ctx context.Context) ([]models.SyncTask, error)
}
