package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tripcart/internal/models"
)

// ErrRecordNotFound is returned when no booking record matches.
var ErrRecordNotFound = errors.New("booking record not found")

const recordColumns = `id, user_id,
    flight_airline, flight_origin, flight_destination, flight_departure, flight_arrival, flight_class, flight_passengers, flight_price,
    stay_type, stay_name, stay_location, stay_check_in, stay_check_out, stay_price,
    cab_type, cab_pickup, cab_dropoff, cab_time, cab_price,
    subtotal, tax, total, payment_method, transaction_id, status, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*models.BookingRecord, error) {
	var r models.BookingRecord
	err := row.Scan(
		&r.ID, &r.UserID,
		&r.FlightAirline, &r.FlightOrigin, &r.FlightDestination, &r.FlightDeparture, &r.FlightArrival, &r.FlightClass, &r.FlightPassengers, &r.FlightPrice,
		&r.StayType, &r.StayName, &r.StayLocation, &r.StayCheckIn, &r.StayCheckOut, &r.StayPrice,
		&r.CabType, &r.CabPickup, &r.CabDropoff, &r.CabTime, &r.CabPrice,
		&r.Subtotal, &r.Tax, &r.Total, &r.PaymentMethod, &r.TransactionID, &r.Status, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateBookingRecord сохраняет подтвержденное бронирование и заполняет rec.ID
func (db *DB) CreateBookingRecord(ctx context.Context, rec *models.BookingRecord) error {
	query := `INSERT INTO booking_records (user_id,
        flight_airline, flight_origin, flight_destination, flight_departure, flight_arrival, flight_class, flight_passengers, flight_price,
        stay_type, stay_name, stay_location, stay_check_in, stay_check_out, stay_price,
        cab_type, cab_pickup, cab_dropoff, cab_time, cab_price,
        subtotal, tax, total, payment_method, transaction_id, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := db.ExecContext(ctx, query, rec.UserID,
		rec.FlightAirline, rec.FlightOrigin, rec.FlightDestination, rec.FlightDeparture, rec.FlightArrival, rec.FlightClass, rec.FlightPassengers, rec.FlightPrice,
		rec.StayType, rec.StayName, rec.StayLocation, rec.StayCheckIn, rec.StayCheckOut, rec.StayPrice,
		rec.CabType, rec.CabPickup, rec.CabDropoff, rec.CabTime, rec.CabPrice,
		rec.Subtotal, rec.Tax, rec.Total, rec.PaymentMethod, rec.TransactionID, rec.Status, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking record: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rec.ID = id

	db.logger.Debug().Int64("record_id", id).Str("transaction_id", rec.TransactionID).Msg("Booking record stored")
	return nil
}

// GetBookingRecord возвращает запись по ID
func (db *DB) GetBookingRecord(ctx context.Context, id int64) (*models.BookingRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM booking_records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking record: %w", err)
	}
	return rec, nil
}

// GetUserBookingRecords возвращает записи пользователя, новые первыми
func (db *DB) GetUserBookingRecords(ctx context.Context, userID string) ([]*models.BookingRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM booking_records WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query booking records: %w", err)
	}
	defer rows.Close()

	records := make([]*models.BookingRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateBookingRecordStatus меняет статус записи (например, отмена)
func (db *DB) UpdateBookingRecordStatus(ctx context.Context, id int64, status string) error {
	res, err := db.ExecContext(ctx, `UPDATE booking_records SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update booking record status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrRecordNotFound
	}
	return nil
}
