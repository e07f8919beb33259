package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

const memoryPath = ":memory:"

// DB wraps the sqlite connection that holds confirmed booking records and
// the mirror sync queue.
type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger
}

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dsn := path
	if path != memoryPath {
		// Создаем директорию для БД, если её нет
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == memoryPath {
		// каждое соединение получает свою in-memory базу
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return &DB{DB: db, path: path, logger: logger}, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS booking_records (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            user_id TEXT NOT NULL,
            flight_airline TEXT NOT NULL DEFAULT '',
            flight_origin TEXT NOT NULL DEFAULT '',
            flight_destination TEXT NOT NULL DEFAULT '',
            flight_departure TEXT NOT NULL DEFAULT '',
            flight_arrival TEXT NOT NULL DEFAULT '',
            flight_class TEXT NOT NULL DEFAULT '',
            flight_passengers INTEGER NOT NULL DEFAULT 0,
            flight_price INTEGER NOT NULL DEFAULT 0,
            stay_type TEXT NOT NULL DEFAULT '',
            stay_name TEXT NOT NULL DEFAULT '',
            stay_location TEXT NOT NULL DEFAULT '',
            stay_check_in DATETIME,
            stay_check_out DATETIME,
            stay_price INTEGER NOT NULL DEFAULT 0,
            cab_type TEXT NOT NULL DEFAULT '',
            cab_pickup TEXT NOT NULL DEFAULT '',
            cab_dropoff TEXT NOT NULL DEFAULT '',
            cab_time DATETIME,
            cab_price INTEGER NOT NULL DEFAULT 0,
            subtotal INTEGER NOT NULL,
            tax INTEGER NOT NULL,
            total INTEGER NOT NULL,
            payment_method TEXT NOT NULL,
            transaction_id TEXT NOT NULL UNIQUE,
            status TEXT NOT NULL DEFAULT 'confirmed',
            created_at DATETIME NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            task_type TEXT NOT NULL,
            record_id INTEGER NOT NULL,
            payload TEXT,
            status TEXT NOT NULL DEFAULT 'pending',
            retry_count INTEGER NOT NULL DEFAULT 0,
            last_error TEXT,
            created_at DATETIME NOT NULL,
            processed_at DATETIME,
            next_retry_at DATETIME
        )`,

		`CREATE INDEX IF NOT EXISTS idx_booking_records_user_id ON booking_records(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_booking_records_created_at ON booking_records(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}
