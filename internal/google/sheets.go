package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"tripcart/internal/config"
	"tripcart/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"

	// колонки статуса и времени обновления
	statusColumn  = "S"
	updatedColumn = "T"
	lastColumn    = "T"
)

var (
	ErrRowNotFound = errors.New("booking record row not found")

	rowInRange = regexp.MustCompile(`![A-Z]+(\d+)`)
)

// recordHeaders is the first row of the mirror sheet.
var recordHeaders = []interface{}{
	"ID", "User", "Transaction",
	"Airline", "Route", "Departure", "Class", "Passengers",
	"Stay Type", "Stay", "Check-in", "Check-out",
	"Cab", "Cab Route", "Pickup Time",
	"Subtotal", "Tax", "Total", "Status", "Updated At",
}

// SheetsService mirrors booking records into one sheet of a spreadsheet.
// Rows are addressed by record ID in column A; row numbers are cached.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	rowCache      map[int64]int
	cacheMu       sync.RWMutex
	now           func() time.Time
}

// NewSheetsService reads the service account credentials and builds the client.
func NewSheetsService(ctx context.Context, cfg config.GoogleConfig) (*SheetsService, error) {
	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(cfg.GoogleCredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsService(srv, cfg.BookingSpreadSheetID, cfg.SheetName), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		rowCache:      make(map[int64]int),
		now:           time.Now,
	}
}

func (s *SheetsService) rangeOf(a1 string) string {
	return s.sheetName + "!" + a1
}

// TestConnection проверяет доступ к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A1")).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// GetServiceAccountEmail returns the client_email of a credentials file,
// the address the spreadsheet has to be shared with.
func GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// EnsureHeader writes the header row.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1:"+lastColumn+"1"), &sheets.ValueRange{
		Values: [][]interface{}{recordHeaders},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// WarmUpCache populates the row index cache by reading the entire ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if id := cellID(row[0]); id > 0 {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// AppendBookingRecord writes the record row. A record already present in the
// sheet is overwritten in place so repeated deliveries stay idempotent.
func (s *SheetsService) AppendBookingRecord(ctx context.Context, rec *models.BookingRecord) error {
	if rec == nil {
		return errors.New("record is nil")
	}

	values := [][]interface{}{recordRowValues(rec, s.now())}

	rowIdx, err := s.FindRecordRow(ctx, rec.ID)
	switch {
	case err == nil:
		a1 := fmt.Sprintf("A%d:%s%d", rowIdx, lastColumn, rowIdx)
		_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf(a1), &sheets.ValueRange{Values: values}).
			ValueInputOption("RAW").
			Context(ctx).
			Do()
		return err
	case !errors.Is(err, ErrRowNotFound):
		return err
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:A"), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row := rowFromRange(resp.Updates.UpdatedRange); row > 0 {
			s.setCachedRow(rec.ID, row)
		}
	}
	return nil
}

// UpdateRecordStatus rewrites the status cell and the update timestamp.
func (s *SheetsService) UpdateRecordStatus(ctx context.Context, recordID int64, status string) error {
	rowIdx, err := s.FindRecordRow(ctx, recordID)
	if err != nil {
		return err
	}

	statusRange := fmt.Sprintf("%s%d:%s%d", statusColumn, rowIdx, statusColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf(statusRange), &sheets.ValueRange{
		Values: [][]interface{}{{status}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return err
	}

	updatedRange := fmt.Sprintf("%s%d:%s%d", updatedColumn, rowIdx, updatedColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf(updatedRange), &sheets.ValueRange{
		Values: [][]interface{}{{s.now().Format(dateTimeLayout)}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindRecordRow locates the 1-based row of recordID in column A.
func (s *SheetsService) FindRecordRow(ctx context.Context, recordID int64) (int, error) {
	if recordID == 0 {
		return 0, errors.New("record id is required")
	}
	if row, ok := s.getCachedRow(recordID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cellID(row[0]) == recordID {
			rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
			s.setCachedRow(recordID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, ErrRowNotFound
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache drops all cached row positions.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}

func cellID(v interface{}) int64 {
	switch c := v.(type) {
	case float64:
		return int64(c)
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(c), 10, 64)
		if err != nil {
			return 0
		}
		return id
	}
	return 0
}

// rowFromRange extracts the first row number of an A1 range like "Bookings!A10:T10".
func rowFromRange(a1 string) int {
	m := rowInRange.FindStringSubmatch(a1)
	if len(m) != 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func formatOptionalTime(t *time.Time, layout string) string {
	if t == nil {
		return ""
	}
	return t.Format(layout)
}

func joinRoute(from, to string) string {
	if from == "" && to == "" {
		return ""
	}
	return from + " → " + to
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

// recordRowValues lays a record out over columns A..T. Amounts stay numeric.
func recordRowValues(rec *models.BookingRecord, updatedAt time.Time) []interface{} {
	passengers := interface{}("")
	if rec.FlightPassengers > 0 {
		passengers = rec.FlightPassengers
	}

	return []interface{}{
		rec.ID,
		rec.UserID,
		rec.TransactionID,
		rec.FlightAirline,
		joinRoute(rec.FlightOrigin, rec.FlightDestination),
		rec.FlightDeparture,
		rec.FlightClass,
		passengers,
		rec.StayType,
		joinNonEmpty(", ", rec.StayName, rec.StayLocation),
		formatOptionalTime(rec.StayCheckIn, dateLayout),
		formatOptionalTime(rec.StayCheckOut, dateLayout),
		rec.CabType,
		joinRoute(rec.CabPickup, rec.CabDropoff),
		formatOptionalTime(rec.CabTime, dateTimeLayout),
		rec.Subtotal,
		rec.Tax,
		rec.Total,
		rec.Status,
		updatedAt.Format(dateTimeLayout),
	}
}
