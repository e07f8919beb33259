// Package export renders a booking aggregate as an xlsx itinerary.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tripcart/internal/booking"
	"tripcart/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	SheetName = "Itinerary"

	dateLayout     = "02 Jan 2006"
	dateTimeLayout = "02 Jan 2006 15:04"
)

// Itinerary is the input of the exporter. Summary is taken verbatim from
// the pricing derivation; the exporter never recomputes amounts.
type Itinerary struct {
	SessionID     string
	Aggregate     *booking.Aggregate
	Summary       booking.Summary
	TaxRate       float64
	TransactionID string
	GeneratedAt   time.Time
}

type sheetWriter struct {
	f       *excelize.File
	row     int
	section int
	label   int
	err     error
}

func (w *sheetWriter) set(col int, value interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, w.row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(SheetName, cell, value)
}

func (w *sheetWriter) style(col, styleID int) {
	if w.err != nil {
		return
	}
	cell, _ := excelize.CoordinatesToCellName(col, w.row)
	w.err = w.f.SetCellStyle(SheetName, cell, cell, styleID)
}

func (w *sheetWriter) heading(title string) {
	w.row++
	w.set(1, title)
	w.style(1, w.section)
	if w.err == nil {
		w.err = w.f.MergeCell(SheetName, fmt.Sprintf("A%d", w.row), fmt.Sprintf("B%d", w.row))
	}
	w.row++
}

func (w *sheetWriter) line(label string, value interface{}) {
	w.set(1, label)
	w.style(1, w.label)
	w.set(2, value)
	w.row++
}

// Write renders the itinerary workbook into out.
func Write(out io.Writer, it Itinerary) error {
	f, err := build(it)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

// SaveToDir writes the workbook into dir and returns the file path.
func SaveToDir(dir string, it Itinerary) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}
	f, err := build(it)
	if err != nil {
		return "", err
	}
	defer f.Close()

	path := filepath.Join(dir, FileName(it))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}
	return path, nil
}

// FileName is the suggested download name.
func FileName(it Itinerary) string {
	if it.TransactionID != "" {
		return fmt.Sprintf("itinerary_%s.xlsx", it.TransactionID)
	}
	return fmt.Sprintf("itinerary_%s.xlsx", it.SessionID)
}

func build(it Itinerary) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	title, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	section, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	label, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	w := &sheetWriter{f: f, row: 1, section: section, label: label}

	w.set(1, "Travel Itinerary")
	w.style(1, title)
	if w.err == nil {
		w.err = f.MergeCell(SheetName, "A1", "B1")
	}
	w.row++
	generated := it.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	w.line("Generated", generated.Format(dateTimeLayout))
	if it.TransactionID != "" {
		w.line("Transaction", it.TransactionID)
	}

	a := it.Aggregate
	if a == nil {
		a = booking.NewAggregate()
	}

	if fl := a.Flight(); fl != nil {
		w.heading("Flight")
		w.line("Airline", fl.Airline)
		w.line("Route", fmt.Sprintf("%s → %s", fl.Origin, fl.Destination))
		w.line("Departure", fl.DepartureTime)
		w.line("Arrival", fl.ArrivalTime)
		w.line("Duration", fl.Duration)
		w.line("Class", fl.CabinClass)
		w.line("Passengers", fl.Passengers)
		w.line("Price", fl.Price)
	}

	if acc := a.Accommodation(); acc != nil {
		stay := acc.Stay()
		w.heading(stayTitle(acc))
		w.line("Name", stay.Name)
		w.line("Location", stay.Location)
		w.line("Check-in", stay.CheckIn.Format(dateLayout))
		w.line("Check-out", stay.CheckOut.Format(dateLayout))
		w.line("Nights", booking.Nights(stay.CheckIn, stay.CheckOut))
		switch v := acc.(type) {
		case *models.HotelSelection:
			w.line("Room", v.RoomType)
		case *models.HostelSelection:
			w.line("Bed", v.BedType)
		}
		w.line("Guests", stay.Guests)
		w.line("Price per night", stay.PricePerNight)
		w.line("Total", stay.TotalPrice)
	}

	if cab := a.Cab(); cab != nil {
		w.heading("Cab")
		w.line("Type", cab.CabType)
		w.line("Pickup", cab.PickupLocation)
		w.line("Drop-off", cab.DropoffLocation)
		w.line("Pickup time", cab.PickupTime.Format(dateTimeLayout))
		w.line("Distance", cab.Distance)
		if cab.DriverName != "" {
			w.line("Driver", cab.DriverName)
		}
		if cab.VehicleNumber != "" {
			w.line("Vehicle", cab.VehicleNumber)
		}
		w.line("Price", cab.Price)
	}

	rate := it.TaxRate
	if rate <= 0 {
		rate = booking.DefaultTaxRate
	}
	w.heading("Payment Summary")
	w.line("Subtotal", it.Summary.Subtotal)
	w.line(fmt.Sprintf("Tax (%s%%)", strconv.FormatFloat(math.Round(rate*10000)/100, 'f', -1, 64)), it.Summary.Tax)
	w.line("Total", it.Summary.Total)

	if w.err == nil {
		w.err = f.SetColWidth(SheetName, "A", "A", 22)
	}
	if w.err == nil {
		w.err = f.SetColWidth(SheetName, "B", "B", 36)
	}
	if w.err != nil {
		f.Close()
		return nil, fmt.Errorf("error filling itinerary: %w", w.err)
	}
	return f, nil
}

func stayTitle(acc models.Accommodation) string {
	if acc.Kind() == models.AccommodationHostel {
		return "Stay (Hostel)"
	}
	return "Stay (Hotel)"
}
