package booking

import (
	"math"
	"time"
)

// DefaultTaxRate is the flat surcharge applied to every booking regardless of
// leg composition. Service-category rates can be plugged in through TaxPolicy.
const DefaultTaxRate = 0.18

// MaxPrice is the largest single price, in rupees, accepted for a leg or a
// night of stay.
const MaxPrice int64 = 100_000_000

// MaxAmount caps every derived amount. Sums and products that would overflow
// int64 saturate here, so totals are never negative.
const MaxAmount int64 = math.MaxInt64

// TaxPolicy computes the tax owed on a subtotal in whole currency units.
type TaxPolicy interface {
	Tax(subtotal int64) int64
}

// FlatTax applies one rate to the whole subtotal.
type FlatTax struct {
	Rate float64
}

func (t FlatTax) Tax(subtotal int64) int64 {
	if subtotal <= 0 || t.Rate <= 0 {
		return 0
	}
	tax := math.Round(float64(subtotal) * t.Rate)
	if tax >= float64(MaxAmount) {
		return MaxAmount
	}
	return int64(tax)
}

// DefaultTax is the policy used by TaxAmount and FinalAmount.
var DefaultTax TaxPolicy = FlatTax{Rate: DefaultTaxRate}

// Summary is the price breakdown shown on review, payment and export.
type Summary struct {
	Flight        int64   `json:"flight"`
	Accommodation int64   `json:"accommodation"`
	Cab           int64   `json:"cab"`
	Subtotal      int64   `json:"subtotal"`
	Tax           int64   `json:"tax"`
	Total         int64   `json:"total"`
	TaxRate       float64 `json:"tax_rate,omitempty"`
}

// Calculator derives prices from an aggregate using a tax policy.
type Calculator struct {
	Tax TaxPolicy
}

// NewCalculator returns a calculator with a flat rate; rate <= 0 falls back
// to DefaultTaxRate.
func NewCalculator(rate float64) Calculator {
	if rate <= 0 {
		rate = DefaultTaxRate
	}
	return Calculator{Tax: FlatTax{Rate: rate}}
}

func (c Calculator) policy() TaxPolicy {
	if c.Tax == nil {
		return DefaultTax
	}
	return c.Tax
}

// Summarize returns the per-leg prices, subtotal, tax and total.
func (c Calculator) Summarize(a *Aggregate) Summary {
	s := Summary{}
	if f := a.Flight(); f != nil {
		s.Flight = nonNegative(f.Price)
	}
	if acc := a.Accommodation(); acc != nil {
		s.Accommodation = nonNegative(acc.Stay().TotalPrice)
	}
	if cab := a.Cab(); cab != nil {
		s.Cab = nonNegative(cab.Price)
	}
	s.Subtotal = addAmounts(addAmounts(s.Flight, s.Accommodation), s.Cab)
	s.Tax = nonNegative(c.policy().Tax(s.Subtotal))
	s.Total = addAmounts(s.Subtotal, s.Tax)
	if flat, ok := c.policy().(FlatTax); ok {
		s.TaxRate = flat.Rate
	}
	return s
}

// TotalPrice sums the prices of the present legs. Absent legs count as zero.
func TotalPrice(a *Aggregate) int64 {
	return Calculator{}.Summarize(a).Subtotal
}

// TaxAmount is round(total * DefaultTaxRate).
func TaxAmount(total int64) int64 {
	return DefaultTax.Tax(total)
}

// FinalAmount is total plus TaxAmount(total).
func FinalAmount(total int64) int64 {
	return addAmounts(total, TaxAmount(total))
}

// Nights returns the number of billable nights between check-in and
// check-out, rounded up and never less than one.
func Nights(checkIn, checkOut time.Time) int {
	if !checkOut.After(checkIn) {
		return 1
	}
	days := checkOut.Sub(checkIn).Hours() / 24
	n := int(math.Ceil(days))
	if n < 1 {
		return 1
	}
	return n
}

// StayTotal is the nightly price times Nights.
func StayTotal(pricePerNight int64, checkIn, checkOut time.Time) int64 {
	return mulAmount(nonNegative(pricePerNight), int64(Nights(checkIn, checkOut)))
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

// addAmounts adds two non-negative amounts, saturating at MaxAmount.
func addAmounts(a, b int64) int64 {
	if a > MaxAmount-b {
		return MaxAmount
	}
	return a + b
}

// mulAmount multiplies a non-negative amount by a positive count, saturating
// at MaxAmount.
func mulAmount(v, n int64) int64 {
	if n > 0 && v > MaxAmount/n {
		return MaxAmount
	}
	return v * n
}
