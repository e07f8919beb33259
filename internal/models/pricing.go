package models

// Search result sources reported by the pricing function.
const (
	SourceAPI   = "api"
	SourceCache = "cache"
)

// Prediction recommendations.
const (
	RecommendBuy     = "buy"
	RecommendWait    = "wait"
	RecommendNeutral = "neutral"
)

// Cabin classes accepted by the pricing function.
const (
	CabinEconomy        = "economy"
	CabinPremiumEconomy = "premium_economy"
	CabinBusiness       = "business"
	CabinFirst          = "first"
)

// FlightSearchRequest is sent to the pricing function. Dates are YYYY-MM-DD.
type FlightSearchRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate,omitempty"`
	CabinClass    string `json:"cabinClass"`
	Passengers    int    `json:"passengers"`
}

// FlightOffer is one priced flight returned by the pricing function.
type FlightOffer struct {
	ID            string `json:"id"`
	Airline       string `json:"airline"`
	FlightNumber  string `json:"flightNumber,omitempty"`
	Origin        string `json:"origin,omitempty"`
	Destination   string `json:"destination,omitempty"`
	DepartureTime string `json:"departureTime"`
	ArrivalTime   string `json:"arrivalTime"`
	Duration      string `json:"duration"`
	Stops         int    `json:"stops"`
	Price         int64  `json:"price"`
	CabinClass    string `json:"cabinClass,omitempty"`
}

// FlightSearchResponse is the pricing function reply. Source is advisory only.
type FlightSearchResponse struct {
	Flights []FlightOffer `json:"flights"`
	Source  string        `json:"source"`
}

// PricePrediction is one day of the predicted fare window for a route.
type PricePrediction struct {
	Date           string `json:"date"`
	LowestPrice    int64  `json:"lowestPrice"`
	HighestPrice   int64  `json:"highestPrice"`
	AveragePrice   int64  `json:"averagePrice"`
	Recommendation string `json:"recommendation"`
	Confidence     int    `json:"confidence"`
}
