package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tripcart"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	flightSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "flight_searches_total",
			Help:      "Flight searches by result source (api, cache, error, stale).",
		},
		[]string{"source"},
	)

	bookingsConfirmed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_confirmed_total",
			Help:      "Confirmed bookings by payment method.",
		},
		[]string{"method"},
	)

	paymentsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_failed_total",
			Help:      "Failed payment attempts by reason.",
		},
		[]string{"reason"},
	)

	bookingRevenue = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_revenue_total",
			Help:      "Sum of confirmed booking totals including tax.",
		},
	)

	mirrorTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_tasks_total",
			Help:      "Spreadsheet mirror task outcomes.",
		},
		[]string{"outcome"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, flightSearches, bookingsConfirmed, paymentsFailed, bookingRevenue, mirrorTasks)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

func IncSearch(source string) {
	flightSearches.WithLabelValues(source).Inc()
}

// ObserveBooking records a confirmed booking and its total.
func ObserveBooking(method string, total int64) {
	bookingsConfirmed.WithLabelValues(method).Inc()
	bookingRevenue.Add(float64(total))
}

func IncPaymentFailed(reason string) {
	paymentsFailed.WithLabelValues(reason).Inc()
}

func IncMirrorTask(outcome string) {
	mirrorTasks.WithLabelValues(outcome).Inc()
}
