package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastore_reservations_total",
		Help: "Reservation attempts by outcome",
	}, []string{"outcome"})

	ReserveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vastore_reserve_latency_seconds",
		Help:    "Latency of listing reservation",
		Buckets: prometheus.DefBuckets,
	})

	InvoicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastore_invoices_total",
		Help: "Invoice creation attempts by outcome",
	}, []string{"outcome"})

	InvoiceLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vastore_invoice_latency_seconds",
		Help:    "Latency of the payment processor invoice call",
		Buckets: prometheus.DefBuckets,
	})

	IPNTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastore_ipn_total",
		Help: "Payment notifications by payment class",
	}, []string{"class"})

	IPNRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastore_ipn_rejected_total",
		Help: "Payment notifications rejected before processing",
	}, []string{"reason"})

	ListingsSoldTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vastore_listings_sold_total",
		Help: "Listings marked sold",
	})

	OversellConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vastore_oversell_conflicts_total",
		Help: "Paid orders whose listings were already sold to another order",
	})

	GuideEmailsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastore_guide_emails_total",
		Help: "Welcome guide emails by outcome",
	}, []string{"outcome"})

	AdminLoginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastore_admin_logins_total",
		Help: "Admin login attempts by outcome",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
