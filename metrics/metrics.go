// Package metrics exposes the client's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

var (
	// CheckoutOrders counts per-course payment calls.
	CheckoutOrders = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_checkout_orders_total",
			Help: "Number of per-course orders sent to the backend",
		},
		[]string{"status"},
	)

	CheckoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_checkout_duration_seconds",
			Help:    "Duration of a whole cart checkout in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"status"},
	)

	ProgressReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_progress_reports_total",
			Help: "Number of lecture completions reported to the backend",
		},
		[]string{"status"},
	)

	EnrollmentSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_enrollment_syncs_total",
			Help: "Number of purchased course syncs from the backend",
		},
		[]string{"status"},
	)

	CertificatesIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_certificates_issued_total",
			Help: "Number of certificates generated",
		},
	)
)

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}

func RecordCheckoutOrder(err error) {
	CheckoutOrders.WithLabelValues(status(err)).Inc()
}

// RecordCheckoutDuration records the duration of a checkout in seconds.
func RecordCheckoutDuration(err error, seconds float64) {
	CheckoutDuration.WithLabelValues(status(err)).Observe(seconds)
}

func RecordProgressReport(err error) {
	ProgressReports.WithLabelValues(status(err)).Inc()
}

func RecordEnrollmentSync(err error) {
	EnrollmentSyncs.WithLabelValues(status(err)).Inc()
}

func RecordCertificate() {
	CertificatesIssued.Inc()
}
