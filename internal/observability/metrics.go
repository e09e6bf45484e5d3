package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	apiRequestsTotal         *prometheus.CounterVec
	apiLatencySeconds        *prometheus.HistogramVec
	apiErrorsTotal           *prometheus.CounterVec
	certificatesIssuedTotal  *prometheus.CounterVec
	certificateRenderSeconds *prometheus.HistogramVec
	certificateValidations   *prometheus.CounterVec
	templateUploadSeconds    prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigea_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigea_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigea_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		certificatesIssuedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigea_certificates_issue_total",
			Help: "Certificate issuance attempts by outcome.",
		}, []string{"outcome"})

		certificateRenderSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sigea_certificate_render_seconds",
			Help:    "Time spent composing and storing certificate PDFs.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"template_type", "outcome"})

		certificateValidations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sigea_certificate_validations_total",
			Help: "Public certificate validation lookups by result.",
		}, []string{"result"})

		templateUploadSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sigea_template_upload_seconds",
			Help:    "Time spent storing certificate templates.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			certificatesIssuedTotal,
			certificateRenderSeconds,
			certificateValidations,
			templateUploadSeconds,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// CertificatesIssued counts issuance attempts labelled by outcome.
func CertificatesIssued() *prometheus.CounterVec {
	RegisterMetrics()
	return certificatesIssuedTotal
}

// CertificateRenderDuration observes rendering latency.
func CertificateRenderDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return certificateRenderSeconds
}

// CertificateValidations counts public validation lookups.
func CertificateValidations() *prometheus.CounterVec {
	RegisterMetrics()
	return certificateValidations
}

func TemplateUploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return templateUploadSeconds
}
