// Package metrics exposes Prometheus collectors for site builds and the preview server.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	docsitePagesTotal                  *prometheus.CounterVec
	docsiteDocumentFetchesTotal        *prometheus.CounterVec
	docsiteDocumentFetchDurationSecond prometheus.Histogram
	docsiteImagesTotal                 *prometheus.CounterVec
	docsiteImageBytesTotal             *prometheus.CounterVec
	docsiteRateLimitDelaySeconds       *prometheus.HistogramVec
	docsiteFrontierPending             prometheus.Gauge
	docsiteBuildDurationSeconds        prometheus.Gauge
	docsiteLastBuildTimestampSeconds   prometheus.Gauge
	httpRequestsTotal                  *prometheus.CounterVec
	httpRequestDurationSeconds         *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		docsitePagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsite_pages_total",
				Help: "Total number of pages handled, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		docsiteDocumentFetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsite_document_fetches_total",
				Help: "Total number of document fetches, labeled by result.",
			},
			[]string{"result"},
		)

		docsiteDocumentFetchDurationSecond = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docsite_document_fetch_duration_seconds",
				Help:    "Histogram of document fetch latencies.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		)

		docsiteImagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsite_images_total",
				Help: "Total number of image references processed, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		docsiteImageBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docsite_image_bytes_total",
				Help: "Total number of image bytes written, labeled by source.",
			},
			[]string{"source"},
		)

		docsiteRateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docsite_rate_limit_delay_seconds",
				Help:    "Time image downloads spent waiting on the per-site rate limiter.",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"site"},
		)

		docsiteFrontierPending = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsite_frontier_pending",
				Help: "Number of documents discovered but not yet fetched.",
			},
		)

		docsiteBuildDurationSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsite_build_duration_seconds",
				Help: "Duration of the most recent build.",
			},
		)

		docsiteLastBuildTimestampSeconds = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "docsite_last_build_timestamp_seconds",
				Help: "Unix time the most recent build finished.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePage counts a page outcome such as "written" or "failed".
func ObservePage(outcome string) {
	Init()
	docsitePagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDocumentFetch records a document fetch result and its latency.
func ObserveDocumentFetch(result string, duration time.Duration) {
	Init()
	docsiteDocumentFetchesTotal.WithLabelValues(result).Inc()
	docsiteDocumentFetchDurationSecond.Observe(duration.Seconds())
}

// ObserveImage counts an image reference. source is "remote" or "inline".
func ObserveImage(source, outcome string, bytesWritten int) {
	Init()
	docsiteImagesTotal.WithLabelValues(source, outcome).Inc()
	if bytesWritten > 0 {
		docsiteImageBytesTotal.WithLabelValues(source).Add(float64(bytesWritten))
	}
}

// ObserveRateLimitDelay records how long a download waited for a token.
func ObserveRateLimitDelay(site string, delay time.Duration) {
	Init()
	docsiteRateLimitDelaySeconds.WithLabelValues(SanitizeSite(site)).Observe(delay.Seconds())
}

// SetFrontierPending reports the number of queued documents.
func SetFrontierPending(n int) {
	Init()
	docsiteFrontierPending.Set(float64(n))
}

// ObserveBuild records the duration and completion time of a build.
func ObserveBuild(duration time.Duration, finished time.Time) {
	Init()
	docsiteBuildDurationSeconds.Set(duration.Seconds())
	docsiteLastBuildTimestampSeconds.Set(float64(finished.Unix()))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
