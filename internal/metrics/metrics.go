package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal      *prometheus.CounterVec
	HTTPRequestDuration    *prometheus.HistogramVec
	HTTPActiveRequests     prometheus.Gauge
	RateLimitExceededTotal *prometheus.CounterVec

	// Content
	PostsCreatedTotal      prometheus.Counter
	RepliesCreatedTotal    prometheus.Counter
	ContentRejectionsTotal *prometheus.CounterVec
	ThreadAllocationsTotal *prometheus.CounterVec

	// POI cache
	POICacheLookupsTotal *prometheus.CounterVec
	POIFetchesTotal      *prometheus.CounterVec
	POIFetchDuration     *prometheus.HistogramVec
	POIsStoredTotal      *prometheus.CounterVec

	// Background jobs
	JobRunsTotal   *prometheus.CounterVec
	JobRunDuration *prometheus.HistogramVec
	RewardsExpired prometheus.Counter

	// Growth and abuse
	ReferralsClaimedTotal prometheus.Counter
	ScreenshotsTotal      prometheus.Counter
	ScreenshotLockouts    prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPActiveRequests: promauto.NewGauge(
				prometheus.GaugeOpts{
					Name: "http_active_requests",
					Help: "Number of in-flight HTTP requests",
				},
			),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"path"},
			),

			PostsCreatedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hushmap_posts_created_total",
					Help: "Posts created",
				},
			),
			RepliesCreatedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hushmap_replies_created_total",
					Help: "Replies created",
				},
			),
			ContentRejectionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hushmap_content_rejections_total",
					Help: "Submissions rejected by the content validator",
				},
				[]string{"reason"},
			),
			ThreadAllocationsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hushmap_thread_allocations_total",
					Help: "Reply thread id allocations by outcome",
				},
				[]string{"outcome"},
			),

			POICacheLookupsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hushmap_poi_cache_lookups_total",
					Help: "POI reads by cache state",
				},
				[]string{"state"},
			),
			POIFetchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hushmap_poi_fetches_total",
					Help: "External POI provider fetches by outcome",
				},
				[]string{"source", "outcome"},
			),
			POIFetchDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "hushmap_poi_fetch_duration_seconds",
					Help:    "External POI provider latency",
					Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
				},
				[]string{"source"},
			),
			POIsStoredTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hushmap_pois_stored_total",
					Help: "POI rows written to the cache",
				},
				[]string{"source"},
			),

			JobRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "hushmap_job_runs_total",
					Help: "Scheduled job runs by status",
				},
				[]string{"job", "status"},
			),
			JobRunDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "hushmap_job_run_duration_seconds",
					Help:    "Scheduled job duration",
					Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
				},
				[]string{"job"},
			),
			RewardsExpired: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hushmap_rewards_expired_total",
					Help: "Rewards marked expired",
				},
			),
			ReferralsClaimedTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hushmap_referrals_claimed_total",
					Help: "Referral codes redeemed",
				},
			),
			ScreenshotsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hushmap_screenshots_total",
					Help: "Screenshots reported by clients",
				},
			),
			ScreenshotLockouts: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "hushmap_screenshot_lockouts_total",
					Help: "Lockouts started for too many screenshots",
				},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use
func Get() *Metrics {
	return Initialize()
}
