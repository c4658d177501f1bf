package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Build metrics
	BuildRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_build_requests_total",
			Help: "Total number of transaction build requests",
		},
		[]string{"status"},
	)

	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_swap_build_duration_seconds",
			Help:    "Transaction build duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"status"},
	)

	LegsPerBuild = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_swap_legs_per_build",
		Help:    "Number of swap legs packed into one transaction",
		Buckets: []float64{1, 2, 3},
	})

	Continuations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_swap_continuations_total",
		Help: "Total number of builds that returned a continuation",
	})

	// Route metrics
	RouteRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_route_requests_total",
			Help: "Total number of aggregator route resolutions per leg",
		},
		[]string{"status"},
	)

	RouteDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_swap_route_duration_seconds",
		Help:    "Quote plus swap-instructions round trip per leg",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	// Simulation metrics
	SimulationOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_simulation_outcomes_total",
			Help: "Simulation outcomes during compute unit estimation",
		},
		[]string{"outcome"}, // success, slippage, fallback
	)

	ComputeUnits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_swap_compute_units",
		Help:    "Compute unit limit set on built transactions",
		Buckets: []float64{100000, 200000, 400000, 600000, 800000, 1000000, 1400000, 1600000},
	})

	PriorityFee = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_swap_priority_fee_micro_lamports",
		Help:    "Compute unit price set on built transactions",
		Buckets: prometheus.ExponentialBuckets(1000, 4, 8),
	})

	PriorityFeeFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_swap_priority_fee_fallbacks_total",
		Help: "Total number of priority fee estimates that fell back to the default",
	})

	// Lookup table metrics
	LUTResolutions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_swap_lut_resolutions_total",
		Help: "Total number of lookup table resolutions hitting RPC",
	})

	LUTOmissions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portfolio_swap_lut_omissions_total",
		Help: "Total number of referenced lookup tables that could not be loaded",
	})

	// Submission metrics
	SubmissionAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_submission_attempts_total",
			Help: "Total number of send-and-confirm attempts",
		},
		[]string{"status"},
	)

	SubmissionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_submission_outcomes_total",
			Help: "Terminal submission outcomes",
		},
		[]string{"status"},
	)

	ConfirmationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "portfolio_swap_confirmation_duration_seconds",
		Help:    "Time from send to confirmation",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	})

	// Cache metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_cache_hits_total",
			Help: "Total number of market data cache hits",
		},
		[]string{"cache"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_cache_misses_total",
			Help: "Total number of market data cache misses",
		},
		[]string{"cache"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portfolio_swap_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_swap_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portfolio_swap_http_build_duration_seconds",
			Help:    "End to end build latency seen by API callers",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"kind"}, // transfer, swap, continuation, portfolio
	)
)
