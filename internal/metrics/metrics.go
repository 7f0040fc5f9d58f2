// Package metrics declares Prometheus collectors and the optional scrape endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared by the outcome counters.
const (
	OutcomeSuccess     = "success"
	OutcomeInvalid     = "invalid"
	OutcomeRateLimited = "rate_limited"
	OutcomeDuplicate   = "duplicate"
	OutcomeError       = "error"
	OutcomeCached      = "cached"
)

// Auth metrics
var (
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavorbot_login_attempts_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)

	Registrations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavorbot_registrations_total",
			Help: "Registration attempts by outcome",
		},
		[]string{"outcome"},
	)

	SessionActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "flavorbot_session_active",
			Help: "1 while a user is logged in",
		},
	)
)

// Inventory and recipe metrics
var (
	InventoryOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavorbot_inventory_ops_total",
			Help: "Fridge item operations by kind and outcome",
		},
		[]string{"op", "outcome"},
	)

	RecipeRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flavorbot_recipe_requests_total",
			Help: "Recipe generation requests by outcome",
		},
		[]string{"outcome"},
	)

	RecipeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flavorbot_recipe_generation_seconds",
			Help:    "Latency of the external recipe generator",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
	)
)
