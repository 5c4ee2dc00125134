// Package metrics defines and registers all custom Prometheus metrics
// for the store system API. It is the single source of truth for metric
// names, labels, and help strings.
//
// Metrics are registered with the default Prometheus registry at import
// time via promauto; the router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "shopmaster"

// LoginsTotal counts authentication attempts.
// Label:
//   - result: "success" or "failure"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// SessionsActive tracks the number of live sessions in this process.
var SessionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Current number of live sessions.",
	},
)

// StoresProvisionedTotal counts newly provisioned stores.
// Label:
//   - brand_id: the template used to seed the catalog, or "custom"
var StoresProvisionedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stores_provisioned_total",
		Help:      "Total number of stores provisioned, by brand template.",
	},
	[]string{"brand_id"},
)

// CheckoutsTotal counts checkout requests.
// Label:
//   - result: "ok" (sales recorded), "replayed" (idempotency hit), or
//     "empty" (no cart or no bound store)
var CheckoutsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkouts_total",
		Help:      "Total number of checkouts, by result.",
	},
	[]string{"result"},
)

// SalesRecordedTotal counts individual sale entries appended to
// transaction logs.
var SalesRecordedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sales_recorded_total",
		Help:      "Total number of sale entries recorded across all stores.",
	},
)

// CheckoutDuration measures how long a checkout takes end-to-end.
// Label:
//   - result: same values as CheckoutsTotal
var CheckoutDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "checkout_duration_seconds",
		Help:      "Duration of checkout from request to persistence.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"result"},
)

// DayEndsTotal counts day-end archive operations.
var DayEndsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "day_ends_total",
		Help:      "Total number of day-end archive operations.",
	},
)
