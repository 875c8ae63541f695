// Package metrics holds the Prometheus collectors shared by the gateway.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "shopdash"

var (
	BackendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backend_requests_total",
		Help:      "Requests issued to the storefront backend by method and outcome.",
	}, []string{"method", "outcome"})

	ViewFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_fetches_total",
		Help:      "List view fetches by view and outcome.",
	}, []string{"view", "outcome"})

	Mutations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "view_mutations_total",
		Help:      "Create, update and delete actions by view, action and outcome.",
	}, []string{"view", "action", "outcome"})

	Toasts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "toasts_total",
		Help:      "Toast notifications raised by level.",
	}, []string{"level"})

	MountedViews = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "mounted_views",
		Help:      "List views currently mounted across sessions.",
	})
)

// Register adds every collector to reg. Collectors already registered are skipped.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{BackendRequests, ViewFetches, Mutations, Toasts, MountedViews} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// Outcome labels a result.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
