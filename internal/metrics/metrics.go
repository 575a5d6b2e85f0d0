package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ReservationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservations_total",
			Help: "Reservation attempts by result.",
		},
		[]string{"result"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resolutions_total",
			Help: "Outcome resolutions by outcome and result.",
		},
		[]string{"outcome", "result"},
	)

	ReaperRunsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reaper_runs_total",
			Help: "Completed timeout reaper runs.",
		},
	)

	ReaperOrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reaper_orders_total",
			Help: "Orders handled by the timeout reaper, by result.",
		},
		[]string{"result"},
	)

	ReaperRunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reaper_run_duration_seconds",
			Help:    "Wall-clock duration of timeout reaper runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(
		ReservationsTotal,
		ResolutionsTotal,
		ReaperRunsTotal,
		ReaperOrdersTotal,
		ReaperRunDuration,
	)
}

// Handler serves the default registry for the metrics side port.
func Handler() http.Handler {
	return promhttp.Handler()
}
