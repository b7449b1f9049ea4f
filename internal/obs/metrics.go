package obs

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func MetricsHandler() http.Handler { return promhttp.Handler() }

var (
	authOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "keyfold_auth_ops_total",
		Help: "Credential operations by outcome.",
	}, []string{"op", "result"})

	authOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "keyfold_auth_op_duration_seconds",
		Help:    "Credential operation latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
)

// ObserveAuthOp records one credential operation. result should be "ok" or an
// error kind, never anything derived from user input.
func ObserveAuthOp(op, result string, started time.Time) {
	authOpsTotal.WithLabelValues(op, result).Inc()
	authOpDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}
