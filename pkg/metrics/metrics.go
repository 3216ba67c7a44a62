// Package metrics exports instrument command statistics to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/inctrl/inctrl-go/pkg/scpi"
)

const namespace = "inctrl"

// Collector records dispatcher operations. It implements scpi.Observer.
type Collector struct {
	commands   *prometheus.CounterVec
	errors     *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	replyBytes prometheus.Counter
}

// NewCollector creates the metrics and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Instrument commands dispatched, by operation.",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_errors_total",
			Help:      "Instrument commands that failed, by operation.",
		}, []string{"op"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Round trip time of instrument commands.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"op"}),
		replyBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reply_bytes_total",
			Help:      "Bytes received in instrument replies.",
		}),
	}
	reg.MustRegister(c.commands, c.errors, c.latency, c.replyBytes)
	return c
}

// ObserveCommand implements scpi.Observer.
func (c *Collector) ObserveCommand(kind scpi.Kind, elapsed time.Duration, replyBytes int, err error) {
	op := kind.String()
	c.commands.WithLabelValues(op).Inc()
	c.latency.WithLabelValues(op).Observe(elapsed.Seconds())
	if err != nil {
		c.errors.WithLabelValues(op).Inc()
		return
	}
	c.replyBytes.Add(float64(replyBytes))
}

// Handler serves the metrics gathered by g. A nil g uses
// prometheus.DefaultGatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

var _ scpi.Observer = (*Collector)(nil)
