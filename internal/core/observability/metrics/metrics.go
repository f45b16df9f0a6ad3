// Package metrics exports simulation activity as Prometheus collectors. A Collector is an
// engine observer and an event bus observer at the same time.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/zeusync/robosim/internal/core/action"
	"github.com/zeusync/robosim/internal/core/engine"
	"github.com/zeusync/robosim/internal/core/events/bus"
)

// Status labels of robosim_actions_total.
const (
	StatusOK          = "ok"
	StatusIllegal     = "illegal"
	StatusUnsupported = "unsupported"
	StatusError       = "error"
)

type Collector struct {
	actions  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	events   *prometheus.CounterVec
	ticks    prometheus.Counter
	bodies   prometheus.Gauge
	links    prometheus.Gauge
	simTime  prometheus.Gauge
}

var (
	_ engine.Observer      = (*Collector)(nil)
	_ bus.EventBusObserver = (*Collector)(nil)
)

func New() *Collector {
	return &Collector{
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robosim_actions_total",
				Help: "Total number of performed actions",
			},
			[]string{"kind", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "robosim_action_duration_seconds",
				Help:    "Action execution duration in seconds, nested actions included",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
			[]string{"kind"},
		),
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "robosim_events_total",
				Help: "Total number of lifecycle events published",
			},
			[]string{"type"},
		),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "robosim_ticks_total",
			Help: "Total number of simulation steps",
		}),
		bodies: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robosim_live_bodies",
			Help: "Live bodies after the last step",
		}),
		links: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robosim_live_links",
			Help: "Live link halves after the last step",
		}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "robosim_simulated_seconds",
			Help: "Logical clock after the last step",
		}),
	}
}

// Register registers every collector with reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, col := range []prometheus.Collector{c.actions, c.duration, c.events, c.ticks, c.bodies, c.links, c.simTime} {
		if err := reg.Register(col); err != nil {
			return err
		}
	}
	return nil
}

func (c *Collector) OnAction(kind action.Kind, elapsed time.Duration, err error) {
	c.actions.WithLabelValues(kind.String(), Status(err)).Inc()
	c.duration.WithLabelValues(kind.String()).Observe(elapsed.Seconds())
}

func (c *Collector) OnTick(s engine.Snapshot) {
	c.ticks.Inc()
	c.bodies.Set(float64(len(s.Bodies)))
	c.links.Set(float64(len(s.Links)))
	c.simTime.Set(s.T)
}

func (c *Collector) OnPublish(eventType string, _ bus.Event) {
	c.events.WithLabelValues(eventType).Inc()
}

func (c *Collector) OnDelivered(string, int, error, time.Duration) {}

// Status maps an action error to its label.
func Status(err error) string {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, action.ErrIllegalAction):
		return StatusIllegal
	case errors.Is(err, action.ErrUnsupportedAction):
		return StatusUnsupported
	default:
		return StatusError
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
