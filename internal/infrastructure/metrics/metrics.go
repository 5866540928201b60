// Package metrics holds the Prometheus collectors of the notification
// pipeline and the reminder sweep.
package metrics

import (
	"assetloan-backend/internal/domain/ledger"
	"assetloan-backend/internal/domain/loan"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "assetloan"

// Collectors implements notify.Recorder and reminder.Recorder.
type Collectors struct {
	notifications *prometheus.CounterVec
	reminders     *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	dropped       prometheus.Counter
}

// New registers the collectors on reg; pass prometheus.DefaultRegisterer in
// production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Collectors {
	f := promauto.With(reg)
	return &Collectors{
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification jobs by event, audience and outcome.",
		}, []string{"event", "audience", "outcome"}),
		reminders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminders_sent_total",
			Help:      "Reminders recorded as sent, by trigger.",
		}, []string{"trigger"}),
		sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reminder_sweeps_total",
			Help:      "Reminder sweeps by outcome.",
		}, []string{"outcome"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_queue_depth",
			Help:      "Batches waiting for a dispatch worker.",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_dropped_total",
			Help:      "Batches dropped because the dispatcher was full or stopped.",
		}),
	}
}

func (c *Collectors) Notification(event loan.Event, audience ledger.Audience, outcome string) {
	c.notifications.WithLabelValues(string(event), string(audience), outcome).Inc()
}

func (c *Collectors) QueueDepth(n int) { c.queueDepth.Set(float64(n)) }

func (c *Collectors) Dropped() { c.dropped.Inc() }

func (c *Collectors) ReminderSent(trigger string) { c.reminders.WithLabelValues(trigger).Inc() }

func (c *Collectors) Sweep(outcome string) { c.sweeps.WithLabelValues(outcome).Inc() }
