// Package monitoring mirrors the registry's stats block into prometheus so
// the dashboard numbers can be scraped and alerted on.
package monitoring

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sakoon/console-backend/internal/session"
)

var (
	activeCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_active_calls",
		Help: "Current number of active call sessions",
	})

	activeChats = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_active_chats",
		Help: "Current number of active chat sessions",
	})

	waitingQueue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_waiting_queue",
		Help: "Current combined waiting queue length",
	})

	todaysRevenue = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "console_todays_revenue",
		Help: "Revenue accumulated today",
	})

	sessionsConnected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_sessions_connected_total",
		Help: "Sessions promoted from waiting to active",
	}, []string{"kind"})

	sessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_sessions_ended_total",
		Help: "Sessions ended by the operator",
	}, []string{"kind"})

	sessionsExpired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "console_sessions_expired_total",
		Help: "Sessions that ran out of plan time",
	}, []string{"kind"})

	arrivalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_arrivals_total",
		Help: "Synthetic plan purchases recorded",
	})

	messagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "console_chat_messages_total",
		Help: "Admin chat messages appended",
	})
)

// Collector consumes registry events and keeps the prometheus view current.
type Collector struct {
	events <-chan session.Event
}

func NewCollector(events <-chan session.Event) *Collector {
	return &Collector{events: events}
}

// Run processes events until ctx is cancelled. The caller runs it in a
// goroutine.
func (c *Collector) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.apply(ev)
		}
	}
}

func (c *Collector) apply(ev session.Event) {
	switch ev.Type {
	case session.EventConnected:
		sessionsConnected.WithLabelValues(ev.Kind.String()).Inc()
	case session.EventEnded:
		sessionsEnded.WithLabelValues(ev.Kind.String()).Inc()
	case session.EventExpired:
		sessionsExpired.WithLabelValues(ev.Kind.String()).Inc()
	case session.EventArrival:
		arrivalsTotal.Inc()
	case session.EventMessage:
		messagesTotal.Inc()
	}

	activeCalls.Set(float64(ev.Stats.ActiveCalls))
	activeChats.Set(float64(ev.Stats.ActiveChats))
	waitingQueue.Set(float64(ev.Stats.WaitingQueue))
	revenue, _ := ev.Stats.TodaysRevenue.Float64()
	todaysRevenue.Set(revenue)
}
