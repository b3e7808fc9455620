package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the dispatch counters. Register once per process (or
// per test registry).
type Metrics struct {
	OrdersCreated   prometheus.Counter
	Transitions     *prometheus.CounterVec
	AssignAttempts  *prometheus.CounterVec
	SchedulerSweeps prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_orders_created_total",
			Help: "Total number of orders created",
		}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_tracking_transitions_total",
			Help: "Total number of accepted tracking transitions",
		}, []string{"status"}),
		AssignAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_assign_attempts_total",
			Help: "Total number of rider assignment attempts",
		}, []string{"result"}),
		SchedulerSweeps: factory.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_scheduler_sweeps_total",
			Help: "Total number of scheduler sweeps",
		}),
	}
}
