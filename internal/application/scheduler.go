package application

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kudaline/dispatch-service/internal/logger"
	"github.com/kudaline/dispatch-service/internal/metrics"
	"github.com/kudaline/dispatch-service/internal/repository"
)

// Assigner is the assignment routine the sweep re-invokes per order.
type Assigner interface {
	AssignRider(ctx context.Context, orderID uuid.UUID) error
}

// Scheduler periodically re-runs assignment for every order still
// without a rider. Per-order failures are logged and never abort the
// sweep; an order can stay unassigned across many sweeps.
type Scheduler struct {
	orders   repository.OrderRepo
	assigner Assigner
	interval time.Duration
	metrics  *metrics.Metrics
}

func NewScheduler(orders repository.OrderRepo, assigner Assigner, interval time.Duration, m *metrics.Metrics) *Scheduler {
	return &Scheduler{orders: orders, assigner: assigner, interval: interval, metrics: m}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		t := time.NewTicker(s.interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Sweep(ctx)
			}
		}
	}()
}

// Sweep runs one dispatch pass over all unassigned orders.
func (s *Scheduler) Sweep(ctx context.Context) {
	s.metrics.SchedulerSweeps.Inc()

	orders, err := s.orders.ListUnassigned(ctx)
	if err != nil {
		logger.Warn("sweep: list unassigned failed", "err", err)
		return
	}
	if len(orders) == 0 {
		return
	}
	logger.Info("sweep: retrying assignment", "orders", len(orders))

	for _, o := range orders {
		if err := s.assigner.AssignRider(ctx, o.ID); err != nil {
			logger.Warn("sweep: assignment failed", "order_id", o.ID, "err", err)
		}
	}
}
