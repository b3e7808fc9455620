package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/metrics"
)

func TestSweep_RetriesUnassignedOrders(t *testing.T) {
	e := newEnv(nil, fixedDistance{km: 10})
	payer := uuid.New()
	e.store.wallets[payer] = 5000

	// No riders online: order is created unassigned.
	o, err := e.svc.CreateOrder(context.Background(), basicInput(payer))
	require.NoError(t, err)

	sched := NewScheduler(e.store, e.svc, time.Minute, metrics.New(prometheus.NewRegistry()))

	// First sweep finds nobody; not an error, order stays unassigned.
	sched.Sweep(context.Background())
	stored, _ := e.store.GetOrder(context.Background(), o.ID)
	require.False(t, stored.RiderAssigned)

	// A rider comes online; the next sweep picks the order up.
	r := rider(3.1319, 6.5244, 0)
	e.riders.candidates = []domain.RiderCandidate{r}
	sched.Sweep(context.Background())

	stored, _ = e.store.GetOrder(context.Background(), o.ID)
	require.True(t, stored.RiderAssigned)
	require.Equal(t, r.RiderID, *stored.RiderID)
}

func TestSweep_SkipsAssignedAndTerminalOrders(t *testing.T) {
	r := rider(3.1319, 6.5244, 0)
	e := newEnv([]domain.RiderCandidate{r}, fixedDistance{km: 10})

	assigned, _ := createAssigned(t, e, 5000)

	payer := uuid.New()
	e.store.wallets[payer] = 5000
	e.riders.candidates = nil
	cancelled, err := e.svc.CreateOrder(context.Background(), basicInput(payer))
	require.NoError(t, err)
	require.NoError(t, e.svc.Advance(context.Background(), cancelled.ID, domain.StatusCancelled, ""))

	unassigned, err := e.store.ListUnassigned(context.Background())
	require.NoError(t, err)
	require.Empty(t, unassigned)

	// The sweep leaves the assigned order untouched.
	sched := NewScheduler(e.store, e.svc, time.Minute, metrics.New(prometheus.NewRegistry()))
	sched.Sweep(context.Background())
	stored, _ := e.store.GetOrder(context.Background(), assigned.ID)
	require.Equal(t, r.RiderID, *stored.RiderID)
}

type countingAssigner struct {
	calls chan uuid.UUID
}

func (c *countingAssigner) AssignRider(_ context.Context, orderID uuid.UUID) error {
	c.calls <- orderID
	return nil
}

func TestStart_SweepsOnInterval(t *testing.T) {
	e := newEnv(nil, fixedDistance{km: 10})
	payer := uuid.New()
	e.store.wallets[payer] = 5000
	o, err := e.svc.CreateOrder(context.Background(), basicInput(payer))
	require.NoError(t, err)

	assigner := &countingAssigner{calls: make(chan uuid.UUID, 16)}
	sched := NewScheduler(e.store, assigner, 10*time.Millisecond, metrics.New(prometheus.NewRegistry()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sched.Start(ctx)

	select {
	case got := <-assigner.calls:
		require.Equal(t, o.ID, got)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never invoked the assigner")
	}
}
