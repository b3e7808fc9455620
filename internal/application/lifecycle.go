package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
	"github.com/kudaline/dispatch-service/internal/logger"
	"github.com/kudaline/dispatch-service/internal/metrics"
	"github.com/kudaline/dispatch-service/internal/pricing"
	"github.com/kudaline/dispatch-service/internal/repository"
)

// EventSink receives business events (fire-and-forget; delivery
// failures are logged, never surfaced to the lifecycle).
type EventSink interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// RealtimePush notifies a rider about a fresh assignment. Best-effort;
// failure must not affect assignment persistence.
type RealtimePush interface {
	NotifyRider(ctx context.Context, riderID uuid.UUID, summary OrderSummary) error
}

// OrderSummary is the assignment payload pushed to a rider.
type OrderSummary struct {
	OrderID          uuid.UUID `json:"order_id"`
	PickupLat        float64   `json:"pickup_lat"`
	PickupLon        float64   `json:"pickup_lon"`
	Destinations     int       `json:"destinations"`
	DeliveryFeeCents int64     `json:"delivery_fee_cents"`
}

// Lifecycle owns the order state machine and the settlement sequence
// around it: order placement (charge the payer) and delivery reward
// (pay the rider). Rider assignment hangs off both creation and the
// decline loop but never fails either.
type Lifecycle struct {
	orders  repository.OrderRepo
	wallets repository.WalletRepo
	matcher *Matcher
	pricing *pricing.Calculator
	events  EventSink
	push    RealtimePush
	metrics *metrics.Metrics
}

func NewLifecycle(
	orders repository.OrderRepo,
	wallets repository.WalletRepo,
	matcher *Matcher,
	calc *pricing.Calculator,
	events EventSink,
	push RealtimePush,
	m *metrics.Metrics,
) *Lifecycle {
	return &Lifecycle{
		orders:  orders,
		wallets: wallets,
		matcher: matcher,
		pricing: calc,
		events:  events,
		push:    push,
		metrics: m,
	}
}

// DestinationInput is one drop-off leg of a creation request.
type DestinationInput struct {
	Point          geo.Point
	RecipientName  string
	RecipientPhone string
}

// CreateOrderInput carries the immutable-at-creation order details.
type CreateOrderInput struct {
	PayerID        uuid.UUID
	Pickup         geo.Point
	Destinations   []DestinationInput
	SenderName     string
	SenderPhone    string
	RecipientName  string
	RecipientPhone string
	VehicleClass   string
	Urgent         bool
}

// CreateOrder prices the order, verifies the payer can cover it, and
// persists order + debit + initial tracking + destinations in one
// transaction. Rider assignment afterwards is best-effort: a missing
// or failed assignment leaves the order for the scheduler.
func (l *Lifecycle) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if in.PayerID == uuid.Nil {
		return nil, fmt.Errorf("%w: payer id is required", domain.ErrValidation)
	}
	if len(in.Destinations) == 0 {
		return nil, fmt.Errorf("%w: at least one destination is required", domain.ErrValidation)
	}

	// Routing happens before the transaction opens so slow provider
	// calls never hold database resources.
	points := make([]geo.Point, len(in.Destinations))
	for i, d := range in.Destinations {
		points[i] = d.Point
	}
	quote, err := l.pricing.QuoteOrder(ctx, in.Pickup, points, in.Urgent)
	if err != nil {
		return nil, err
	}

	balance, err := l.wallets.Balance(ctx, in.PayerID)
	if err != nil {
		return nil, err
	}
	if quote.TotalCents > balance {
		return nil, fmt.Errorf("%w: total %d exceeds balance %d", domain.ErrInsufficientFunds, quote.TotalCents, balance)
	}

	order := &domain.Order{
		ID:                 uuid.New(),
		PayerID:            in.PayerID,
		PickupLat:          in.Pickup.Lat,
		PickupLon:          in.Pickup.Lon,
		SenderName:         in.SenderName,
		SenderPhone:        in.SenderPhone,
		RecipientName:      in.RecipientName,
		RecipientPhone:     in.RecipientPhone,
		VehicleClass:       in.VehicleClass,
		DeliveryFeeCents:   quote.DeliveryFeeCents,
		ServiceChargeCents: quote.ServiceChargeCents,
		TotalCents:         quote.TotalCents,
	}
	dests := make([]domain.DeliveryDestination, len(in.Destinations))
	for i, d := range in.Destinations {
		dests[i] = domain.DeliveryDestination{
			OrderID:        order.ID,
			Lat:            d.Point.Lat,
			Lon:            d.Point.Lon,
			RecipientName:  d.RecipientName,
			RecipientPhone: d.RecipientPhone,
			DistanceKm:     quote.Legs[i].DistanceKm,
			Duration:       quote.Legs[i].Duration,
			FeeCents:       quote.Legs[i].FeeCents,
		}
	}

	if err := l.orders.CreateOrder(ctx, order, dests); err != nil {
		return nil, err
	}
	l.metrics.OrdersCreated.Inc()

	l.emit(ctx, "wallet.debited", domain.WalletTransaction{
		WalletOwner: order.PayerID,
		OrderID:     order.ID,
		AmountCents: -order.TotalCents,
		Kind:        "order_payment",
	})

	if err := l.AssignRider(ctx, order.ID); err != nil {
		logger.Warn("initial assignment failed, left for scheduler", "order_id", order.ID, "err", err)
	}
	return order, nil
}

// AssignRider runs the matching routine for one order. Invoked after
// creation, after a decline, and by the scheduler sweep. "No rider
// available" is a non-error outcome; the order stays unassigned.
func (l *Lifecycle) AssignRider(ctx context.Context, orderID uuid.UUID) error {
	o, err := l.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.RiderAssigned {
		return nil
	}
	current, hasAny, err := l.orders.CurrentStatus(ctx, orderID)
	if err != nil {
		return err
	}
	if hasAny && current.IsTerminal() {
		return fmt.Errorf("%w: %s", domain.ErrTerminalOrder, current)
	}

	pickup := geo.Point{Lon: o.PickupLon, Lat: o.PickupLat}
	riderID, ok, err := l.matcher.SelectRider(ctx, o.DeclinedRiderIDs, &pickup)
	if err != nil {
		l.metrics.AssignAttempts.WithLabelValues("error").Inc()
		return err
	}
	if !ok {
		l.metrics.AssignAttempts.WithLabelValues("none").Inc()
		logger.Info("no eligible rider, order left unassigned", "order_id", orderID)
		return nil
	}

	if err := l.orders.AssignRider(ctx, orderID, riderID); err != nil {
		l.metrics.AssignAttempts.WithLabelValues("error").Inc()
		return err
	}
	l.metrics.AssignAttempts.WithLabelValues("assigned").Inc()
	logger.Info("rider assigned", "order_id", orderID, "rider_id", riderID)

	summary := OrderSummary{
		OrderID:          o.ID,
		PickupLat:        o.PickupLat,
		PickupLon:        o.PickupLon,
		DeliveryFeeCents: o.DeliveryFeeCents,
	}
	if dests, err := l.orders.Destinations(ctx, orderID); err == nil {
		summary.Destinations = len(dests)
	}
	l.emit(ctx, "order.assigned", map[string]any{"order_id": o.ID, "rider_id": riderID})
	if err := l.push.NotifyRider(ctx, riderID, summary); err != nil {
		logger.Warn("rider push failed", "rider_id", riderID, "err", err)
	}
	return nil
}

// Advance moves the order's tracking log to target. The DELIVERED
// transition carries the rider reward with it in the same
// transaction; any unmet reward precondition rolls both back.
func (l *Lifecycle) Advance(ctx context.Context, orderID uuid.UUID, target domain.TrackingStatus, note string) error {
	o, err := l.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	current, hasAny, err := l.orders.CurrentStatus(ctx, orderID)
	if err != nil {
		return err
	}
	if err := domain.ValidateTransition(current, hasAny, target); err != nil {
		return err
	}

	if target != domain.StatusDelivered {
		if err := l.orders.AppendTracking(ctx, orderID, target, note); err != nil {
			return err
		}
		l.metrics.Transitions.WithLabelValues(string(target)).Inc()
		return nil
	}

	if !o.RiderAssigned || o.RiderID == nil {
		return fmt.Errorf("%w: order %s", domain.ErrNoRiderAssigned, orderID)
	}
	if o.HasRewardedRider {
		return fmt.Errorf("%w: order %s", domain.ErrAlreadyRewarded, orderID)
	}
	riderID := *o.RiderID

	if err := l.orders.DeliverAndReward(ctx, orderID, riderID, o.DeliveryFeeCents, note); err != nil {
		return err
	}
	l.metrics.Transitions.WithLabelValues(string(domain.StatusDelivered)).Inc()
	logger.Info("order delivered, rider rewarded", "order_id", orderID, "rider_id", riderID, "amount_cents", o.DeliveryFeeCents)

	l.emit(ctx, "payout.reward", domain.WalletTransaction{
		WalletOwner: riderID,
		OrderID:     orderID,
		AmountCents: o.DeliveryFeeCents,
		Kind:        "delivery_reward",
	})
	l.emit(ctx, "review.requested", map[string]any{"order_id": orderID, "from": riderID, "about": o.PayerID})
	l.emit(ctx, "review.requested", map[string]any{"order_id": orderID, "from": o.PayerID, "about": riderID})
	return nil
}

// HandleFeedback processes a rider's response to an assignment. An
// accept advances the state machine; a decline permanently excludes
// the rider from this order and re-runs matching with the grown
// exclusion set.
func (l *Lifecycle) HandleFeedback(ctx context.Context, riderID, orderID uuid.UUID, accepted bool) error {
	o, err := l.orders.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}

	if accepted {
		if !o.RiderAssigned || o.RiderID == nil || *o.RiderID != riderID {
			return fmt.Errorf("%w: rider %s, order %s", domain.ErrRiderNotAssigned, riderID, orderID)
		}
		return l.Advance(ctx, orderID, domain.StatusAccepted, "accepted by rider")
	}

	if o.RiderAssigned && o.RiderID != nil && *o.RiderID != riderID {
		return fmt.Errorf("%w: rider %s, order %s", domain.ErrRiderNotAssigned, riderID, orderID)
	}

	// A finished order keeps its assignment record; a late decline
	// must not wipe who delivered (and was paid for) it.
	current, hasAny, err := l.orders.CurrentStatus(ctx, orderID)
	if err != nil {
		return err
	}
	if hasAny && current.IsTerminal() {
		return fmt.Errorf("%w: %s", domain.ErrTerminalOrder, current)
	}

	if err := l.orders.Decline(ctx, orderID, riderID); err != nil {
		return err
	}
	logger.Info("order declined", "order_id", orderID, "rider_id", riderID)

	if err := l.AssignRider(ctx, orderID); err != nil {
		logger.Warn("reassignment after decline failed, left for scheduler", "order_id", orderID, "err", err)
	}
	return nil
}

// OrderView is the aggregate read model: the order plus its owned
// tracking log and destination legs.
type OrderView struct {
	Order        domain.Order                 `json:"order"`
	Status       domain.TrackingStatus        `json:"status"`
	Tracking     []domain.OrderTracking       `json:"tracking"`
	Destinations []domain.DeliveryDestination `json:"destinations"`
}

func (l *Lifecycle) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderView, error) {
	o, err := l.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	tracking, err := l.orders.Tracking(ctx, orderID)
	if err != nil {
		return nil, err
	}
	dests, err := l.orders.Destinations(ctx, orderID)
	if err != nil {
		return nil, err
	}
	view := &OrderView{Order: *o, Tracking: tracking, Destinations: dests}
	if len(tracking) > 0 {
		view.Status = tracking[len(tracking)-1].Status
	}
	return view, nil
}

func (l *Lifecycle) ActiveOrdersForRider(ctx context.Context, riderID uuid.UUID) ([]domain.Order, error) {
	return l.orders.ActiveOrdersForRider(ctx, riderID)
}

func (l *Lifecycle) AssignedOrdersForRider(ctx context.Context, riderID uuid.UUID) ([]domain.Order, error) {
	return l.orders.AssignedOrdersForRider(ctx, riderID)
}

func (l *Lifecycle) emit(ctx context.Context, eventType string, payload any) {
	if err := l.events.Publish(ctx, eventType, payload); err != nil {
		logger.Warn("event publish failed", "type", eventType, "err", err)
	}
}
