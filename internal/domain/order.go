package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TrackingStatus is the enumerated lifecycle stage of an order.
type TrackingStatus string

const (
	StatusPending   TrackingStatus = "PENDING"
	StatusAccepted  TrackingStatus = "ACCEPTED"
	StatusPickedUp  TrackingStatus = "PICKED_UP"
	StatusTransit   TrackingStatus = "TRANSIT"
	StatusDelivered TrackingStatus = "DELIVERED"
	StatusCancelled TrackingStatus = "CANCELLED"
)

// ParseStatus validates a raw status value from the wire.
func ParseStatus(s string) (TrackingStatus, error) {
	switch TrackingStatus(s) {
	case StatusPending, StatusAccepted, StatusPickedUp, StatusTransit, StatusDelivered, StatusCancelled:
		return TrackingStatus(s), nil
	}
	return "", fmt.Errorf("%w: unknown tracking status %q", ErrValidation, s)
}

// IsTerminal reports whether no further transition is accepted from s.
func (s TrackingStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// forward is the single allowed forward step from each non-terminal status.
var forward = map[TrackingStatus]TrackingStatus{
	StatusPending:  StatusAccepted,
	StatusAccepted: StatusPickedUp,
	StatusPickedUp: StatusTransit,
	StatusTransit:  StatusDelivered,
}

// NextStatuses returns the allowed-next set from current. hasAny is
// false when the order has no tracking rows yet, in which case only
// PENDING (and CANCELLED) may be recorded.
func NextStatuses(current TrackingStatus, hasAny bool) []TrackingStatus {
	if !hasAny {
		return []TrackingStatus{StatusPending, StatusCancelled}
	}
	if current.IsTerminal() {
		return nil
	}
	return []TrackingStatus{forward[current], StatusCancelled}
}

// ValidateTransition checks that target is reachable from current.
// The tracking log is append-only, so a repeated status is a conflict
// even when it would otherwise be reachable.
func ValidateTransition(current TrackingStatus, hasAny bool, target TrackingStatus) error {
	if hasAny && target == current {
		return fmt.Errorf("%w: %s", ErrDuplicateStatus, target)
	}
	if hasAny && current.IsTerminal() {
		return fmt.Errorf("%w: %s", ErrTerminalOrder, current)
	}
	for _, next := range NextStatuses(current, hasAny) {
		if next == target {
			return nil
		}
	}
	if hasAny {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, target)
	}
	return fmt.Errorf("%w: first status must be %s, got %s", ErrInvalidTransition, StatusPending, target)
}

// Order is the aggregate root for one delivery request. Tracking rows
// and destinations are owned by the order and looked up by its id;
// the aggregate holds no back-references.
type Order struct {
	ID      uuid.UUID `json:"id"`
	PayerID uuid.UUID `json:"payer_id"`

	PickupLat float64 `json:"pickup_lat"`
	PickupLon float64 `json:"pickup_lon"`

	SenderName     string `json:"sender_name"`
	SenderPhone    string `json:"sender_phone"`
	RecipientName  string `json:"recipient_name"`
	RecipientPhone string `json:"recipient_phone"`
	VehicleClass   string `json:"vehicle_class"`

	// Fee breakdown, fixed at creation, in cents.
	DeliveryFeeCents   int64 `json:"delivery_fee_cents"`
	ServiceChargeCents int64 `json:"service_charge_cents"`
	TotalCents         int64 `json:"total_cents"`

	RiderID          *uuid.UUID  `json:"rider_id,omitempty"`
	RiderAssigned    bool        `json:"rider_assigned"`
	AssignedAt       *time.Time  `json:"assigned_at,omitempty"`
	DeclinedRiderIDs []uuid.UUID `json:"declined_rider_ids,omitempty"`
	HasRewardedRider bool        `json:"has_rewarded_rider"`

	CreatedAt time.Time `json:"created_at"`
}

// HasDeclined reports whether riderID is in the order's exclusion set.
func (o *Order) HasDeclined(riderID uuid.UUID) bool {
	for _, id := range o.DeclinedRiderIDs {
		if id == riderID {
			return true
		}
	}
	return false
}

// OrderTracking is one append-only lifecycle log entry. The row with
// the latest CreatedAt is the order's current status; nothing else
// stores it.
type OrderTracking struct {
	ID        int64          `json:"id"`
	OrderID   uuid.UUID      `json:"order_id"`
	Status    TrackingStatus `json:"status"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DeliveryDestination is one drop-off leg of a multi-destination order.
type DeliveryDestination struct {
	ID             int64      `json:"id"`
	OrderID        uuid.UUID  `json:"order_id"`
	Lat            float64    `json:"lat"`
	Lon            float64    `json:"lon"`
	RecipientName  string     `json:"recipient_name"`
	RecipientPhone string     `json:"recipient_phone"`
	DistanceKm     float64    `json:"distance_km"`
	Duration       string     `json:"duration"`
	FeeCents       int64      `json:"fee_cents"`
	Delivered      bool       `json:"delivered"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}
