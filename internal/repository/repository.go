package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kudaline/dispatch-service/internal/domain"
	"github.com/kudaline/dispatch-service/internal/geo"
)

// OrderRepo owns the order aggregate and everything that must change
// atomically with it (tracking log, destinations, wallet movements).
type OrderRepo interface {
	// CreateOrder persists the order, debits the payer's wallet by
	// TotalCents, writes the initial PENDING tracking row and the
	// destination legs, all in one transaction. Returns
	// domain.ErrInsufficientFunds (nothing written) when the payer
	// cannot cover the total.
	CreateOrder(ctx context.Context, o *domain.Order, dests []domain.DeliveryDestination) error

	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)

	// CurrentStatus derives the order's status from the tracking row
	// with the latest created_at. ok is false when no rows exist yet.
	CurrentStatus(ctx context.Context, orderID uuid.UUID) (status domain.TrackingStatus, ok bool, err error)

	// AppendTracking records one transition. A duplicate status for
	// the order surfaces as domain.ErrDuplicateStatus.
	AppendTracking(ctx context.Context, orderID uuid.UUID, status domain.TrackingStatus, note string) error

	// DeliverAndReward writes the DELIVERED tracking row, flips the
	// write-once reward flag, credits the rider's wallet and records
	// the funds movement, all in one transaction.
	DeliverAndReward(ctx context.Context, orderID, riderID uuid.UUID, amountCents int64, note string) error

	AssignRider(ctx context.Context, orderID, riderID uuid.UUID) error

	// Decline clears the current assignment and adds riderID to the
	// order's exclusion set. Idempotent.
	Decline(ctx context.Context, orderID, riderID uuid.UUID) error

	ListUnassigned(ctx context.Context) ([]domain.Order, error)
	ActiveOrdersForRider(ctx context.Context, riderID uuid.UUID) ([]domain.Order, error)
	AssignedOrdersForRider(ctx context.Context, riderID uuid.UUID) ([]domain.Order, error)
	Tracking(ctx context.Context, orderID uuid.UUID) ([]domain.OrderTracking, error)
	Destinations(ctx context.Context, orderID uuid.UUID) ([]domain.DeliveryDestination, error)
}

// RiderRepo serves the matcher's candidate projection. Read-only and
// not transactionally isolated against concurrent assignment.
type RiderRepo interface {
	// Candidates returns approved, active riders with a known
	// coordinate, minus the excluded ids, each with a derived active
	// order count. A non-nil box narrows the search and the result is
	// capped for bounded ranking cost.
	Candidates(ctx context.Context, exclude []uuid.UUID, box *geo.BoundingBox) ([]domain.RiderCandidate, error)
}

// WalletRepo reads balances. Balance writes happen only inside
// OrderRepo transactions; funding is handled elsewhere.
type WalletRepo interface {
	Balance(ctx context.Context, ownerID uuid.UUID) (int64, error)
}
