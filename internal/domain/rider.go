package domain

import "github.com/google/uuid"

// RiderApprovalStatus is the document-approval state of a rider.
type RiderApprovalStatus string

const (
	RiderApproved RiderApprovalStatus = "APPROVED"
	RiderPending  RiderApprovalStatus = "PENDING"
	RiderRejected RiderApprovalStatus = "REJECTED"
)

// RiderCandidate is a read-time projection used by the matcher: rider
// approval joined with live activity and a derived count of orders
// currently assigned to the rider whose status is non-terminal. Not
// persisted; recomputed per matching query.
type RiderCandidate struct {
	RiderID      uuid.UUID
	Lat          float64
	Lon          float64
	ActiveOrders int
}

// WalletTransaction is one funds movement on a wallet, written in the
// same transaction as the balance change it records.
type WalletTransaction struct {
	ID          int64     `json:"id"`
	WalletOwner uuid.UUID `json:"wallet_owner"`
	OrderID     uuid.UUID `json:"order_id"`
	AmountCents int64     `json:"amount_cents"` // negative = debit
	Kind        string    `json:"kind"`         // order_payment | delivery_reward
}
