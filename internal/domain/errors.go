package domain

import "errors"

// Sentinels for the failure taxonomy. Handlers map these to HTTP
// statuses; everything else is a 500. Wrap with fmt.Errorf("%w") and
// match with errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrExternalService   = errors.New("external service error")

	// Conflict family: state-machine and settlement guards.
	ErrDuplicateStatus   = errors.New("tracking status already recorded")
	ErrInvalidTransition = errors.New("illegal status transition")
	ErrTerminalOrder     = errors.New("order is in a terminal status")
	ErrAlreadyRewarded   = errors.New("rider already rewarded")
	ErrNoRiderAssigned   = errors.New("order has no assigned rider")
	ErrRiderNotAssigned  = errors.New("rider is not assigned to this order")
)

// IsConflict reports whether err belongs to the conflict family.
func IsConflict(err error) bool {
	return errors.Is(err, ErrDuplicateStatus) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrTerminalOrder) ||
		errors.Is(err, ErrAlreadyRewarded) ||
		errors.Is(err, ErrNoRiderAssigned) ||
		errors.Is(err, ErrRiderNotAssigned)
}
