package order

import "fmt"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusShipped   Status = "shipped"
	StatusConcluded Status = "concluded"
	StatusCancelled Status = "cancelled"
)

var ErrOrderConcluded = fmt.Errorf("order is concluded and cannot change")

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusShipped, StatusConcluded, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
// Any new transition verb must check terminality, not a specific target.
func (s Status) Terminal() bool {
	return s == StatusConcluded
}

// ValidateTransition rejects unknown targets and any transition away from a
// terminal status, regardless of target.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}
	if from.Terminal() {
		return ErrOrderConcluded
	}
	return nil
}
