package device

import (
	"fmt"
)

// validTransitions encodes the ordered edges manufacturer → distributor → RFC → vehicle.
var validTransitions = map[Status][]Status{
	StatusUnassigned:            {StatusAssignedToDistributor},
	StatusAssignedToDistributor: {StatusAssignedToRFC},
	StatusAssignedToRFC:         {StatusActivated},
	StatusActivated:             {},
}

// ValidateTransition checks that d may move to next.
func ValidateTransition(d *Device, next Status) error {
	current := AssignmentStatus(d)
	for _, allowed := range validTransitions[current] {
		if allowed == next {
			return nil
		}
	}
	return fmt.Errorf("%w: %s cannot move to %s", ErrInvalidStatusTransition, current.Label(), next.Label())
}

// AllowedTransitions returns the next statuses reachable from d.
func AllowedTransitions(d *Device) []Status {
	return validTransitions[AssignmentStatus(d)]
}
