package device

import "errors"

var (
	ErrDeviceNotFound          = errors.New("device not found")
	ErrAlreadyActivated        = errors.New("device is already assigned to a vehicle")
	ErrInvalidStatusTransition = errors.New("invalid assignment transition")
	ErrNotInCustody            = errors.New("device is not held by this entity")
)
