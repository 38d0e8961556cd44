package safety

import (
	"errors"
	"fmt"
)

// EmergencyStopError is one service that could not be brought to a safe
// state during an emergency stop.
type EmergencyStopError struct {
	Service string
	Tier    Classification
	Err     error
}

func (e *EmergencyStopError) Error() string {
	return fmt.Sprintf("emergency stop of %s service %s failed: %v", e.Tier, e.Service, e.Err)
}

func (e *EmergencyStopError) Unwrap() error {
	return e.Err
}

// IsEmergencyStopError checks if an error is or wraps an EmergencyStopError.
func IsEmergencyStopError(err error) bool {
	var target *EmergencyStopError
	return errors.As(err, &target)
}
