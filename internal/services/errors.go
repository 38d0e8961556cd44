package services

import (
	"errors"
	"fmt"
	"strings"

	"rvkernel/internal/events"
)

// ErrAlreadyStarted is returned by StartupAll and Register once a startup
// attempt has begun.
var ErrAlreadyStarted = errors.New("registry already started")

// ErrNoStopOperation is recorded when an emergency stop targets a service
// that exposes neither an emergency-stop nor a stop operation.
var ErrNoStopOperation = errors.New("service has no stop operation")

// NotFoundError is returned when a name was never registered.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("service %s not found", e.Name)
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
//
// Args:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error is or wraps a NotFoundError
//
// Example:
//
//	db, err := registry.Get("db")
//	if services.IsNotFound(err) {
//	    // configuration problem, the service was never declared
//	}
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// NotReadyError is returned when a registered service is not Healthy.
type NotReadyError struct {
	Name   string
	Status Status
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("service %s is not ready (status %s)", e.Name, e.Status)
}

// IsNotReady checks if an error is a NotReadyError using error unwrapping.
func IsNotReady(err error) bool {
	var target *NotReadyError
	return errors.As(err, &target)
}

// DependencyNotReadyError is the cause recorded when a service's Required
// dependencies were not Healthy at the moment it was about to start.
type DependencyNotReadyError struct {
	Service      string
	Dependencies []string
}

func (e *DependencyNotReadyError) Error() string {
	return fmt.Sprintf("service %s cannot start: required dependencies not healthy: %s",
		e.Service, strings.Join(e.Dependencies, ", "))
}

// ServiceFailure describes one service that failed to start.
type ServiceFailure struct {
	Service string
	Reason  events.FailureReason
	Err     error
	// Impacted is every service that depends on Service, transitively.
	Impacted []string
	// NotifyErr holds the failure listener faults raised while the failure
	// was being delivered, if any.
	NotifyErr error
}

// StartupError aborts a startup attempt. It names every service that failed
// in the stage and what each failure impacts.
type StartupError struct {
	Stage    int
	Failures []ServiceFailure
}

func (e *StartupError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		part := fmt.Sprintf("%s: %v", f.Service, f.Err)
		if len(f.Impacted) > 0 {
			part += fmt.Sprintf(" (impacts: %s)", strings.Join(f.Impacted, ", "))
		}
		parts = append(parts, part)
	}
	return fmt.Sprintf("startup failed in stage %d: %s", e.Stage, strings.Join(parts, "; "))
}

// Unwrap exposes every failure cause and every listener fault.
func (e *StartupError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
		if f.NotifyErr != nil {
			errs = append(errs, f.NotifyErr)
		}
	}
	return errs
}

// FailedServices returns the names of the services that failed.
func (e *StartupError) FailedServices() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Service
	}
	return names
}

// IsStartupError checks if an error is or wraps a StartupError.
func IsStartupError(err error) bool {
	var target *StartupError
	return errors.As(err, &target)
}

// StopFailure is one stop operation that failed.
type StopFailure struct {
	Service string
	Err     error
}

// ShutdownError collects stop faults. It is informational: every remaining
// service is still stopped.
type ShutdownError struct {
	Failures []StopFailure
}

func (e *ShutdownError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Service, f.Err))
	}
	return fmt.Sprintf("%d services failed to stop cleanly: %s", len(e.Failures), strings.Join(parts, "; "))
}

func (e *ShutdownError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// IsShutdownError checks if an error is or wraps a ShutdownError.
func IsShutdownError(err error) bool {
	var target *ShutdownError
	return errors.As(err, &target)
}
