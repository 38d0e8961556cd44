package events

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the lifecycle transition an event describes.
type Kind string

const (
	// KindPreShutdown is emitted before a service's stop operation runs.
	KindPreShutdown Kind = "PreShutdown"

	// KindFailed is emitted when a service fails. Delivery is synchronous.
	KindFailed Kind = "Failed"

	// KindStopped is emitted after a service has been stopped.
	KindStopped Kind = "Stopped"

	// KindStarted is emitted once a service is Healthy.
	KindStarted Kind = "Started"
)

// FailureReason classifies a Failed event.
type FailureReason string

const (
	// ReasonStartupFailed indicates the init operation returned an error or panicked.
	ReasonStartupFailed FailureReason = "StartupFailed"

	// ReasonDependencyFailed indicates a Required dependency was not healthy at start time.
	ReasonDependencyFailed FailureReason = "DependencyFailed"

	// ReasonHealthCheckFailed indicates a post-boot health check failed.
	ReasonHealthCheckFailed FailureReason = "HealthCheckFailed"

	// ReasonRuntimeError indicates a running service reported a fault.
	ReasonRuntimeError FailureReason = "RuntimeError"
)

// Common metadata keys.
const (
	MetaStage       = "stage"
	MetaDuration    = "duration"
	MetaImpacted    = "impacted"
	MetaEmergency   = "emergency"
	MetaReason      = "reason"
	MetaTriggeredBy = "triggeredBy"
)

// LifecycleEvent is an immutable record of one transition. Listeners
// receive it by value and must treat Metadata as read-only.
type LifecycleEvent struct {
	ID            string
	ServiceName   string
	Timestamp     time.Time
	Kind          Kind
	FailureReason FailureReason
	ErrorMessage  string
	Metadata      map[string]interface{}
}

func newEvent(kind Kind, service string, metadata map[string]interface{}) LifecycleEvent {
	return LifecycleEvent{
		ID:          uuid.New().String(),
		ServiceName: service,
		Timestamp:   time.Now(),
		Kind:        kind,
		Metadata:    maps.Clone(metadata),
	}
}

// Meta returns one metadata value.
func (e LifecycleEvent) Meta(key string) (interface{}, bool) {
	v, ok := e.Metadata[key]
	return v, ok
}

// IsFailure reports whether the event is a Failed event.
func (e LifecycleEvent) IsFailure() bool {
	return e.Kind == KindFailed
}
