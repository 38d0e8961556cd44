package services

import (
	"context"
	"slices"

	"rvkernel/internal/dependency"
)

// InitFunc creates the runtime instance of a service. It may block on I/O
// and should honor ctx.
type InitFunc func(ctx context.Context) (any, error)

// HealthCheckFunc probes a running instance. A non-nil error degrades the
// service.
type HealthCheckFunc func(ctx context.Context, instance any) error

// BackgroundFunc is a long-running task the instance exposes. It runs until
// ctx is cancelled at shutdown.
type BackgroundFunc func(ctx context.Context, instance any) error

// StopFunc releases an instance, either on ordinary shutdown or on an
// emergency stop.
type StopFunc func(ctx context.Context, instance any) error

// Definition declares a service and its optional capabilities. It is
// immutable once registered; runtime state lives in the registry.
type Definition struct {
	Name         string
	Description  string
	Tags         []string
	Dependencies []dependency.Dependency

	Init InitFunc

	// The capabilities below are optional.
	HealthCheck   HealthCheckFunc
	Background    BackgroundFunc
	Stop          StopFunc
	EmergencyStop StopFunc
}

// HasTag reports whether the definition carries tag.
func (d Definition) HasTag(tag string) bool {
	return slices.Contains(d.Tags, tag)
}

func (d Definition) clone() Definition {
	d.Tags = slices.Clone(d.Tags)
	d.Dependencies = slices.Clone(d.Dependencies)
	return d
}
