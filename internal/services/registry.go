package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"rvkernel/internal/dependency"
	"rvkernel/internal/events"
	"rvkernel/internal/metrics"
	"rvkernel/pkg/logging"
)

const defaultBackgroundStopTimeout = 5 * time.Second

// Config tunes a Registry. Zero values keep the defaults noted per field.
type Config struct {
	// MaxParallel caps concurrent starts and stops within one stage. Zero
	// means unlimited.
	MaxParallel int
	// ServiceTimeout bounds each init operation. Zero means no bound.
	ServiceTimeout time.Duration
	// HealthCheckOnStartup runs a service's health check once right after
	// init. A failing check fails the start.
	HealthCheckOnStartup bool
	// BackgroundStopTimeout bounds the wait for a cancelled background task.
	// Zero means 5s.
	BackgroundStopTimeout time.Duration
	// StopTimeout bounds each stop or emergency-stop operation. Zero means
	// no bound.
	StopTimeout time.Duration
	// HealthCheckTimeout bounds each health probe. Zero means no bound.
	HealthCheckTimeout time.Duration

	// Bus receives lifecycle events. A private bus is created when nil.
	Bus     *events.Bus
	Metrics *metrics.Lifecycle
}

type entry struct {
	def      Definition
	status   Status
	instance any
	lastErr  error
	stage    int
	timing   Timing

	bgCancel context.CancelFunc
	bgDone   chan struct{}

	// stopDone is created by the one caller allowed to stop the instance
	// and closed when that stop has finished.
	stopDone chan struct{}
	stopErr  error
}

// Registry owns every service definition, runtime instance and status. It
// starts services stage by stage as planned by the dependency resolver and
// stops them in reverse.
type Registry struct {
	mu       sync.RWMutex
	resolver *dependency.Resolver
	entries  map[string]*entry
	plan     *dependency.Plan
	started  bool
	report   StartupReport

	cfg     Config
	bus     *events.Bus
	metrics *metrics.Lifecycle
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	if cfg.BackgroundStopTimeout <= 0 {
		cfg.BackgroundStopTimeout = defaultBackgroundStopTimeout
	}
	bus := cfg.Bus
	if bus == nil {
		bus = events.NewBus(events.Config{Metrics: cfg.Metrics})
	}
	return &Registry{
		resolver: dependency.NewResolver(),
		entries:  make(map[string]*entry),
		cfg:      cfg,
		bus:      bus,
		metrics:  cfg.Metrics,
	}
}

// Bus returns the lifecycle bus the registry publishes to.
func (r *Registry) Bus() *events.Bus {
	return r.bus
}

// Register declares a service. Dependencies are forwarded to the resolver
// unchanged and only validated at startup.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("service has empty name")
	}
	if def.Init == nil {
		return fmt.Errorf("service %s has no init operation", def.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("cannot register %s: %w", def.Name, ErrAlreadyStarted)
	}
	if _, exists := r.entries[def.Name]; exists {
		return fmt.Errorf("service %s already registered", def.Name)
	}

	def = def.clone()
	r.entries[def.Name] = &entry{def: def, status: StatusPending, stage: -1}
	r.resolver.Add(def.Name, def.Dependencies)
	r.metrics.SetStatus(def.Name, int(StatusPending))
	logging.Debug("Registry", "Registered service %s with %d dependencies", def.Name, len(def.Dependencies))
	return nil
}

// Get returns the instance of a Healthy service. It returns a NotFoundError
// for unknown names and a NotReadyError for any other status.
func (r *Registry) Get(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	if e.status != StatusHealthy {
		return nil, &NotReadyError{Name: name, Status: e.status}
	}
	return e.instance, nil
}

// GetAs is Get with the instance asserted to T.
func GetAs[T any](r *Registry, name string) (T, error) {
	var zero T
	instance, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("service %s instance is %T, not %T", name, instance, zero)
	}
	return typed, nil
}

// Status returns the current status of a service.
func (r *Registry) Status(name string) (Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return StatusPending, &NotFoundError{Name: name}
	}
	return e.status, nil
}

// ServiceInfo is a read-only view of one registered service.
type ServiceInfo struct {
	Name        string
	Description string
	Tags        []string
	Status      Status
	// Stage is -1 until startup has planned the service.
	Stage     int
	LastError error
}

// List returns every registered service sorted by name.
func (r *Registry) List() []ServiceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ServiceInfo, 0, len(r.entries))
	for _, e := range r.entries {
		infos = append(infos, ServiceInfo{
			Name:        e.def.Name,
			Description: e.def.Description,
			Tags:        slices.Clone(e.def.Tags),
			Status:      e.status,
			Stage:       e.stage,
			LastError:   e.lastErr,
		})
	}
	slices.SortFunc(infos, func(a, b ServiceInfo) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return infos
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	return r.resolver.Names()
}

// Definition returns a copy of the registered definition.
func (r *Registry) Definition(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return Definition{}, &NotFoundError{Name: name}
	}
	return e.def.clone(), nil
}

// ByTag returns the sorted names of services carrying tag.
func (r *Registry) ByTag(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, e := range r.entries {
		if e.def.HasTag(tag) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Stages returns the stages used by the last startup, or nil before one.
func (r *Registry) Stages() [][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.plan == nil {
		return nil
	}
	return r.plan.StageNames()
}

// Plan resolves the current declarations without starting anything.
func (r *Registry) Plan() (*dependency.Plan, error) {
	return r.resolver.Plan()
}

// DependencyDiagram renders the resolved graph as a mermaid flowchart.
func (r *Registry) DependencyDiagram() (string, error) {
	plan, err := r.resolver.Plan()
	if err != nil {
		return "", err
	}
	return plan.Mermaid(), nil
}

// ImpactedServices returns every service that transitively depends on name.
func (r *Registry) ImpactedServices(name string) []string {
	return r.resolver.ImpactedServices(name)
}

// ValidateRuntimeDependencies audits Runtime edges against the services
// that are currently running.
func (r *Registry) ValidateRuntimeDependencies() map[string][]string {
	return r.resolver.ValidateRuntimeDependencies(r.running())
}

func (r *Registry) running() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for name, e := range r.entries {
		if e.status.IsRunning() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// setStatus must be called with r.mu held.
func (r *Registry) setStatus(e *entry, status Status) {
	e.status = status
	r.metrics.SetStatus(e.def.Name, int(status))
}

// ReportFailure marks a running service Failed and delivers the failure
// synchronously to every listener before returning. Collaborators use it
// for faults detected after boot.
func (r *Registry) ReportFailure(ctx context.Context, name string, cause error) error {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		r.mu.Unlock()
		return &NotFoundError{Name: name}
	}
	if !e.status.IsRunning() {
		status := e.status
		r.mu.Unlock()
		return &NotReadyError{Name: name, Status: status}
	}
	e.lastErr = cause
	r.setStatus(e, StatusFailed)
	r.mu.Unlock()

	impacted := r.resolver.ImpactedServices(name)
	logging.Error("Registry", cause, "Service %s failed at runtime (impacts %v)", name, impacted)
	return r.bus.NotifyFailed(ctx, name, events.ReasonRuntimeError, cause, map[string]interface{}{
		events.MetaImpacted: impacted,
	})
}
