package safety

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rvkernel/internal/events"
	"rvkernel/internal/metrics"
	"rvkernel/internal/services"
	"rvkernel/pkg/logging"
)

// ListenerName is the bus subscription used by Attach.
const ListenerName = "safety-coordinator"

// ListenerPriority places the coordinator ahead of ordinary listeners.
const ListenerPriority = 1000

// Report describes one emergency stop run.
type Report struct {
	Reason      string
	TriggeredBy string
	StartedAt   time.Time
	Duration    time.Duration
	// Outcome maps every force-stopped service to whether it reached a
	// safe state.
	Outcome  map[string]bool
	Failures []*EmergencyStopError
}

// Err joins every failure, or returns nil when all stops succeeded.
func (r *Report) Err() error {
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// Coordinator attaches safety classifications to registry services and
// runs tiered emergency stops.
type Coordinator struct {
	registry *services.Registry
	metrics  *metrics.Lifecycle

	mu      sync.RWMutex
	classes map[string]Classification

	// stopMu serializes emergency stops.
	stopMu sync.Mutex
	last   *Report
}

// NewCoordinator creates a coordinator over reg.
func NewCoordinator(reg *services.Registry, m *metrics.Lifecycle) *Coordinator {
	return &Coordinator{
		registry: reg,
		metrics:  m,
		classes:  make(map[string]Classification),
	}
}

// Register registers def with the registry and classifies it.
func (c *Coordinator) Register(def services.Definition, class Classification) error {
	if !class.Valid() {
		return fmt.Errorf("service %s: unknown safety classification %q", def.Name, class)
	}
	if err := c.registry.Register(def); err != nil {
		return err
	}
	return c.Classify(def.Name, class)
}

// Classify sets the classification of an already registered service.
func (c *Coordinator) Classify(name string, class Classification) error {
	if !class.Valid() {
		return fmt.Errorf("service %s: unknown safety classification %q", name, class)
	}
	if _, err := c.registry.Status(name); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.classes[name] = class
	logging.Debug("Safety", "Classified %s as %s", name, class)
	return nil
}

// Classification returns the classification of name.
func (c *Coordinator) Classification(name string) (Classification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	class, ok := c.classes[name]
	return class, ok
}

// Tier returns the sorted names in one classification.
func (c *Coordinator) Tier(class Classification) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for name, cl := range c.classes {
		if cl == class {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// EmergencyStopAll stops every Critical service, then every Operational
// one, and reports per service whether it reached a safe state.
// Maintenance and unclassified services are left running.
func (c *Coordinator) EmergencyStopAll(ctx context.Context, reason, triggeredBy string) map[string]bool {
	return c.EmergencyStop(ctx, reason, triggeredBy).Outcome
}

// EmergencyStop is EmergencyStopAll with the full report.
//
// Members of a tier stop concurrently and the next tier starts only after
// every stop in the current one has resolved. A failing stop is recorded
// and never prevents the others. Concurrent calls run one after another; a
// service stopped by an earlier run reports that run's outcome.
func (c *Coordinator) EmergencyStop(ctx context.Context, reason, triggeredBy string) *Report {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()

	// Emergency stop runs to completion even if the caller gives up.
	ctx = context.WithoutCancel(ctx)
	report := &Report{
		Reason:      reason,
		TriggeredBy: triggeredBy,
		StartedAt:   time.Now(),
		Outcome:     make(map[string]bool),
	}
	logging.Warn("Safety", "Emergency stop requested by %s: %s", triggeredBy, reason)

	for _, tier := range tierOrder {
		if !tier.ForceStopped() {
			continue
		}
		members := c.Tier(tier)
		if len(members) == 0 {
			continue
		}
		logging.Info("Safety", "Emergency stop tier %s: %v", tier, members)
		c.stopTier(ctx, tier, members, reason, triggeredBy, report)
	}

	report.Duration = time.Since(report.StartedAt)
	if len(report.Failures) > 0 {
		logging.Critical("Safety", report.Err(), "Emergency stop left %d services in an unknown state", len(report.Failures))
	} else {
		logging.Info("Safety", "Emergency stop completed for %d services in %s", len(report.Outcome), report.Duration)
	}

	c.last = report
	return report
}

func (c *Coordinator) stopTier(ctx context.Context, tier Classification, members []string, reason, triggeredBy string, report *Report) {
	var mu sync.Mutex
	g := new(errgroup.Group)
	for _, name := range members {
		g.Go(func() error {
			err := c.registry.EmergencyStopService(ctx, name, reason, triggeredBy)
			c.metrics.RecordEmergencyStop(name, string(tier), err)

			mu.Lock()
			defer mu.Unlock()
			report.Outcome[name] = err == nil
			if err != nil {
				failure := &EmergencyStopError{Service: name, Tier: tier, Err: err}
				report.Failures = append(report.Failures, failure)
				logging.Critical("Safety", err, "Emergency stop of %s service %s failed", tier, name)
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(report.Failures, func(a, b *EmergencyStopError) int {
		if a.Tier != b.Tier {
			return slices.Index(tierOrder, a.Tier) - slices.Index(tierOrder, b.Tier)
		}
		if a.Service < b.Service {
			return -1
		}
		if a.Service > b.Service {
			return 1
		}
		return 0
	})
}

// LastReport returns a copy of the most recent emergency stop report.
func (c *Coordinator) LastReport() (Report, bool) {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	if c.last == nil {
		return Report{}, false
	}
	report := *c.last
	report.Outcome = maps.Clone(c.last.Outcome)
	report.Failures = slices.Clone(c.last.Failures)
	return report, true
}

// FailureListener returns a bus listener that runs an emergency stop
// whenever a Critical service fails. The stop completes inside the failure
// hook, before the component reporting the failure continues.
func (c *Coordinator) FailureListener() events.Listener {
	return events.Hooks{
		Failed: func(ctx context.Context, event events.LifecycleEvent) error {
			class, ok := c.Classification(event.ServiceName)
			if !ok || class != Critical {
				logging.Debug("Safety", "Failure of %s needs no emergency stop", event.ServiceName)
				return nil
			}

			reason := fmt.Sprintf("critical service %s failed (%s)", event.ServiceName, event.FailureReason)
			if event.ErrorMessage != "" {
				reason += ": " + event.ErrorMessage
			}
			return c.EmergencyStop(ctx, reason, event.ServiceName).Err()
		},
	}
}

// Attach subscribes FailureListener to the registry's bus.
func (c *Coordinator) Attach() {
	c.registry.Bus().Subscribe(ListenerName, ListenerPriority, c.FailureListener())
}
