package services

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rvkernel/pkg/logging"
)

// Health is the point-in-time health of one service.
type Health struct {
	Name   string
	Status Status
	// Checked is false when the service has no health check or was not
	// probed in this snapshot.
	Checked   bool
	Err       error
	CheckedAt time.Time
}

// HealthSnapshot returns the health of every service, sorted by name.
//
// With recheck set, every running service that has a health check is
// probed concurrently. A failing probe moves Healthy to Degraded and a
// passing probe moves Degraded back to Healthy; probes never mark a service
// Failed. Running services without a health check are reported Healthy.
func (r *Registry) HealthSnapshot(ctx context.Context, recheck bool) []Health {
	type target struct {
		name     string
		def      Definition
		instance any
	}

	r.mu.RLock()
	var targets []target
	for name, e := range r.entries {
		if recheck && e.status.IsRunning() && e.def.HealthCheck != nil && e.stopDone == nil {
			targets = append(targets, target{name: name, def: e.def, instance: e.instance})
		}
	}
	r.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[string]Health, len(targets))
	)
	g := new(errgroup.Group)
	if r.cfg.MaxParallel > 0 {
		g.SetLimit(r.cfg.MaxParallel)
	}
	for _, t := range targets {
		g.Go(func() error {
			err := r.probe(ctx, t.def, t.instance)
			mu.Lock()
			results[t.name] = Health{Name: t.name, Checked: true, Err: err, CheckedAt: time.Now()}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make([]Health, 0, len(r.entries))
	for name, e := range r.entries {
		h, probed := results[name]
		if probed {
			r.applyProbe(e, h.Err)
		} else {
			h = Health{Name: name}
			if e.status == StatusDegraded || e.status == StatusFailed {
				h.Err = e.lastErr
			}
		}
		h.Status = e.status
		snapshot = append(snapshot, h)
	}
	slices.SortFunc(snapshot, func(a, b Health) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})
	return snapshot
}

// applyProbe must be called with r.mu held. Only Healthy and Degraded
// change; a service stopped while it was being probed keeps its status.
func (r *Registry) applyProbe(e *entry, err error) {
	name := e.def.Name
	switch {
	case err != nil && e.status == StatusHealthy:
		e.lastErr = err
		r.setStatus(e, StatusDegraded)
		logging.Warn("Registry", "Service %s degraded: %v", name, err)
	case err != nil && e.status == StatusDegraded:
		e.lastErr = err
	case err == nil && e.status == StatusDegraded:
		e.lastErr = nil
		r.setStatus(e, StatusHealthy)
		logging.Info("Registry", "Service %s recovered", name)
	}
}

func (r *Registry) probe(ctx context.Context, def Definition, instance any) error {
	err := runBounded(ctx, r.cfg.HealthCheckTimeout, func(ctx context.Context) error {
		return callHealthCheck(ctx, def.HealthCheck, instance)
	})
	r.metrics.RecordHealthCheck(def.Name, err)
	return err
}
