package services

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rvkernel/internal/events"
	"rvkernel/pkg/logging"
)

// StartupAll resolves the dependency graph and starts every service, one
// stage at a time. Members of a stage start concurrently and the next stage
// begins only after all of them have settled.
//
// Resolution errors are returned before anything starts. If any member of
// a stage fails, the remaining siblings are allowed to finish first. Each
// failure is then delivered to the bus synchronously, every service that
// reached Healthy is stopped in reverse order and a *StartupError is
// returned. Later stages never run after a failure.
func (r *Registry) StartupAll(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.started = true
	r.mu.Unlock()

	plan, err := r.resolver.Plan()
	if err != nil {
		logging.Error("Registry", err, "Refusing to start, dependency resolution failed")
		return err
	}

	r.mu.Lock()
	r.plan = plan
	for i, stage := range plan.Stages {
		for _, name := range stage {
			r.entries[name].stage = i
		}
	}
	r.mu.Unlock()

	for _, sub := range plan.Substitutions {
		logging.Info("Registry", "Service %s uses %s in place of missing %s", sub.Service, sub.Fallback, sub.Missing)
	}
	logging.Info("Registry", "Starting %d services in %d stages", len(plan.Nodes), len(plan.Stages))

	begin := time.Now()
	for i, stage := range plan.Stages {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err := fmt.Errorf("startup cancelled before stage %d: %w", i, ctxErr)
			logging.Error("Registry", err, "Aborting startup")
			r.emergencyCleanup(ctx)
			r.finishReport(begin, false)
			return err
		}
		if err := r.runStage(ctx, i, stage); err != nil {
			r.finishReport(begin, false)
			return err
		}
	}
	r.finishReport(begin, true)

	logging.Info("Registry", "All %d services healthy after %s", len(plan.Nodes), time.Since(begin).Round(time.Millisecond))
	r.auditRuntimeDependencies()
	return nil
}

func (r *Registry) runStage(ctx context.Context, stage int, names []string) error {
	logging.Debug("Registry", "Stage %d: starting %v", stage, names)
	begin := time.Now()

	var (
		mu       sync.Mutex
		failures []ServiceFailure
	)
	// Siblings report failure through the slice and never cancel each
	// other; Wait returns only after every member has settled. Listeners
	// hear about failures only once no sibling is still starting.
	g := new(errgroup.Group)
	if r.cfg.MaxParallel > 0 {
		g.SetLimit(r.cfg.MaxParallel)
	}
	for _, name := range names {
		g.Go(func() error {
			if failure := r.startService(ctx, stage, name); failure != nil {
				mu.Lock()
				failures = append(failures, *failure)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	elapsed := time.Since(begin)
	r.recordStage(stage, names, elapsed)
	r.metrics.ObserveStage(strconv.Itoa(stage), elapsed)

	if len(failures) == 0 {
		logging.Debug("Registry", "Stage %d settled in %s", stage, elapsed)
		return nil
	}

	slices.SortFunc(failures, func(a, b ServiceFailure) int {
		if a.Service < b.Service {
			return -1
		}
		if a.Service > b.Service {
			return 1
		}
		return 0
	})
	for i := range failures {
		r.deliverFailure(ctx, stage, &failures[i])
	}
	startupErr := &StartupError{Stage: stage, Failures: failures}
	logging.Error("Registry", startupErr, "Stage %d failed, cleaning up started services", stage)
	r.emergencyCleanup(ctx)
	return startupErr
}

// startService runs one service through Starting to Healthy or Failed. A
// failure is returned undelivered; runStage hands it to the bus.
func (r *Registry) startService(ctx context.Context, stage int, name string) *ServiceFailure {
	r.mu.Lock()
	e := r.entries[name]
	def := e.def
	r.setStatus(e, StatusStarting)
	r.mu.Unlock()

	begin := time.Now()
	timing := Timing{Service: name, Stage: stage, StartedAt: begin}

	if notReady := r.unhealthyRequired(name); len(notReady) > 0 {
		timing.DependencyCheck = time.Since(begin)
		cause := &DependencyNotReadyError{Service: name, Dependencies: notReady}
		return r.failStart(e, events.ReasonDependencyFailed, cause, timing)
	}
	timing.DependencyCheck = time.Since(begin)

	initBegin := time.Now()
	instance, err := r.initialize(ctx, def)
	timing.Init = time.Since(initBegin)
	if err != nil {
		return r.failStart(e, events.ReasonStartupFailed, fmt.Errorf("initialize %s: %w", name, err), timing)
	}

	if r.cfg.HealthCheckOnStartup && def.HealthCheck != nil {
		if err := r.probe(ctx, def, instance); err != nil {
			r.discardInstance(name, def, instance)
			timing.Total = time.Since(begin)
			return r.failStart(e, events.ReasonHealthCheckFailed, fmt.Errorf("initial health check of %s: %w", name, err), timing)
		}
	}

	timing.Total = time.Since(begin)
	r.mu.Lock()
	e.instance = instance
	e.timing = timing
	r.setStatus(e, StatusHealthy)
	if def.Background != nil {
		r.startBackground(ctx, e, instance)
	}
	r.mu.Unlock()

	r.metrics.ObserveStart(name, timing.Total, nil)
	logging.Info("Registry", "Service %s healthy in %s", name, timing.Total.Round(time.Microsecond))
	r.bus.NotifyStarted(ctx, name, map[string]interface{}{
		events.MetaStage:    stage,
		events.MetaDuration: timing.Total,
	})
	return nil
}

func (r *Registry) failStart(e *entry, reason events.FailureReason, cause error, timing Timing) *ServiceFailure {
	name := e.def.Name
	if timing.Total == 0 {
		timing.Total = time.Since(timing.StartedAt)
	}

	r.mu.Lock()
	e.lastErr = cause
	e.timing = timing
	r.setStatus(e, StatusFailed)
	r.mu.Unlock()

	r.metrics.ObserveStart(name, timing.Total, cause)
	impacted := r.resolver.ImpactedServices(name)
	logging.Error("Registry", cause, "Service %s failed to start (impacts %v)", name, impacted)

	return &ServiceFailure{
		Service:  name,
		Reason:   reason,
		Err:      cause,
		Impacted: impacted,
	}
}

// deliverFailure hands one start failure to the bus and records whether
// every listener completed its safe-state handling.
func (r *Registry) deliverFailure(ctx context.Context, stage int, failure *ServiceFailure) {
	failure.NotifyErr = r.bus.NotifyFailed(ctx, failure.Service, failure.Reason, failure.Err, map[string]interface{}{
		events.MetaStage:    stage,
		events.MetaImpacted: failure.Impacted,
	})
	if failure.NotifyErr != nil {
		logging.Critical("Registry", failure.NotifyErr, "Safe-state handling for %s did not complete", failure.Service)
	}
}

// unhealthyRequired returns the Required dependencies of name that are not
// Healthy right now. A sibling may have failed moments earlier.
func (r *Registry) unhealthyRequired(name string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.plan.Nodes[name]
	if !ok {
		return nil
	}
	var notReady []string
	for _, dep := range node.Required() {
		if e, ok := r.entries[dep]; !ok || e.status != StatusHealthy {
			notReady = append(notReady, dep)
		}
	}
	return notReady
}

// initialize runs the init operation, bounded by ServiceTimeout. An
// instance that arrives after the deadline is stopped once it does.
func (r *Registry) initialize(ctx context.Context, def Definition) (any, error) {
	if r.cfg.ServiceTimeout <= 0 {
		return callInit(ctx, def.Init)
	}

	ictx, cancel := context.WithTimeout(ctx, r.cfg.ServiceTimeout)
	defer cancel()

	type result struct {
		instance any
		err      error
	}
	done := make(chan result, 1)
	go func() {
		instance, err := callInit(ictx, def.Init)
		done <- result{instance: instance, err: err}
	}()

	select {
	case res := <-done:
		return res.instance, res.err
	case <-ictx.Done():
		go func() {
			res := <-done
			if res.err == nil {
				logging.Warn("Registry", "Service %s finished init after being abandoned, releasing it", def.Name)
				r.discardInstance(def.Name, def, res.instance)
			}
		}()
		return nil, fmt.Errorf("init abandoned after %s: %w", r.cfg.ServiceTimeout, ictx.Err())
	}
}

// discardInstance stops an instance the registry never took ownership of.
func (r *Registry) discardInstance(name string, def Definition, instance any) {
	if def.Stop == nil || instance == nil {
		return
	}
	if err := runBounded(context.Background(), r.cfg.StopTimeout, func(ctx context.Context) error {
		return callStop(ctx, def.Stop, instance)
	}); err != nil {
		logging.Warn("Registry", "Releasing discarded instance of %s failed: %v", name, err)
	}
}

// startBackground must be called with r.mu held.
func (r *Registry) startBackground(ctx context.Context, e *entry, instance any) {
	name := e.def.Name
	task := e.def.Background
	bctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	e.bgCancel = cancel
	e.bgDone = done

	go func() {
		err := callBackground(bctx, task, instance)
		close(done)
		if err == nil || bctx.Err() != nil {
			logging.Debug("Registry", "Background task of %s exited", name)
			return
		}
		if reportErr := r.ReportFailure(bctx, name, fmt.Errorf("background task: %w", err)); reportErr != nil && !IsNotReady(reportErr) {
			logging.Critical("Registry", reportErr, "Failure of %s background task was not handled", name)
		}
	}()
	logging.Debug("Registry", "Started background task of %s", name)
}

// auditRuntimeDependencies logs every Runtime edge nothing running satisfies.
func (r *Registry) auditRuntimeDependencies() {
	missing := r.ValidateRuntimeDependencies()
	if len(missing) == 0 {
		return
	}
	names := make([]string, 0, len(missing))
	for name := range missing {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		logging.Warn("Registry", "Service %s is missing runtime dependencies %v", name, missing[name])
	}
}

func callInit(ctx context.Context, init InitFunc) (instance any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during init: %v", rec)
		}
	}()
	return init(ctx)
}

func callStop(ctx context.Context, stop StopFunc, instance any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during stop: %v", rec)
		}
	}()
	return stop(ctx, instance)
}

func callHealthCheck(ctx context.Context, check HealthCheckFunc, instance any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic during health check: %v", rec)
		}
	}()
	return check(ctx, instance)
}

func callBackground(ctx context.Context, task BackgroundFunc, instance any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in background task: %v", rec)
		}
	}()
	return task(ctx, instance)
}

// runBounded runs fn and stops waiting for it once timeout elapses. A zero
// timeout waits for fn to return.
func runBounded(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	bctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(bctx)
	}()

	select {
	case err := <-done:
		return err
	case <-bctx.Done():
		return fmt.Errorf("abandoned after %s: %w", timeout, bctx.Err())
	}
}
