package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"rvkernel/internal/events"
	"rvkernel/pkg/logging"
)

// stopClaim is the exclusive right to stop one instance.
type stopClaim struct {
	def      Definition
	instance any
	bgCancel context.CancelFunc
	bgDone   chan struct{}
}

// claimStop reserves the instance of name for exactly one stopper. When
// another caller already owns the stop, wait is closed once that stop has
// finished. Both results are nil when there is no instance to stop.
func (r *Registry) claimStop(name string) (claim *stopClaim, wait <-chan struct{}, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, nil, &NotFoundError{Name: name}
	}
	if e.stopDone != nil {
		return nil, e.stopDone, nil
	}
	if e.instance == nil {
		return nil, nil, nil
	}

	e.stopDone = make(chan struct{})
	claim = &stopClaim{def: e.def, instance: e.instance, bgCancel: e.bgCancel, bgDone: e.bgDone}
	e.bgCancel, e.bgDone = nil, nil
	return claim, nil, nil
}

func (r *Registry) finishStop(name string, stopErr error, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[name]
	e.instance = nil
	e.stopErr = stopErr
	e.timing.Stop = elapsed
	if stopErr != nil {
		e.lastErr = stopErr
	}
	r.setStatus(e, StatusStopped)
	close(e.stopDone)
}

// releaseStop gives a claim back without stopping the instance. Callers
// already waiting on the claim see stopErr; the next caller may claim again.
func (r *Registry) releaseStop(name string, claim *stopClaim, stopErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entries[name]
	e.bgCancel, e.bgDone = claim.bgCancel, claim.bgDone
	e.stopErr = stopErr
	e.lastErr = stopErr
	close(e.stopDone)
	e.stopDone = nil
}

func (r *Registry) stopResult(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.entries[name].stopErr
}

// ShutdownAll stops every running service, last stage first. Members of a
// stage stop concurrently. A failing stop is logged and never prevents the
// remaining stops; the faults are returned as a *ShutdownError.
func (r *Registry) ShutdownAll(ctx context.Context) error {
	stages := r.Stages()
	if stages == nil {
		return nil
	}

	logging.Info("Registry", "Shutting down %d stages", len(stages))
	begin := time.Now()
	var failures []StopFailure
	for i := len(stages) - 1; i >= 0; i-- {
		failures = append(failures, r.stopStage(ctx, stages[i], "shutdown")...)
	}

	elapsed := time.Since(begin)
	r.mu.Lock()
	r.report.Shutdown = elapsed
	r.mu.Unlock()

	if len(failures) > 0 {
		err := &ShutdownError{Failures: failures}
		logging.Warn("Registry", "Shutdown finished in %s with errors: %v", elapsed.Round(time.Millisecond), err)
		return err
	}
	logging.Info("Registry", "Shutdown finished in %s", elapsed.Round(time.Millisecond))
	return nil
}

// emergencyCleanup stops everything that reached Healthy after a failed
// startup. Secondary errors are logged only.
func (r *Registry) emergencyCleanup(ctx context.Context) {
	stages := r.Stages()
	ctx = context.WithoutCancel(ctx)
	for i := len(stages) - 1; i >= 0; i-- {
		for _, f := range r.stopStage(ctx, stages[i], "startup cleanup") {
			logging.Warn("Registry", "Cleanup of %s failed: %v", f.Service, f.Err)
		}
	}
}

func (r *Registry) stopStage(ctx context.Context, names []string, cause string) []StopFailure {
	var (
		mu       sync.Mutex
		failures []StopFailure
	)
	g := new(errgroup.Group)
	if r.cfg.MaxParallel > 0 {
		g.SetLimit(r.cfg.MaxParallel)
	}
	for _, name := range names {
		g.Go(func() error {
			if err := r.stopService(ctx, name, cause); err != nil {
				mu.Lock()
				failures = append(failures, StopFailure{Service: name, Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(failures, func(a, b StopFailure) int {
		if a.Service < b.Service {
			return -1
		}
		if a.Service > b.Service {
			return 1
		}
		return 0
	})
	return failures
}

// stopService performs the ordinary stop of one service. Services with no
// instance, or already stopped by someone else, are skipped. A claim given
// back unstopped is claimed again.
func (r *Registry) stopService(ctx context.Context, name, cause string) error {
	claim, wait, err := r.claimStop(name)
	if wait != nil {
		<-wait
		claim, wait, err = r.claimStop(name)
	}
	if err != nil || claim == nil {
		if wait != nil {
			<-wait
		}
		return err
	}

	r.bus.NotifyPreShutdown(ctx, name, map[string]interface{}{events.MetaReason: cause})
	begin := time.Now()
	r.stopBackground(name, claim)

	var stopErr error
	if claim.def.Stop != nil {
		stopErr = runBounded(ctx, r.cfg.StopTimeout, func(ctx context.Context) error {
			return callStop(ctx, claim.def.Stop, claim.instance)
		})
	}
	elapsed := time.Since(begin)
	r.finishStop(name, stopErr, elapsed)
	r.metrics.RecordStop(name, stopErr)

	if stopErr != nil {
		logging.Warn("Registry", "Stop of %s failed: %v", name, stopErr)
	} else {
		logging.Debug("Registry", "Service %s stopped in %s", name, elapsed)
	}
	r.bus.NotifyStopped(ctx, name, map[string]interface{}{events.MetaReason: cause})
	return stopErr
}

// stopBackground cancels the background task and waits a bounded time for
// it to exit. A task that ignores cancellation is logged as stuck.
func (r *Registry) stopBackground(name string, claim *stopClaim) {
	if claim.bgCancel == nil {
		return
	}
	claim.bgCancel()

	timer := time.NewTimer(r.cfg.BackgroundStopTimeout)
	defer timer.Stop()
	select {
	case <-claim.bgDone:
	case <-timer.C:
		logging.Warn("Registry", "Background task of %s still running %s after cancellation, continuing", name, r.cfg.BackgroundStopTimeout)
	}
}

// EmergencyStopService stops one service using its emergency-stop
// operation, falling back to its ordinary stop. triggeredBy names the
// service or operator that requested the stop and is carried on the
// lifecycle events.
//
// A service that is already stopped, or being stopped by another caller,
// is not stopped again; the outcome of that stop is returned instead. A
// service with no running instance is already safe and reports success.
// A service with neither operation is left running with its status
// unchanged and ErrNoStopOperation is returned.
func (r *Registry) EmergencyStopService(ctx context.Context, name, reason, triggeredBy string) error {
	claim, wait, err := r.claimStop(name)
	if err != nil {
		return err
	}
	if wait != nil {
		select {
		case <-wait:
			return r.stopResult(name)
		case <-ctx.Done():
			return fmt.Errorf("waiting for stop of %s already in progress: %w", name, ctx.Err())
		}
	}
	if claim == nil {
		logging.Debug("Registry", "Emergency stop of %s skipped, nothing running", name)
		return nil
	}

	stop := claim.def.EmergencyStop
	if stop == nil {
		stop = claim.def.Stop
	}
	if stop == nil {
		stopErr := fmt.Errorf("emergency stop of %s: %w", name, ErrNoStopOperation)
		r.releaseStop(name, claim, stopErr)
		return stopErr
	}

	metadata := map[string]interface{}{
		events.MetaEmergency:   true,
		events.MetaReason:      reason,
		events.MetaTriggeredBy: triggeredBy,
	}
	r.bus.NotifyPreShutdown(ctx, name, metadata)

	begin := time.Now()
	r.stopBackground(name, claim)
	stopErr := runBounded(ctx, r.cfg.StopTimeout, func(ctx context.Context) error {
		return callStop(ctx, stop, claim.instance)
	})
	if stopErr != nil {
		stopErr = fmt.Errorf("emergency stop of %s: %w", name, stopErr)
	}
	r.finishStop(name, stopErr, time.Since(begin))

	r.bus.NotifyStopped(ctx, name, metadata)
	return stopErr
}
