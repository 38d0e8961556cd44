package events

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"rvkernel/internal/metrics"
	"rvkernel/pkg/logging"
)

// Listener reacts to lifecycle transitions. Implementations may block; the
// bus never assumes a hook returns quickly.
type Listener interface {
	OnPreShutdown(ctx context.Context, event LifecycleEvent) error
	OnStarted(ctx context.Context, event LifecycleEvent) error
	OnStopped(ctx context.Context, event LifecycleEvent) error
	// OnFailed runs synchronously on the goroutine that reported the
	// failure. The reporter does not continue until it returns.
	OnFailed(ctx context.Context, event LifecycleEvent) error
}

// Hooks adapts a set of optional functions to Listener. Nil hooks are
// skipped.
type Hooks struct {
	PreShutdown func(ctx context.Context, event LifecycleEvent) error
	Started     func(ctx context.Context, event LifecycleEvent) error
	Stopped     func(ctx context.Context, event LifecycleEvent) error
	Failed      func(ctx context.Context, event LifecycleEvent) error
}

func (h Hooks) OnPreShutdown(ctx context.Context, event LifecycleEvent) error {
	if h.PreShutdown == nil {
		return nil
	}
	return h.PreShutdown(ctx, event)
}

func (h Hooks) OnStarted(ctx context.Context, event LifecycleEvent) error {
	if h.Started == nil {
		return nil
	}
	return h.Started(ctx, event)
}

func (h Hooks) OnStopped(ctx context.Context, event LifecycleEvent) error {
	if h.Stopped == nil {
		return nil
	}
	return h.Stopped(ctx, event)
}

func (h Hooks) OnFailed(ctx context.Context, event LifecycleEvent) error {
	if h.Failed == nil {
		return nil
	}
	return h.Failed(ctx, event)
}

// SafetyTransitionFailure is a failure listener that returned an error or
// panicked while handling a Failed event.
type SafetyTransitionFailure struct {
	Listener string
	Service  string
	Err      error
}

func (e *SafetyTransitionFailure) Error() string {
	return fmt.Sprintf("safety transition failed: listener %s could not handle failure of %s: %v", e.Listener, e.Service, e.Err)
}

func (e *SafetyTransitionFailure) Unwrap() error {
	return e.Err
}

// IsSafetyTransitionFailure reports whether err is or wraps a SafetyTransitionFailure.
func IsSafetyTransitionFailure(err error) bool {
	var target *SafetyTransitionFailure
	return errors.As(err, &target)
}

// Config configures a Bus.
type Config struct {
	// ListenerTimeout bounds how long a non-failure notification waits for
	// each listener. Zero waits until the caller's context ends. Failure
	// notifications are never bounded.
	ListenerTimeout time.Duration
	// Templates overrides the log message template of individual kinds.
	Templates map[Kind]string
	Metrics   *metrics.Lifecycle
}

type subscription struct {
	name     string
	priority int
	seq      uint64
	listener Listener
}

// Bus delivers lifecycle events to subscribed listeners, highest priority
// first.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
	seq  uint64

	listenerTimeout time.Duration
	templates       *MessageTemplateEngine
	metrics         *metrics.Lifecycle
}

// NewBus creates an empty bus.
func NewBus(cfg Config) *Bus {
	templates := NewMessageTemplateEngine()
	for kind, template := range cfg.Templates {
		templates.SetTemplate(kind, template)
	}
	return &Bus{
		listenerTimeout: cfg.ListenerTimeout,
		templates:       templates,
		metrics:         cfg.Metrics,
	}
}

// Describe renders the human-readable message the bus logs for event.
func (b *Bus) Describe(event LifecycleEvent) string {
	return b.templates.Render(event)
}

// Subscribe adds listener under name. Subscribing an existing name replaces
// its listener and priority, so each name is delivered to at most once per
// event. Listeners with equal priority are notified in subscription order.
func (b *Bus) Subscribe(name string, priority int, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	idx := slices.IndexFunc(b.subs, func(s subscription) bool { return s.name == name })
	if idx >= 0 {
		b.subs[idx].priority = priority
		b.subs[idx].listener = listener
	} else {
		b.subs = append(b.subs, subscription{name: name, priority: priority, seq: b.seq, listener: listener})
	}

	slices.SortStableFunc(b.subs, func(a, c subscription) int {
		if a.priority != c.priority {
			return c.priority - a.priority
		}
		if a.seq < c.seq {
			return -1
		}
		if a.seq > c.seq {
			return 1
		}
		return 0
	})
	logging.Debug("LifecycleBus", "Subscribed listener %s with priority %d", name, priority)
}

// Unsubscribe removes the listener registered under name.
func (b *Bus) Unsubscribe(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := slices.IndexFunc(b.subs, func(s subscription) bool { return s.name == name })
	if idx < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, idx, idx+1)
	return true
}

// Listeners returns the subscribed names in delivery order.
func (b *Bus) Listeners() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, len(b.subs))
	for i, s := range b.subs {
		names[i] = s.name
	}
	return names
}

func (b *Bus) snapshot() []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.subs)
}

// NotifyPreShutdown tells listeners a service is about to stop.
func (b *Bus) NotifyPreShutdown(ctx context.Context, service string, metadata map[string]interface{}) {
	b.notify(ctx, newEvent(KindPreShutdown, service, metadata))
}

// NotifyStarted tells listeners a service became Healthy.
func (b *Bus) NotifyStarted(ctx context.Context, service string, metadata map[string]interface{}) {
	b.notify(ctx, newEvent(KindStarted, service, metadata))
}

// NotifyStopped tells listeners a service has stopped.
func (b *Bus) NotifyStopped(ctx context.Context, service string, metadata map[string]interface{}) {
	b.notify(ctx, newEvent(KindStopped, service, metadata))
}

// notify delivers a non-failure event to each listener in turn. A listener
// that errors, panics or overruns its timeout is logged and skipped.
func (b *Bus) notify(ctx context.Context, event LifecycleEvent) {
	logging.Debug("LifecycleBus", "%s", b.Describe(event))
	for _, sub := range b.snapshot() {
		if err := b.deliverBounded(ctx, sub, event); err != nil {
			b.metrics.RecordListenerFailure(sub.name, string(event.Kind))
			logging.Error("LifecycleBus", err, "Listener %s failed handling %s for %s", sub.name, event.Kind, event.ServiceName)
		}
	}
}

func (b *Bus) deliverBounded(ctx context.Context, sub subscription, event LifecycleEvent) error {
	lctx, cancel := ctx, context.CancelFunc(func() {})
	if b.listenerTimeout > 0 {
		lctx, cancel = context.WithTimeout(ctx, b.listenerTimeout)
	}
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- invoke(lctx, sub.listener, event)
	}()

	select {
	case err := <-done:
		return err
	case <-lctx.Done():
		return fmt.Errorf("listener still running, continuing without it: %w", lctx.Err())
	}
}

// NotifyFailed delivers a Failed event and returns only after every
// listener has finished handling it, on the caller's goroutine and in
// priority order. The caller's cancellation does not cut delivery short.
//
// A listener fault is logged at Critical severity and delivery continues
// with the next listener. The returned error joins every
// SafetyTransitionFailure and is nil when all listeners succeeded.
func (b *Bus) NotifyFailed(ctx context.Context, service string, reason FailureReason, cause error, metadata map[string]interface{}) error {
	event := newEvent(KindFailed, service, metadata)
	event.FailureReason = reason
	if cause != nil {
		event.ErrorMessage = cause.Error()
	}

	ctx = context.WithoutCancel(ctx)
	subs := b.snapshot()
	logging.Debug("LifecycleBus", "%s, delivering to %d listeners", b.Describe(event), len(subs))

	var failures []error
	for _, sub := range subs {
		if err := invoke(ctx, sub.listener, event); err != nil {
			failure := &SafetyTransitionFailure{Listener: sub.name, Service: service, Err: err}
			b.metrics.RecordListenerFailure(sub.name, string(KindFailed))
			logging.Critical("LifecycleBus", err, "Failure listener %s did not complete for %s", sub.name, service)
			failures = append(failures, failure)
		}
	}
	return errors.Join(failures...)
}

func invoke(ctx context.Context, listener Listener, event LifecycleEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panicked: %v", r)
		}
	}()

	switch event.Kind {
	case KindPreShutdown:
		return listener.OnPreShutdown(ctx, event)
	case KindStarted:
		return listener.OnStarted(ctx, event)
	case KindStopped:
		return listener.OnStopped(ctx, event)
	case KindFailed:
		return listener.OnFailed(ctx, event)
	default:
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}
}
