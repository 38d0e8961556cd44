// Package events carries lifecycle transitions from the service registry to
// reactive consumers such as safety interlocks, telemetry and UI bridges.
//
// Listeners subscribe under a unique name with a priority; higher priorities
// are notified first and equal priorities keep subscription order.
//
// Started, PreShutdown and Stopped notifications are delivered in priority
// order, each listener bounded by Config.ListenerTimeout. A listener that
// errors, panics or overruns is logged and the remaining listeners are still
// notified.
//
// Failed notifications are different. NotifyFailed runs every listener on
// the caller's goroutine and returns only after the last one has finished,
// so a safety listener can complete a safe-state transition before the
// registry runs its cleanup:
//
//	bus := events.NewBus(events.Config{ListenerTimeout: 2 * time.Second})
//	bus.Subscribe("interlock", 100, events.Hooks{
//		Failed: func(ctx context.Context, e events.LifecycleEvent) error {
//			return engageParkingBrake(ctx)
//		},
//	})
//
// A failure listener fault is logged at Critical severity and returned to
// the caller as a SafetyTransitionFailure; it never stops delivery to the
// listeners after it.
package events
