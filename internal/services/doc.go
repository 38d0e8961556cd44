// Package services owns the runtime side of the kernel: service
// definitions, their instances and their status.
//
// A Definition declares a service by name with typed dependencies, an init
// operation and optional capabilities (health check, background task, stop,
// emergency stop). Capabilities are plain function fields, fixed at
// registration.
//
// # Startup
//
// StartupAll asks the dependency resolver for stages and walks them in
// order. Every member of a stage starts concurrently; the next stage starts
// only after all members have settled. Per service the registry re-checks
// that its Required dependencies are Healthy, runs init, starts the
// background task if one is declared, marks the service Healthy and
// publishes a Started event.
//
// When a service fails, the Failed event is delivered synchronously on the
// bus before anything else happens. Once the stage has settled, every
// service that reached Healthy is stopped in reverse stage order and a
// *StartupError naming each failed service and its impacted services is
// returned. No later stage runs.
//
// # Shutdown
//
// ShutdownAll walks the stages backwards. Background tasks are cancelled
// with a bounded wait, then each stop operation runs. Stop faults are
// logged and collected into a *ShutdownError; they never prevent the rest
// of the shutdown.
//
// Every instance is stopped at most once, whether by startup cleanup,
// ShutdownAll or EmergencyStopService.
//
// # Lookup
//
//	db, err := services.GetAs[*sql.DB](registry, "db")
//	switch {
//	case services.IsNotFound(err):
//		// never registered
//	case services.IsNotReady(err):
//		// registered but not Healthy
//	}
package services
