// Package app bootstraps the orchestration kernel inside a host process.
//
// # Components
//
//  1. **Bootstrap (`bootstrap.go`)**: logging, configuration loading and the Application type
//  2. **Configuration (`config.go`)**: host runtime settings such as config path and output
//  3. **Services (`services.go`)**: wires metrics, bus, registry and safety coordinator, and
//     binds declared topology entries to their implementations
//  4. **Modes (`modes.go`)**: the run loop (startup, readiness, health monitoring, shutdown)
//  5. **Notifications (`notify.go`)**: sd_notify readiness reporting
//
// # Lifecycle
//
//	application, err := app.NewApplication(app.NewConfig(false, false, "/etc/rvkernel/config.yaml"))
//	if err != nil {
//	    return err
//	}
//	svcs := application.Services()
//	_ = svcs.RegisterService(services.Definition{
//	    Name: "can-bus",
//	    Init: openCANBus,
//	    Stop: closeCANBus,
//	}, safety.Critical)
//	return application.Run(ctx)
//
// Run calls StartupAll. On success it sends READY=1 to the service manager,
// then re-checks health every health.interval until the context ends or
// SIGINT/SIGTERM arrives, sends STOPPING=1 and runs ShutdownAll bounded by
// shutdown.timeout. On failure it sends a STATUS= line with the cause and
// returns the error; the registry has already stopped everything that had
// started.
//
// The safety coordinator is subscribed to the bus before any service
// starts, so a Critical service failing at any point drives the vehicle to
// its safe state before the failing operation returns.
package app
