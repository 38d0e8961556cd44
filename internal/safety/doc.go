// Package safety classifies services by their role in keeping the vehicle
// safe and runs tiered emergency stops.
//
// An emergency stop walks the Critical tier, then the Operational tier.
// Services in a tier stop concurrently through the registry, using each
// service's emergency-stop operation when it has one and its ordinary stop
// otherwise. Unlike startup, an emergency stop never gives up early: every
// failure is recorded and the remaining services are still stopped.
// Maintenance services are never force-stopped.
//
// Attach wires the coordinator into the lifecycle bus so that the failure of
// any Critical service triggers an emergency stop before the failing caller
// regains control.
package safety
