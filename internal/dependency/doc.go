// Package dependency models service dependencies and computes the order in
// which services can be started.
//
// # Dependency kinds
//
//   - Required: the service cannot start until the dependency is healthy.
//     A Required dependency that names no registered service is substituted
//     by its fallback, if one is declared and registered; otherwise
//     resolution fails with a ConfigurationError.
//   - Optional: used if registered, silently dropped if not. Optional edges
//     do not influence staging.
//   - Runtime: never checked during resolution. ValidateRuntimeDependencies
//     audits them once the system is running.
//
// # Resolution
//
// Resolve runs four steps over a graph rebuilt from the declarations:
//
//  1. Validate Required edges, substituting fallbacks.
//  2. Detect cycles with a depth-first walk. Every independent cycle is
//     reported in one CycleError, rendered as "a → b → c → a".
//  3. Build baseline stages by repeatedly taking every node whose Required
//     dependencies are already placed.
//  4. Re-place each node at max(stage of its Required deps)+1, which is never
//     later than its baseline stage.
//
// Stages are contiguous from 0 and sorted by name. Services inside a stage
// share no Required edges and may be started concurrently.
//
// # Usage
//
//	r := dependency.NewResolver()
//	r.Add("config", nil)
//	r.Add("db", []dependency.Dependency{dependency.Required("config")})
//	r.Add("cache", []dependency.Dependency{dependency.Required("config")})
//	r.Add("api", []dependency.Dependency{
//	    dependency.Required("db"),
//	    dependency.Required("cache"),
//	    dependency.Runtime("telemetry"),
//	})
//
//	stages, err := r.Resolve()
//	// stages: [[config] [cache db] [api]]
//
//	r.ImpactedServices("db")
//	// [api]
//
// The resolver is safe for concurrent use. Resolve has no side effects and
// returns the same stages for an unmodified set of declarations.
package dependency
