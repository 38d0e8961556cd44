// Package logging provides the structured logger shared by every rvkernel
// subsystem.
//
// It is a thin layer over log/slog. Callers tag each record with the
// subsystem that produced it instead of carrying logger instances around:
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//
//	logging.Info("Registry", "Starting stage %d with %d services", stage, n)
//	logging.Warn("Resolver", "Substituting fallback %s for %s", fallback, dep)
//	logging.Error("Registry", err, "Service %s failed to start", name)
//
// # Levels
//
//   - Debug, Info, Warn and Error map directly onto the slog levels.
//   - Critical sits above Error. It is reserved for safety transitions that
//     did not complete, for example a failure listener returning an error
//     while the vehicle is being forced into a safe state. Critical records
//     are written to stderr even if Init was never called.
//
// # Formats
//
// Init accepts FormatText (slog.TextHandler) or FormatJSON
// (slog.JSONHandler). Every record carries a "subsystem" attribute and,
// when present, an "error" attribute.
package logging
