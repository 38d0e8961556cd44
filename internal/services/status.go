package services

// Status is the lifecycle state of one service within a startup attempt.
//
//	Pending -> Starting -> Healthy <-> Degraded -> Stopped
//	                   \-> Failed
type Status int

const (
	StatusPending Status = iota
	StatusStarting
	StatusHealthy
	StatusDegraded
	StatusFailed
	// StatusStopped is set once shutdown or emergency stop has run for the
	// service.
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusStarting:
		return "Starting"
	case StatusHealthy:
		return "Healthy"
	case StatusDegraded:
		return "Degraded"
	case StatusFailed:
		return "Failed"
	case StatusStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// IsRunning reports whether the service holds a live instance.
func (s Status) IsRunning() bool {
	return s == StatusHealthy || s == StatusDegraded
}
