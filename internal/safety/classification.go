package safety

import (
	"fmt"
	"strings"
)

// Classification ranks a service for emergency-stop sequencing.
type Classification string

// Classification values, in emergency-stop order.
const (
	// Critical services are stopped first.
	Critical Classification = "critical"
	// Operational services are stopped once every Critical stop has resolved.
	Operational Classification = "operational"
	// Maintenance services are never force-stopped.
	Maintenance Classification = "maintenance"
)

// tierOrder lists every classification in emergency-stop order.
var tierOrder = []Classification{Critical, Operational, Maintenance}

// ParseClassification accepts the classification names case-insensitively.
func ParseClassification(s string) (Classification, error) {
	c := Classification(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown safety classification %q (want critical, operational or maintenance)", s)
	}
	return c, nil
}

// Valid reports whether c is a known classification.
func (c Classification) Valid() bool {
	switch c {
	case Critical, Operational, Maintenance:
		return true
	default:
		return false
	}
}

// ForceStopped reports whether emergency stop includes this tier.
func (c Classification) ForceStopped() bool {
	return c == Critical || c == Operational
}

func (c Classification) String() string {
	return string(c)
}
