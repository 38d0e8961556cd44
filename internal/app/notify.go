package app

import (
	"fmt"

	"github.com/coreos/go-systemd/v22/daemon"

	"rvkernel/pkg/logging"
)

// Notifier reports process state to a service manager.
type Notifier interface {
	Notify(state string) error
}

// systemdNotifier sends sd_notify messages. Outside systemd the socket is
// absent and every call is a no-op.
type systemdNotifier struct{}

func (systemdNotifier) Notify(state string) error {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		return fmt.Errorf("sd_notify %q: %w", state, err)
	}
	if !sent {
		logging.Debug("Bootstrap", "No service manager socket, skipped notification %q", state)
	}
	return nil
}

func notify(n Notifier, state string) {
	if err := n.Notify(state); err != nil {
		logging.Warn("Bootstrap", "Service manager notification failed: %v", err)
	}
}

func statusMessage(format string, args ...interface{}) string {
	return "STATUS=" + fmt.Sprintf(format, args...)
}
