package app

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"rvkernel/internal/config"
	"rvkernel/internal/formatting"
)

type recordingNotifier struct {
	mu     sync.Mutex
	states []string
	ready  chan struct{}
	once   sync.Once
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ready: make(chan struct{})}
}

func (n *recordingNotifier) Notify(state string) error {
	n.mu.Lock()
	n.states = append(n.states, state)
	n.mu.Unlock()
	if state == "READY=1" {
		n.once.Do(func() { close(n.ready) })
	}
	return nil
}

func (n *recordingNotifier) States() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.states...)
}

// syncBuffer is written by the health monitor while the test reads it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApplication(t *testing.T, mutate func(c *config.KernelConfig)) (*Application, *recordingNotifier, *syncBuffer) {
	t.Helper()
	kcfg := config.GetDefaultConfig()
	kcfg.Health.Interval = 0
	if mutate != nil {
		mutate(&kcfg)
	}

	notifier := newRecordingNotifier()
	out := &syncBuffer{}
	cfg := NewConfig(false, true, "")
	cfg.KernelConfig = &kcfg
	cfg.Notifier = notifier
	cfg.Output = out
	cfg.OutputFormat = formatting.FormatConsole

	application, err := NewApplication(cfg)
	require.NoError(t, err)
	return application, notifier, out
}

func noopInit(context.Context) (any, error) {
	return struct{}{}, nil
}
