package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rvkernel/internal/dependency"
	"rvkernel/internal/events"
)

func TestStartupAll_StagesAndImpact(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})

	require.NoError(t, reg.Register(service(j, "config")))
	require.NoError(t, reg.Register(service(j, "db", dependency.Required("config"))))
	require.NoError(t, reg.Register(service(j, "cache", dependency.Required("config"))))
	require.NoError(t, reg.Register(service(j, "api", dependency.Required("db"), dependency.Required("cache"))))

	require.NoError(t, reg.StartupAll(context.Background()))

	assert.Equal(t, [][]string{{"config"}, {"cache", "db"}, {"api"}}, reg.Stages())
	for _, name := range []string{"config", "db", "cache", "api"} {
		status, err := reg.Status(name)
		require.NoError(t, err)
		assert.Equal(t, StatusHealthy, status, name)
	}

	entries := j.get()
	require.Len(t, entries, 4)
	assert.Equal(t, "init:config", entries[0])
	assert.ElementsMatch(t, []string{"init:db", "init:cache"}, entries[1:3])
	assert.Equal(t, "init:api", entries[3])

	assert.Equal(t, []string{"api"}, reg.ImpactedServices("db"))
	assert.Equal(t, []string{"api", "cache", "db"}, reg.ImpactedServices("config"))

	db, err := GetAs[*fakeInstance](reg, "db")
	require.NoError(t, err)
	assert.Equal(t, "db", db.name)
}

func TestStartupAll_IndependentServicesStartConcurrently(t *testing.T) {
	const n = 5
	reg := NewRegistry(Config{})

	var arrived sync.WaitGroup
	arrived.Add(n)
	allArrived := make(chan struct{})
	go func() {
		arrived.Wait()
		close(allArrived)
	}()

	names := []string{"can0", "can1", "gps", "imu", "storage"}
	for _, name := range names {
		require.NoError(t, reg.Register(Definition{
			Name: name,
			Init: func(ctx context.Context) (any, error) {
				arrived.Done()
				// No init may complete until every init has been invoked.
				select {
				case <-allArrived:
					return name, nil
				case <-time.After(5 * time.Second):
					return nil, errors.New("siblings were not started concurrently")
				}
			},
		}))
	}

	require.NoError(t, reg.StartupAll(context.Background()))
	assert.Equal(t, [][]string{names}, reg.Stages())
}

func TestStartupAll_SiblingFailureCleansUpOnce(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})
	failureJournal(reg.Bus(), j)

	goodStarted := make(chan struct{})
	require.NoError(t, reg.Register(Definition{
		Name: "good",
		Init: func(context.Context) (any, error) {
			defer close(goodStarted)
			j.add("init:good")
			return &fakeInstance{name: "good"}, nil
		},
		Stop: func(context.Context, any) error {
			j.add("stop:good")
			return nil
		},
	}))
	require.NoError(t, reg.Register(Definition{
		Name: "bad",
		Init: func(context.Context) (any, error) {
			<-goodStarted
			return nil, errors.New("can0: no such device")
		},
	}))
	require.NoError(t, reg.Register(service(j, "decoder", dependency.Required("bad"))))
	require.NoError(t, reg.Register(service(j, "ui", dependency.Required("decoder"))))

	err := reg.StartupAll(context.Background())
	require.Error(t, err)

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Equal(t, 0, startupErr.Stage)
	require.Len(t, startupErr.Failures, 1)
	assert.Equal(t, "bad", startupErr.Failures[0].Service)
	assert.Equal(t, events.ReasonStartupFailed, startupErr.Failures[0].Reason)
	assert.Equal(t, []string{"decoder", "ui"}, startupErr.Failures[0].Impacted)
	assert.Contains(t, err.Error(), "bad")
	assert.Contains(t, err.Error(), "decoder, ui")
	assert.Equal(t, []string{"bad"}, startupErr.FailedServices())

	assert.Equal(t, 1, j.count("stop:good"))
	assert.Equal(t, -1, j.index("init:decoder"), "later stages must not run")
	assert.Less(t, j.index("failed:bad"), j.index("stop:good"), "failure must be delivered before cleanup")

	status, _ := reg.Status("good")
	assert.Equal(t, StatusStopped, status)
	status, _ = reg.Status("bad")
	assert.Equal(t, StatusFailed, status)
	status, _ = reg.Status("decoder")
	assert.Equal(t, StatusPending, status)

	require.NoError(t, reg.ShutdownAll(context.Background()))
	assert.Equal(t, 1, j.count("stop:good"), "shutdown must not stop a cleaned up service again")

	report := reg.StartupReport()
	assert.False(t, report.Succeeded)
	require.Len(t, report.Stages, 1)
}

func TestStartupAll_FailureListenerRunsBeforeCleanup(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})

	release := make(chan struct{})
	entered := make(chan struct{})
	reg.Bus().Subscribe("interlock", 100, events.Hooks{
		Failed: func(context.Context, events.LifecycleEvent) error {
			close(entered)
			<-release
			j.add("interlock:safe")
			return nil
		},
	})

	require.NoError(t, reg.Register(service(j, "pump")))
	require.NoError(t, reg.Register(Definition{
		Name: "sensor",
		Init: func(context.Context) (any, error) { return nil, errors.New("bad reading") },
	}))

	done := make(chan error, 1)
	go func() { done <- reg.StartupAll(context.Background()) }()

	<-entered
	select {
	case <-done:
		t.Fatal("startup returned while the failure listener was still running")
	default:
	}
	assert.Equal(t, 0, j.count("stop:pump"), "cleanup must wait for the failure listener")

	close(release)
	require.Error(t, <-done)
	assert.Less(t, j.index("interlock:safe"), j.index("stop:pump"))
}

func TestStartupAll_FailureDeliveredAfterSiblingsSettle(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})
	failureJournal(reg.Bus(), j)

	failed := make(chan struct{})
	require.NoError(t, reg.Register(Definition{
		Name: "bad",
		Init: func(context.Context) (any, error) {
			defer close(failed)
			return nil, errors.New("can0: bus off")
		},
	}))
	require.NoError(t, reg.Register(Definition{
		Name: "slow",
		Init: func(context.Context) (any, error) {
			<-failed
			time.Sleep(20 * time.Millisecond)
			j.add("init:slow")
			return &fakeInstance{name: "slow"}, nil
		},
		Stop: func(context.Context, any) error {
			j.add("stop:slow")
			return nil
		},
	}))

	require.Error(t, reg.StartupAll(context.Background()))
	assert.Equal(t, []string{"init:slow", "failed:bad", "stop:slow"}, j.get())
}

func TestStartupAll_ListenerFaultIsSurfaced(t *testing.T) {
	reg := NewRegistry(Config{})
	reg.Bus().Subscribe("broken", 1, events.Hooks{
		Failed: func(context.Context, events.LifecycleEvent) error { return errors.New("relay stuck") },
	})
	require.NoError(t, reg.Register(Definition{
		Name: "sensor",
		Init: func(context.Context) (any, error) { return nil, errors.New("bad reading") },
	}))

	err := reg.StartupAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsStartupError(err))
	assert.True(t, events.IsSafetyTransitionFailure(err))
}

func TestStartupAll_ResolutionErrors(t *testing.T) {
	t.Run("missing dependency", func(t *testing.T) {
		j := &journal{}
		reg := NewRegistry(Config{})
		require.NoError(t, reg.Register(service(j, "api", dependency.Required("db"))))

		err := reg.StartupAll(context.Background())
		assert.True(t, dependency.IsConfigurationError(err))
		assert.Empty(t, j.get())
	})

	t.Run("cycle", func(t *testing.T) {
		j := &journal{}
		reg := NewRegistry(Config{})
		require.NoError(t, reg.Register(service(j, "a", dependency.Required("b"))))
		require.NoError(t, reg.Register(service(j, "b", dependency.Required("a"))))

		err := reg.StartupAll(context.Background())
		assert.True(t, dependency.IsCycleError(err))
		assert.Empty(t, j.get())
	})

	t.Run("fallback", func(t *testing.T) {
		j := &journal{}
		reg := NewRegistry(Config{})
		require.NoError(t, reg.Register(service(j, "sqlite")))
		require.NoError(t, reg.Register(service(j, "api", dependency.Required("postgres").WithFallback("sqlite"))))

		require.NoError(t, reg.StartupAll(context.Background()))
		assert.Equal(t, [][]string{{"sqlite"}, {"api"}}, reg.Stages())
	})
}

func TestStartupAll_InitPanicBecomesFailure(t *testing.T) {
	reg := NewRegistry(Config{})
	require.NoError(t, reg.Register(Definition{
		Name: "decoder",
		Init: func(context.Context) (any, error) { panic("nil frame table") },
	}))

	err := reg.StartupAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil frame table")
}

func TestStartupAll_InitTimeout(t *testing.T) {
	reg := NewRegistry(Config{ServiceTimeout: 20 * time.Millisecond})
	require.NoError(t, reg.Register(Definition{
		Name: "modem",
		Init: func(ctx context.Context) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}))

	err := reg.StartupAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestStartupAll_HealthCheckOnStartup(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{HealthCheckOnStartup: true})
	def := service(j, "gps")
	def.HealthCheck = func(context.Context, any) error { return errors.New("no fix") }
	require.NoError(t, reg.Register(def))

	err := reg.StartupAll(context.Background())
	require.Error(t, err)

	var startupErr *StartupError
	require.True(t, errors.As(err, &startupErr))
	assert.Equal(t, events.ReasonHealthCheckFailed, startupErr.Failures[0].Reason)
	assert.Equal(t, 1, j.count("stop:gps"), "the rejected instance is released")
}

func TestStartupAll_OnlyOnce(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})
	require.NoError(t, reg.Register(service(j, "a")))
	require.NoError(t, reg.StartupAll(context.Background()))

	assert.ErrorIs(t, reg.StartupAll(context.Background()), ErrAlreadyStarted)
	assert.ErrorIs(t, reg.Register(service(j, "b")), ErrAlreadyStarted)
}

func TestStartupAll_CancelledContext(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})
	require.NoError(t, reg.Register(service(j, "a")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := reg.StartupAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, j.get())
}

func TestUnhealthyRequired(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})
	require.NoError(t, reg.Register(service(j, "a")))
	require.NoError(t, reg.Register(service(j, "b", dependency.Required("a"), dependency.Optional("c"))))

	plan, err := reg.Plan()
	require.NoError(t, err)
	reg.plan = plan

	assert.Equal(t, []string{"a"}, reg.unhealthyRequired("b"))

	reg.entries["a"].status = StatusHealthy
	assert.Empty(t, reg.unhealthyRequired("b"))

	reg.entries["a"].status = StatusDegraded
	assert.Equal(t, []string{"a"}, reg.unhealthyRequired("b"))
}

func TestStartupAll_RuntimeAudit(t *testing.T) {
	j := &journal{}
	reg := NewRegistry(Config{})
	require.NoError(t, reg.Register(service(j, "api", dependency.Runtime("telemetry"))))

	require.NoError(t, reg.StartupAll(context.Background()))
	assert.Equal(t, map[string][]string{"api": {"telemetry"}}, reg.ValidateRuntimeDependencies())
}

func TestStartupAll_BackgroundFailureIsReported(t *testing.T) {
	reg := NewRegistry(Config{})
	failed := make(chan events.LifecycleEvent, 1)
	reg.Bus().Subscribe("watch", 0, events.Hooks{
		Failed: func(_ context.Context, e events.LifecycleEvent) error {
			failed <- e
			return nil
		},
	})

	crash := make(chan struct{})
	require.NoError(t, reg.Register(Definition{
		Name: "poller",
		Init: func(context.Context) (any, error) { return "poller", nil },
		Background: func(ctx context.Context, _ any) error {
			<-crash
			return errors.New("bus off")
		},
	}))
	require.NoError(t, reg.StartupAll(context.Background()))

	close(crash)
	event := <-failed
	assert.Equal(t, "poller", event.ServiceName)
	assert.Equal(t, events.ReasonRuntimeError, event.FailureReason)
	assert.Contains(t, event.ErrorMessage, "bus off")

	status, _ := reg.Status("poller")
	assert.Equal(t, StatusFailed, status)
}
