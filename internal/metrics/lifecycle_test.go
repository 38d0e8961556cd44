package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilLifecycleIsNoop(t *testing.T) {
	var m *Lifecycle
	assert.Nil(t, New(nil))

	assert.NotPanics(t, func() {
		m.ObserveStart("svc", time.Second, nil)
		m.ObserveStage("0", time.Second)
		m.SetStatus("svc", 2)
		m.RecordStop("svc", nil)
		m.RecordEmergencyStop("svc", "critical", nil)
		m.RecordHealthCheck("svc", nil)
		m.RecordListenerFailure("l", "failed")
	})
}

func TestLifecycleCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	require.NotNil(t, m)

	m.SetStatus("can-bus", 2)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.serviceStatus.WithLabelValues("can-bus")))

	m.RecordEmergencyStop("brakes", "critical", nil)
	m.RecordEmergencyStop("brakes", "critical", errors.New("stuck"))
	m.RecordEmergencyStop("brakes", "critical", errors.New("stuck"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emergencyStops.WithLabelValues("brakes", "critical", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.emergencyStops.WithLabelValues("brakes", "critical", "error")))

	m.RecordHealthCheck("db", errors.New("timeout"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.healthChecks.WithLabelValues("db", "fail")))

	m.RecordListenerFailure("safety", "failed")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.listenerFailures.WithLabelValues("safety", "failed")))

	m.RecordStop("db", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stopOperations.WithLabelValues("db", "success")))

	m.ObserveStart("db", 20*time.Millisecond, nil)
	m.ObserveStage("0", 25*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(m.startDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}
