package permkit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestMutationMonitorRecord tests recording mutation outcomes
func TestMutationMonitorRecord(t *testing.T) {
	monitor := newMutationMonitor()

	monitor.record(mutationGrant, 10*time.Millisecond, true)
	monitor.record(mutationGrant, 30*time.Millisecond, true)
	monitor.record(mutationRevoke, 20*time.Millisecond, false)
	monitor.record(mutationSync, 40*time.Millisecond, true)

	m := monitor.metrics()
	assert.Equal(t, int64(2), m.Grants)
	assert.Equal(t, int64(1), m.Revokes)
	assert.Equal(t, int64(1), m.Syncs)
	assert.Equal(t, int64(1), m.Failed)
	assert.Equal(t, 25*time.Millisecond, m.AverageDuration)
	assert.Equal(t, 40*time.Millisecond, m.MaxDuration)
	assert.False(t, m.LastReset.IsZero())
}

// TestMutationMonitorEmpty tests metrics before any mutation
func TestMutationMonitorEmpty(t *testing.T) {
	monitor := newMutationMonitor()

	m := monitor.metrics()
	assert.Zero(t, m.Grants)
	assert.Zero(t, m.Failed)
	assert.Zero(t, m.AverageDuration)
	assert.Zero(t, m.MaxDuration)
}

// TestMutationMonitorReset tests clearing the counters
func TestMutationMonitorReset(t *testing.T) {
	monitor := newMutationMonitor()
	monitor.record(mutationGrant, 10*time.Millisecond, true)
	monitor.record(mutationRevoke, 10*time.Millisecond, false)

	before := monitor.metrics().LastReset
	time.Sleep(time.Millisecond)
	monitor.reset()

	m := monitor.metrics()
	assert.Zero(t, m.Grants)
	assert.Zero(t, m.Revokes)
	assert.Zero(t, m.Failed)
	assert.Zero(t, m.MaxDuration)
	assert.True(t, m.LastReset.After(before))
}

// TestMutationMonitorConcurrency tests concurrent recording
func TestMutationMonitorConcurrency(t *testing.T) {
	monitor := newMutationMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			monitor.record(mutationGrant, time.Millisecond, true)
			monitor.record(mutationRevoke, time.Millisecond, true)
		}()
	}
	wg.Wait()

	m := monitor.metrics()
	assert.Equal(t, int64(50), m.Grants)
	assert.Equal(t, int64(50), m.Revokes)
	assert.Zero(t, m.Failed)
}

// TestServiceMutationHealth tests the health thresholds
func TestServiceMutationHealth(t *testing.T) {
	service := &Service{monitor: newMutationMonitor()}

	// Healthy with too little data to judge
	assert.True(t, service.IsMutationHealthy())
	service.monitor.record(mutationGrant, 5*time.Second, false)
	assert.True(t, service.IsMutationHealthy())

	// Unhealthy above 5% failures
	service.ResetMutationMetrics()
	for i := 0; i < 9; i++ {
		service.monitor.record(mutationGrant, time.Millisecond, true)
	}
	service.monitor.record(mutationGrant, time.Millisecond, false)
	assert.False(t, service.IsMutationHealthy())

	// Unhealthy on slow averages
	service.ResetMutationMetrics()
	for i := 0; i < 10; i++ {
		service.monitor.record(mutationGrant, 2*time.Second, true)
	}
	assert.False(t, service.IsMutationHealthy())

	// Healthy under both thresholds
	service.ResetMutationMetrics()
	for i := 0; i < 20; i++ {
		service.monitor.record(mutationGrant, 10*time.Millisecond, true)
	}
	service.monitor.record(mutationSync, 10*time.Millisecond, false)
	assert.True(t, service.IsMutationHealthy())
}
