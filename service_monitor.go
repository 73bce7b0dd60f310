package permkit

import (
	"sync"
	"time"
)

// MutationMetrics provides performance and failure statistics for grant,
// revoke and membership-sync mutations.
type MutationMetrics struct {
	Grants          int64         `json:"grants"`
	Revokes         int64         `json:"revokes"`
	Syncs           int64         `json:"syncs"`
	Failed          int64         `json:"failed"`
	AverageDuration time.Duration `json:"average_duration"`
	MaxDuration     time.Duration `json:"max_duration"`
	LastReset       time.Time     `json:"last_reset"`
}

type mutationKind int

const (
	mutationGrant mutationKind = iota
	mutationRevoke
	mutationSync
)

// mutationMonitor tracks mutation outcomes. All methods are safe for
// concurrent use.
type mutationMonitor struct {
	mu            sync.Mutex
	grants        int64
	revokes       int64
	syncs         int64
	failed        int64
	totalDuration time.Duration
	maxDuration   time.Duration
	lastReset     time.Time
}

func newMutationMonitor() *mutationMonitor {
	return &mutationMonitor{lastReset: time.Now()}
}

func (m *mutationMonitor) record(kind mutationKind, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case mutationGrant:
		m.grants++
	case mutationRevoke:
		m.revokes++
	case mutationSync:
		m.syncs++
	}
	if !success {
		m.failed++
	}
	m.totalDuration += duration
	if duration > m.maxDuration {
		m.maxDuration = duration
	}
}

func (m *mutationMonitor) metrics() MutationMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := m.grants + m.revokes + m.syncs
	var avg time.Duration
	if total > 0 {
		avg = m.totalDuration / time.Duration(total)
	}
	return MutationMetrics{
		Grants:          m.grants,
		Revokes:         m.revokes,
		Syncs:           m.syncs,
		Failed:          m.failed,
		AverageDuration: avg,
		MaxDuration:     m.maxDuration,
		LastReset:       m.lastReset,
	}
}

func (m *mutationMonitor) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.grants = 0
	m.revokes = 0
	m.syncs = 0
	m.failed = 0
	m.totalDuration = 0
	m.maxDuration = 0
	m.lastReset = time.Now()
}

// GetMutationMetrics returns the current mutation performance metrics.
func (s *Service) GetMutationMetrics() MutationMetrics {
	return s.monitor.metrics()
}

// ResetMutationMetrics resets all mutation metrics.
func (s *Service) ResetMutationMetrics() {
	s.monitor.reset()
}

// IsMutationHealthy checks whether mutation performance is within acceptable
// thresholds: under 5% failures and under a second on average.
func (s *Service) IsMutationHealthy() bool {
	m := s.monitor.metrics()
	total := m.Grants + m.Revokes + m.Syncs
	if total < 10 {
		return true
	}
	if float64(m.Failed)/float64(total) > 0.05 {
		return false
	}
	return m.AverageDuration <= time.Second
}
