package store

import (
	"sync/atomic"
	"time"

	"github.com/heysubinoy/htkv/pkg/kv"
)

// Metrics holds counters and timing statistics for store operations.
// Uses atomic operations for thread-safe updates without locks.
type Metrics struct {
	GetCount    atomic.Uint64
	GetHits     atomic.Uint64
	GetMisses   atomic.Uint64
	SetCount    atomic.Uint64
	SetFailures atomic.Uint64

	// Cumulative latencies in nanoseconds
	GetLatencyNs atomic.Uint64
	SetLatencyNs atomic.Uint64
}

// InstrumentedStore wraps any kv.Store implementation with timing metrics.
type InstrumentedStore struct {
	store   kv.Store
	metrics *Metrics
}

// Compile-time check to ensure InstrumentedStore implements kv.Store.
var _ kv.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore wraps a store with instrumentation.
func NewInstrumentedStore(store kv.Store) *InstrumentedStore {
	return &InstrumentedStore{
		store:   store,
		metrics: &Metrics{},
	}
}

// Get delegates to the wrapped store and records timing and hit/miss.
func (s *InstrumentedStore) Get(key string) (string, bool) {
	start := time.Now()
	value, found := s.store.Get(key)
	elapsed := time.Since(start).Nanoseconds()

	s.metrics.GetCount.Add(1)
	s.metrics.GetLatencyNs.Add(uint64(elapsed))
	if found {
		s.metrics.GetHits.Add(1)
	} else {
		s.metrics.GetMisses.Add(1)
	}

	return value, found
}

// Set delegates to the wrapped store and records timing.
func (s *InstrumentedStore) Set(key, value string) error {
	start := time.Now()
	err := s.store.Set(key, value)
	elapsed := time.Since(start).Nanoseconds()

	s.metrics.SetCount.Add(1)
	s.metrics.SetLatencyNs.Add(uint64(elapsed))
	if err != nil {
		s.metrics.SetFailures.Add(1)
	}

	return err
}

// GetMetrics returns a snapshot of current metrics.
func (s *InstrumentedStore) GetMetrics() MetricsSnapshot {
	getCount := s.metrics.GetCount.Load()
	setCount := s.metrics.SetCount.Load()

	return MetricsSnapshot{
		GetCount:      getCount,
		GetHits:       s.metrics.GetHits.Load(),
		GetMisses:     s.metrics.GetMisses.Load(),
		SetCount:      setCount,
		SetFailures:   s.metrics.SetFailures.Load(),
		GetAvgLatency: s.avgLatency(s.metrics.GetLatencyNs.Load(), getCount),
		SetAvgLatency: s.avgLatency(s.metrics.SetLatencyNs.Load(), setCount),
	}
}

// ResetMetrics clears all metrics counters.
func (s *InstrumentedStore) ResetMetrics() {
	s.metrics.GetCount.Store(0)
	s.metrics.GetHits.Store(0)
	s.metrics.GetMisses.Store(0)
	s.metrics.SetCount.Store(0)
	s.metrics.SetFailures.Store(0)
	s.metrics.GetLatencyNs.Store(0)
	s.metrics.SetLatencyNs.Store(0)
}

func (s *InstrumentedStore) avgLatency(totalNs, count uint64) time.Duration {
	if count == 0 {
		return 0
	}
	return time.Duration(totalNs / count)
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	GetCount      uint64
	GetHits       uint64
	GetMisses     uint64
	SetCount      uint64
	SetFailures   uint64
	GetAvgLatency time.Duration
	SetAvgLatency time.Duration
}
