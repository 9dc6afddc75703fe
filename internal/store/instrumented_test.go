package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentedStore_CountsOperations(t *testing.T) {
	mem := newTestStore(t, DefaultBucketCount)
	s := NewInstrumentedStore(mem)

	require.NoError(t, s.Set("k", "v"))
	assert.Error(t, s.Set("", "v"))

	_, ok := s.Get("k")
	assert.True(t, ok)
	_, ok = s.Get("missing")
	assert.False(t, ok)

	m := s.GetMetrics()
	assert.Equal(t, uint64(2), m.SetCount)
	assert.Equal(t, uint64(1), m.SetFailures)
	assert.Equal(t, uint64(2), m.GetCount)
	assert.Equal(t, uint64(1), m.GetHits)
	assert.Equal(t, uint64(1), m.GetMisses)
}

func TestInstrumentedStore_Reset(t *testing.T) {
	s := NewInstrumentedStore(newTestStore(t, 4))
	require.NoError(t, s.Set("k", "v"))
	s.Get("k")

	s.ResetMetrics()

	m := s.GetMetrics()
	assert.Zero(t, m.GetCount)
	assert.Zero(t, m.SetCount)
	assert.Zero(t, m.GetAvgLatency)
	assert.Zero(t, m.SetAvgLatency)
}
