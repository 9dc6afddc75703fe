package store

import (
	"fmt"
	"sync"

	"github.com/heysubinoy/htkv/pkg/kv"
)

// DefaultBucketCount is the number of hash buckets used when none is configured.
const DefaultBucketCount = 1024

// entry is one key/value pair in a bucket chain.
type entry struct {
	key   string
	value string
	next  *entry
}

// MemStore is an in-memory implementation of the kv.Store interface.
// Keys are spread over a fixed number of buckets, each holding a singly linked
// chain with the most recently inserted entry first. The table never grows, so
// lookups cost O(chain length) and degrade linearly once keys far outnumber
// buckets. A RWMutex guards the whole table.
type MemStore struct {
	mu      sync.RWMutex
	buckets []*entry
	hash    HashFunc
	count   int
}

// Compile-time check to ensure MemStore implements kv.Store.
var _ kv.Store = (*MemStore)(nil)

// Option configures a MemStore.
type Option func(*MemStore)

// WithHash overrides the bucket hash function.
func WithHash(h HashFunc) Option {
	return func(s *MemStore) {
		if h != nil {
			s.hash = h
		}
	}
}

// NewMemStore creates an empty store with bucketCount buckets.
func NewMemStore(bucketCount int, opts ...Option) (*MemStore, error) {
	if bucketCount <= 0 {
		return nil, fmt.Errorf("bucket count must be positive, got %d", bucketCount)
	}

	s := &MemStore{
		buckets: make([]*entry, bucketCount),
		hash:    DJB2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *MemStore) bucket(key string) int {
	return int(s.hash(key) % uint64(len(s.buckets)))
}

// Get retrieves a value by key from the store.
// Returns the value and true if found, empty string and false otherwise.
func (s *MemStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for e := s.buckets[s.bucket(key)]; e != nil; e = e.next {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Set stores a key-value pair. An existing entry for key has its value
// replaced in place; otherwise a new entry is prepended to the key's bucket.
func (s *MemStore) Set(key, value string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if err := kv.ValidateValue(value); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.bucket(key)
	for e := s.buckets[idx]; e != nil; e = e.next {
		if e.key == key {
			e.value = value
			return nil
		}
	}

	s.buckets[idx] = &entry{key: key, value: value, next: s.buckets[idx]}
	s.count++
	return nil
}

// Len returns the number of entries in the store.
func (s *MemStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.count
}

// Reset drops every entry. The bucket count is unchanged.
func (s *MemStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.buckets)
	s.count = 0
}

// Stats describes how entries are spread over the buckets.
type Stats struct {
	Buckets      int `json:"buckets"`
	Entries      int `json:"entries"`
	UsedBuckets  int `json:"used_buckets"`
	LongestChain int `json:"longest_chain"`
}

// Stats walks every bucket and returns a distribution summary.
func (s *MemStore) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Buckets: len(s.buckets), Entries: s.count}
	for _, head := range s.buckets {
		if head == nil {
			continue
		}
		st.UsedBuckets++
		n := 0
		for e := head; e != nil; e = e.next {
			n++
		}
		if n > st.LongestChain {
			st.LongestChain = n
		}
	}
	return st
}

// chain returns the keys in bucket idx, head first.
func (s *MemStore) chain(idx int) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for e := s.buckets[idx]; e != nil; e = e.next {
		keys = append(keys, e.key)
	}
	return keys
}
