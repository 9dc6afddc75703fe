package store

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// HashFunc maps a key to a 64-bit hash. The store reduces it modulo the
// bucket count, so it must be deterministic for the life of the process.
type HashFunc func(key string) uint64

// DJB2 is Bernstein's string hash: h = h*33 + b, seeded with 5381.
func DJB2(key string) uint64 {
	var h uint64 = 5381
	for i := 0; i < len(key); i++ {
		h = (h << 5) + h + uint64(key[i])
	}
	return h
}

// XXHash hashes key with xxHash64.
func XXHash(key string) uint64 {
	return xxhash.Sum64String(key)
}

// ParseHashFunc returns the hash function registered under name.
func ParseHashFunc(name string) (HashFunc, error) {
	switch strings.ToLower(name) {
	case "", "djb2":
		return DJB2, nil
	case "xxhash":
		return XXHash, nil
	default:
		return nil, fmt.Errorf("unknown hash function %q", name)
	}
}
