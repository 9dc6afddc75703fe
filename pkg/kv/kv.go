package kv

import "errors"

// Field bounds. The wire protocol is line oriented, so neither keys nor values
// may carry line terminators.
const (
	MaxKeyLen   = 255
	MaxValueLen = 767

	// MaxRequestLen fits a SET carrying a maximal key and value plus a CRLF
	// terminator.
	MaxRequestLen = len("SET ") + MaxKeyLen + 1 + MaxValueLen + len("\r\n")
)

var (
	// ErrKeyTooLong is returned when a key exceeds MaxKeyLen bytes.
	ErrKeyTooLong = errors.New("key too long")

	// ErrValueTooLong is returned when a value exceeds MaxValueLen bytes.
	ErrValueTooLong = errors.New("value too long")

	// ErrInvalidKey is returned for empty keys or keys containing whitespace,
	// line terminators or NUL bytes.
	ErrInvalidKey = errors.New("invalid key")

	// ErrInvalidValue is returned for empty values or values containing line
	// terminators or NUL bytes.
	ErrInvalidValue = errors.New("invalid value")
)

// Store defines the interface for a key-value store.
// The connection handler depends only on this interface, so the storage
// engine can be tested and wrapped (e.g. instrumented) independently.
type Store interface {
	// Get retrieves the value associated with the given key.
	// Returns the value and true if the key exists, or empty string and false if not.
	Get(key string) (string, bool)

	// Set stores a key-value pair, replacing any existing value for key.
	// Returns an error if the pair cannot be stored.
	Set(key, value string) error
}

// ValidateKey reports whether key fits the storage bounds.
func ValidateKey(key string) error {
	if key == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLen {
		return ErrKeyTooLong
	}
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case ' ', '\t', '\r', '\n', 0:
			return ErrInvalidKey
		}
	}
	return nil
}

// ValidateValue reports whether value fits the storage bounds.
func ValidateValue(value string) error {
	if value == "" {
		return ErrInvalidValue
	}
	if len(value) > MaxValueLen {
		return ErrValueTooLong
	}
	for i := 0; i < len(value); i++ {
		switch value[i] {
		case '\r', '\n', 0:
			return ErrInvalidValue
		}
	}
	return nil
}
