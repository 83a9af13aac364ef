// Package cache contains the local durable key-value store backing the
// archive index and extraction results. Implementations are synchronous and
// must be safe for concurrent use.
package cache

// Store is a small persistent key-value abstraction. Values are JSON-encoded
// by implementations; Get reports whether the key existed.
type Store interface {
	// Get decodes the value stored under key into v. The first return is
	// false when the key does not exist.
	Get(key string, v any) (bool, error)
	// Put stores v under key, replacing any previous value.
	Put(key string, v any) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
