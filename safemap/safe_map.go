// Package safemap provides a type-safe, concurrent map guarded by a single
// read-write mutex. Iteration always works on a snapshot ordered by key, so
// callers may mutate the map from inside the iteration callback and two
// iterations over the same contents visit entries in the same order.
package safemap

import (
	"cmp"
	"slices"
	"sync"
)

// SafeMap is a concurrent map that is safe for use by multiple goroutines.
// Keys must be ordered so snapshots can be returned in a deterministic order;
// values may be any type.
//
// SafeMap must not be copied after first use. Every operation takes the
// mutex exactly once, so each call observes a consistent state of the map.
type SafeMap[K cmp.Ordered, V any] struct {
	mu sync.RWMutex
	m  map[K]V
}

// NewSafeMap returns a new, empty SafeMap ready for use.
//
// Returns:
//   - A pointer to a new SafeMap[K, V]
func NewSafeMap[K cmp.Ordered, V any]() *SafeMap[K, V] {
	return &SafeMap[K, V]{m: make(map[K]V)}
}

// Store sets the value for key k, overwriting any existing value.
//
// Parameters:
//   - k: The key to store
//   - v: The value to associate with k
func (m *SafeMap[K, V]) Store(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[k] = v
}

// Insert stores v under k only if k is not already present.
//
// Parameters:
//   - k: The key to insert
//   - v: The value to associate with k
//
// Returns:
//   - true if the entry was inserted, false if k was already present
func (m *SafeMap[K, V]) Insert(k K, v V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.m[k]; found {
		return false
	}

	m.m[k] = v
	return true
}

// Load returns the value for key k and whether it was present. If the key is
// missing the zero value of V is returned.
//
// Parameters:
//   - k: The key to look up
//
// Returns:
//   - The value associated with k, or the zero value of V if not found
//   - true if the key was present, false otherwise
func (m *SafeMap[K, V]) Load(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, found := m.m[k]
	return v, found
}

// Delete removes the entry for key k and returns the removed value. Deleting
// a missing key is a no-op.
//
// Parameters:
//   - k: The key to delete
//
// Returns:
//   - The removed value, or the zero value of V if k was absent
//   - true if an entry was removed
func (m *SafeMap[K, V]) Delete(k K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, found := m.m[k]
	if found {
		delete(m.m, k)
	}

	return v, found
}

// Len returns the number of entries in the map.
func (m *SafeMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Snapshot returns the values present at call time ordered by their keys.
// Later mutations of the map are not reflected in the returned slice.
//
// Returns:
//   - A new slice holding every value, ordered by ascending key
func (m *SafeMap[K, V]) Snapshot() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sortedValuesLocked()
}

// Range calls f for each entry of a snapshot taken at call time, in ascending
// key order. If f returns false the iteration stops. f may freely modify the
// map; such changes are not observed by the running iteration.
//
// Parameters:
//   - f: Function called for each entry; return false to stop iteration
func (m *SafeMap[K, V]) Range(f func(k K, v V) bool) {
	m.mu.RLock()
	keys := make([]K, 0, len(m.m))
	for k := range m.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	values := make([]V, 0, len(keys))
	for _, k := range keys {
		values = append(values, m.m[k])
	}
	m.mu.RUnlock()

	for i, k := range keys {
		if !f(k, values[i]) {
			return
		}
	}
}

// Drain removes every entry and returns the removed values ordered by key.
//
// Returns:
//   - The values that were in the map, ordered by ascending key
func (m *SafeMap[K, V]) Drain() []V {
	m.mu.Lock()
	defer m.mu.Unlock()

	values := m.sortedValuesLocked()
	m.m = make(map[K]V)
	return values
}

// sortedValuesLocked collects the values ordered by key; caller must hold mu.
func (m *SafeMap[K, V]) sortedValuesLocked() []V {
	keys := make([]K, 0, len(m.m))
	for k := range m.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	values := make([]V, 0, len(keys))
	for _, k := range keys {
		values = append(values, m.m[k])
	}

	return values
}
