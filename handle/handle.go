// Package handle defines the opaque identifiers the transport assigns to
// accepted connections and a concurrency-safe allocator for them.
package handle

import (
	"strconv"
	"sync/atomic"
)

// Handle identifies one accepted connection for its whole lifetime. The zero
// Handle is never issued by an Allocator and can be used to mean "no connection".
type Handle uint32

// String renders the handle as "conn-<n>" for logs and operator display.
func (h Handle) String() string {
	return "conn-" + strconv.FormatUint(uint64(h), 10)
}

// Valid reports whether h could have been issued by an Allocator.
func (h Handle) Valid() bool {
	return h != 0
}

// Allocator issues monotonically increasing Handles in a concurrency-safe
// manner. The first Next() after NewAllocator(start) returns start+1.
type Allocator struct {
	last atomic.Uint32
}

// NewAllocator creates an Allocator whose first handle is start+1.
//
// Parameters:
//   - start: The value to initialize the counter to; pass 0 so that the first
//     handle is 1 and 0 stays reserved
//
// Returns:
//   - A new Allocator instance
func NewAllocator(start uint32) *Allocator {
	a := &Allocator{}
	a.last.Store(start)
	return a
}

// Next returns the next unused Handle. When the counter wraps around, the
// reserved zero value is skipped.
//
// Returns:
//   - The next Handle
func (a *Allocator) Next() Handle {
	for {
		if id := a.last.Add(1); id != 0 {
			return Handle(id)
		}
	}
}
