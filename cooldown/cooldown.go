// Package cooldown tracks remote hosts that were disconnected for breaking the
// chat protocol, so the relay can refuse their reconnection attempts for a
// while. Implementations are safe for concurrent use.
package cooldown

import (
	"context"
	"net"
	"time"
)

// Tracker records hosts under cooldown.
type Tracker interface {
	// Mark puts host under cooldown for ttl. A later Mark for the same host
	// restarts the period.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - host: The remote host, as returned by HostOf
	//   - ttl: How long the host stays under cooldown
	//
	// Returns:
	//   - An error if the record could not be stored
	Mark(ctx context.Context, host string, ttl time.Duration) error

	// Active reports whether host is currently under cooldown.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout control
	//   - host: The remote host to check
	//
	// Returns:
	//   - true if the host is under cooldown
	//   - An error if the lookup failed
	Active(ctx context.Context, host string) (bool, error)
}

// HostOf strips the port from a remote address such as "10.0.0.1:50312".
// Addresses without a port are returned unchanged.
func HostOf(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}

	return host
}
