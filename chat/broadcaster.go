package chat

import (
	"sync"

	"github.com/cyberinferno/simplechat/handle"
	"github.com/cyberinferno/simplechat/logger"
)

// Sender delivers one line to one connection.
type Sender interface {
	Send(h handle.Handle, data []byte) error
}

// Report summarises one broadcast.
type Report struct {
	Delivered int
	Failed    int
}

// Broadcaster sends a line to every registered session. Broadcasts are
// serialised, so lines are delivered in the order Broadcast was called, and
// each broadcast goes to the registry snapshot taken when it starts.
type Broadcaster struct {
	registry *Registry
	sender   Sender
	log      logger.Logger

	mu sync.Mutex
}

// NewBroadcaster creates a Broadcaster over registry that delivers through sender.
func NewBroadcaster(registry *Registry, sender Sender, log logger.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		sender:   sender,
		log:      log.With(logger.Field{Key: "component", Value: "broadcaster"}),
	}
}

// Broadcast sends text unmodified to every registered session. A failed
// delivery is logged and does not stop delivery to the others.
func (b *Broadcaster) Broadcast(text string) Report {
	b.mu.Lock()
	defer b.mu.Unlock()

	var report Report
	data := []byte(text)

	b.registry.ForEach(func(s *Session) {
		if err := b.sender.Send(s.Handle(), data); err != nil {
			report.Failed++
			b.log.Warn("Couldn't send message to client",
				logger.Field{Key: "handle", Value: s.Handle().String()},
				logger.Field{Key: "error", Value: err},
			)
			return
		}

		report.Delivered++
	})

	return report
}
