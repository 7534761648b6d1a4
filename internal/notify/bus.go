// package notify implements the ephemeral user-facing message queue. Every
// failure and externally-driven change in the proposal pipeline surfaces
// here exactly once; nothing is persisted across sessions.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type classifies a notification for rendering.
type Type string

const (
	Success Type = "success"
	Error   Type = "error"
	Info    Type = "info"
	Warning Type = "warning"
)

// DefaultTTL is the expiry applied when callers have no specific duration
// in mind.
const DefaultTTL = 5 * time.Second

// Sticky marks a notification that never auto-expires.
const Sticky = time.Duration(0)

// Notification is one short-lived user-facing message.
type Notification struct {
	ID       string        `json:"id"`
	Type     Type          `json:"type"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"-"`
	AddedAt  time.Time     `json:"addedAt"`
}

// Bus is a timer-expiring queue of notifications.
type Bus struct {
	mu    sync.Mutex
	queue []Notification

	// after schedules fn to run once d elapses. Swappable so tests can
	// drive expiry deterministically.
	after func(d time.Duration, fn func())
}

// NewBus constructs a Bus using real timers.
func NewBus() *Bus {
	return &Bus{after: func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }}
}

// NewBusWithTimer constructs a Bus whose expiry scheduling is delegated to
// after. Intended for tests.
func NewBusWithTimer(after func(d time.Duration, fn func())) *Bus {
	return &Bus{after: after}
}

// Add queues a message and returns its locally-unique id. A duration of
// Sticky (0) disables auto-expiry; anything else schedules removal after
// the given duration.
func (b *Bus) Add(typ Type, message string, duration time.Duration) string {
	n := Notification{
		ID:       uuid.New().String(),
		Type:     typ,
		Message:  message,
		Duration: duration,
		AddedAt:  time.Now().UTC(),
	}

	b.mu.Lock()
	b.queue = append(b.queue, n)
	b.mu.Unlock()

	if duration != Sticky {
		b.after(duration, func() { b.Remove(n.ID) })
	}
	return n.ID
}

// Remove drops the notification with the given id. Removing an id that has
// already expired is a no-op.
func (b *Bus) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.queue {
		if b.queue[i].ID == id {
			b.queue = append(b.queue[:i], b.queue[i+1:]...)
			return
		}
	}
}

// Active returns a copy of the currently-queued notifications in arrival
// order.
func (b *Bus) Active() []Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notification, len(b.queue))
	copy(out, b.queue)
	return out
}
