package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commandcenter/command-center/internal/notify"
)

// manualTimer collects scheduled expiries so the test controls the clock.
type manualTimer struct {
	pending []func()
	delays  []time.Duration
}

func (m *manualTimer) after(d time.Duration, fn func()) {
	m.delays = append(m.delays, d)
	m.pending = append(m.pending, fn)
}

func (m *manualTimer) fireAll() {
	for _, fn := range m.pending {
		fn()
	}
	m.pending = nil
}

func TestNotificationSelfExpiry(t *testing.T) {
	timer := &manualTimer{}
	bus := notify.NewBusWithTimer(timer.after)

	id := bus.Add(notify.Info, "new proposal arrived", 100*time.Millisecond)

	active := bus.Active()
	require.Len(t, active, 1)
	assert.Equal(t, id, active[0].ID)
	require.Len(t, timer.delays, 1)
	assert.Equal(t, 100*time.Millisecond, timer.delays[0])

	timer.fireAll()
	assert.Empty(t, bus.Active())
}

func TestStickyNotificationNeverScheduled(t *testing.T) {
	timer := &manualTimer{}
	bus := notify.NewBusWithTimer(timer.after)

	bus.Add(notify.Error, "connection lost", notify.Sticky)

	assert.Empty(t, timer.pending, "sticky notifications must not schedule expiry")
	assert.Len(t, bus.Active(), 1)
}

func TestRemoveIdempotent(t *testing.T) {
	bus := notify.NewBus()
	id := bus.Add(notify.Success, "proposal approved", notify.DefaultTTL)

	bus.Remove(id)
	bus.Remove(id)

	assert.Empty(t, bus.Active())
}

func TestActivePreservesArrivalOrder(t *testing.T) {
	timer := &manualTimer{}
	bus := notify.NewBusWithTimer(timer.after)

	bus.Add(notify.Info, "first", notify.DefaultTTL)
	bus.Add(notify.Warning, "second", notify.DefaultTTL)

	active := bus.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "first", active[0].Message)
	assert.Equal(t, "second", active[1].Message)
}
