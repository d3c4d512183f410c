package synch

import (
	"sync"
	"time"
)

// timer runs fn once after the given duration unless it is disabled
// first. Disabling after fn has started has no effect on that call.
type timer struct {
	enabled bool
	timer   *time.Timer
	mu      sync.Mutex
}

func newTimer(d time.Duration, fn func()) *timer {
	t := &timer{
		enabled: true,
	}

	t.mu.Lock()
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if !t.enabled {
			t.mu.Unlock()
			return
		}

		t.enabled = false
		t.mu.Unlock()
		fn()
	})
	t.mu.Unlock()
	return t
}

// disable reports whether the timer was still pending.
func (t *timer) disable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	was := t.enabled
	t.enabled = false
	t.timer.Stop()
	return was
}

func (t *timer) pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.enabled
}

// TimeoutHandle identifies one armed timeout.
type TimeoutHandle interface{}

// Timeouts arms and cancels the per-sleep timeouts. Arm and Cancel are
// called with the scheduler lock held and must not block; fire is run
// later without any lock held.
type Timeouts interface {
	Arm(t *Thread, d time.Duration, fire func()) TimeoutHandle
	Cancel(h TimeoutHandle)
}

// TimerService implements Timeouts with runtime timers.
type TimerService struct{}

func (TimerService) Arm(_ *Thread, d time.Duration, fire func()) TimeoutHandle {
	return newTimer(d, fire)
}

func (TimerService) Cancel(h TimeoutHandle) {
	if t, ok := h.(*timer); ok {
		t.disable()
	}
}
