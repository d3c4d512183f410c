package synch

import (
	"sync"
	"sync/atomic"
)

// SchedLock serializes every scheduling state transition. It is never
// taken recursively, and a caller's own interlock is always acquired
// before it.
//
// RunQueue.Suspend receives the held lock and must release it exactly
// once; ownership is transferred, not dropped.
type SchedLock struct {
	mu   sync.Mutex
	held int32
}

func (l *SchedLock) Lock() {
	l.mu.Lock()
	atomic.StoreInt32(&l.held, 1)
}

func (l *SchedLock) Unlock() {
	if atomic.SwapInt32(&l.held, 0) == 0 {
		invariant("schedlock: unlock of unlocked lock")
	}
	l.mu.Unlock()
}

func (l *SchedLock) assertLocked() {
	if atomic.LoadInt32(&l.held) == 0 {
		invariant("schedlock: not held")
	}
}
