package synch

import "sync/atomic"

type Signal int

const (
	SIGHUP  Signal = 1
	SIGINT  Signal = 2
	SIGQUIT Signal = 3
	SIGKILL Signal = 9
	SIGALRM Signal = 14
	SIGTERM Signal = 15
	SIGSTOP Signal = 17
	SIGCONT Signal = 19
	SIGUSR1 Signal = 30
	SIGUSR2 Signal = 31

	NSIG = 33
)

func sigmask(sig Signal) uint32 {
	return 1 << uint(sig-1)
}

func validSignal(sig Signal) bool {
	return sig > 0 && sig < NSIG
}

// Signals answers the two questions an interruptible sleep asks. Both
// methods are called with the scheduler lock held.
type Signals interface {
	Pending(t *Thread) (Signal, bool)
	Restarts(t *Thread, sig Signal) bool
}

// threadSignals reads the pending mask kept on the thread and the
// restart dispositions kept on its process.
type threadSignals struct{}

func (threadSignals) Pending(t *Thread) (Signal, bool) {
	if t.siglist == 0 {
		return 0, false
	}
	for sig := Signal(1); sig < NSIG; sig++ {
		if t.siglist&sigmask(sig) != 0 {
			return sig, true
		}
	}
	return 0, false
}

func (threadSignals) Restarts(t *Thread, sig Signal) bool {
	if t.proc == nil {
		return false
	}
	return t.proc.restarts(sig)
}

// Kill posts sig to t. A thread in an interruptible sleep is taken off
// its queue and made runnable; a stopped thread is only resumed by
// SIGKILL. The signal stays pending until TakeSignal consumes it.
func (s *Scheduler) Kill(t *Thread, sig Signal) {
	if !validSignal(sig) {
		return
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if t.state == Zombie {
		return
	}
	t.siglist |= sigmask(sig)

	switch t.state {
	case Sleeping:
		if t.interruptible {
			s.setrunnable(t)
		}
	case Stopped:
		if sig == SIGKILL {
			s.setrunnable(t)
		}
	}
}

// TakeSignal consumes the lowest-numbered pending signal of t.
func (s *Scheduler) TakeSignal(t *Thread) (Signal, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	for sig := Signal(1); sig < NSIG; sig++ {
		if t.siglist&sigmask(sig) != 0 {
			t.siglist &^= sigmask(sig)
			return sig, true
		}
	}
	return 0, false
}

// sigerr classifies an interrupted sleep. Called with the lock held.
func (s *Scheduler) sigerr(t *Thread, sig Signal) error {
	s.stats.Interrupts++
	if s.sig.Restarts(t, sig) {
		return ErrRestart
	}
	return ErrInterrupted
}

// restartMask is read under the scheduler lock, so it cannot be guarded
// by the process mutex.
type restartMask struct {
	v uint32
}

func (m *restartMask) set(sig Signal, on bool) {
	for {
		old := atomic.LoadUint32(&m.v)
		nv := old &^ sigmask(sig)
		if on {
			nv = old | sigmask(sig)
		}
		if atomic.CompareAndSwapUint32(&m.v, old, nv) {
			return
		}
	}
}

func (m *restartMask) has(sig Signal) bool {
	return atomic.LoadUint32(&m.v)&sigmask(sig) != 0
}
