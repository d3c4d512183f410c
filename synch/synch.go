// Package synch implements sleep and wakeup on wait channels: a thread
// blocks until some other party names the same channel, its timeout
// expires or, for interruptible sleeps, a signal arrives.
//
// All sleep queue and thread state is guarded by a single SchedLock
// owned by the Scheduler.
package synch

import (
	"sync"
	"time"
)

type SleepFlags uint

const (
	// Catch makes the sleep interruptible by signals.
	Catch SleepFlags = 1 << iota
	// NoRelock leaves the interlock released when Sleep returns.
	NoRelock
)

// PriMask extracts the priority a thread sleeps at.
const PriMask = 0xff

type Config struct {
	NCPU         int
	LoadAvg      int
	TickInterval time.Duration

	// nil selects ParkQueue, TimerService and the thread signal mask.
	RunQueue RunQueue
	Timeouts Timeouts
	Signals  Signals
}

type Stats struct {
	Sleeps       uint64 `json:"sleeps"`
	Wakeups      uint64 `json:"wakeups"`
	Timeouts     uint64 `json:"timeouts"`
	Interrupts   uint64 `json:"interrupts"`
	EarlySignals uint64 `json:"early_signals"`
	Reschedules  uint64 `json:"reschedules"`
	Threads      int    `json:"threads"`
	Sleeping     int    `json:"sleeping"`
}

type Scheduler struct {
	lock    SchedLock
	table   waitTable
	threads map[int]*Thread
	lastTID int
	lastPID int
	ncpu    int
	tick    time.Duration

	rq  RunQueue
	to  Timeouts
	sig Signals

	nodes *nodePool
	stats Stats
}

func New(cfg Config) *Scheduler {
	if cfg.NCPU < 1 {
		cfg.NCPU = 1
	}
	s := &Scheduler{
		threads: make(map[int]*Thread),
		ncpu:    cfg.NCPU,
		tick:    cfg.TickInterval,
		rq:      cfg.RunQueue,
		to:      cfg.Timeouts,
		sig:     cfg.Signals,
		nodes:   newNodePool(),
	}
	if s.rq == nil {
		s.rq = NewParkQueue(cfg.NCPU, cfg.LoadAvg)
	}
	if s.to == nil {
		s.to = TimerService{}
	}
	if s.sig == nil {
		s.sig = threadSignals{}
	}
	return s
}

func (s *Scheduler) RunQueue() RunQueue {
	return s.rq
}

// Tsleep sleeps without an interlock.
func (s *Scheduler) Tsleep(t *Thread, c Chan, pri int, flags SleepFlags, wmesg string, timo time.Duration) error {
	return s.Sleep(t, c, pri, flags, wmesg, timo, nil)
}

// Msleep sleeps with interlock l, which the caller holds.
func (s *Scheduler) Msleep(t *Thread, c Chan, l sync.Locker, pri int, flags SleepFlags, wmesg string, timo time.Duration) error {
	return s.Sleep(t, c, pri, flags, wmesg, timo, l)
}

// Sleep blocks the running thread t on c until Wakeup names c, timo
// elapses (when non-zero) or, with Catch, a signal is posted.
//
// If interlock is not nil the caller holds it. It is released once t is
// queued, so a Wakeup issued by anyone who takes the interlock after
// the caller's decision to sleep is never missed. Unless NoRelock is
// set it is held again when Sleep returns.
//
// Sleep returns nil for a wakeup, ErrWouldBlock for a timeout and
// ErrRestart or ErrInterrupted for a signal, depending on whether the
// signal's disposition restarts the interrupted operation.
func (s *Scheduler) Sleep(t *Thread, c Chan, pri int, flags SleepFlags, wmesg string, timo time.Duration, interlock sync.Locker) (err error) {
	catch := flags&Catch != 0
	relock := false
	defer func() {
		if relock {
			interlock.Lock()
		}
	}()

	s.lock.Lock()
	if c == 0 {
		invariant("sleep: thread %d: zero wait channel", t.tid)
	}
	if t.wchan != 0 {
		invariant("sleep: thread %d already sleeping on %#x", t.tid, uintptr(t.wchan))
	}
	if t.state != Running {
		invariant("sleep: thread %d is %v", t.tid, t.state)
	}

	t.wchan = c
	t.wmesg = wmesg
	t.wpri = pri & PriMask
	t.slptime = 0
	t.interruptible = catch
	t.timedOut = false
	t.gen = t.gen.next()
	s.table.bucket(c).PushBack(t)
	s.stats.Sleeps++

	if timo > 0 {
		gen := t.gen
		t.to = s.to.Arm(t, timo, func() {
			s.endtsleep(t, gen)
		})
	}

	if interlock != nil {
		interlock.Unlock()
		relock = flags&NoRelock == 0
	}

	if catch {
		if sig, ok := s.sig.Pending(t); ok {
			s.unsleep(t)
			s.cancelTimeout(t)
			s.stats.EarlySignals++
			err = s.sigerr(t, sig)
			s.finish(t)
			s.lock.Unlock()
			return err
		}
	}

	t.state = Sleeping
	s.rq.Suspend(t, &s.lock)

	s.lock.Lock()
	if t.wchan != 0 {
		invariant("sleep: thread %d resumed while on %#x", t.tid, uintptr(t.wchan))
	}
	t.state = Running
	if t.timedOut {
		t.to = nil
		err = ErrWouldBlock
	} else {
		s.cancelTimeout(t)
		if catch {
			if sig, ok := s.sig.Pending(t); ok {
				err = s.sigerr(t, sig)
			}
		}
	}
	s.finish(t)
	s.lock.Unlock()
	return err
}

func (s *Scheduler) finish(t *Thread) {
	t.interruptible = false
	t.timedOut = false
	t.wmesg = ""
}

func (s *Scheduler) cancelTimeout(t *Thread) {
	if t.to != nil {
		s.to.Cancel(t.to)
		t.to = nil
	}
}

// Sleepers lists, in queue order, the threads waiting on c.
func (s *Scheduler) Sleepers(c Chan) []int {
	s.lock.Lock()
	defer s.lock.Unlock()

	var tids []int
	q := s.table.bucket(c)
	for i := 0; i < q.Len(); i++ {
		if t := q.At(i); t.wchan == c {
			tids = append(tids, t.tid)
		}
	}
	return tids
}

func (s *Scheduler) Stats() Stats {
	s.lock.Lock()
	defer s.lock.Unlock()

	st := s.stats
	st.Threads = len(s.threads)
	for i := range s.table {
		st.Sleeping += s.table[i].Len()
	}
	return st
}
