package synch

import "github.com/pkg/errors"

const (
	PUser      = 50
	MaxPri     = 127
	NiceWeight = 2
)

// RunQueue is the scheduler's view of thread switching. All methods are
// called with the scheduler lock held.
type RunQueue interface {
	// Suspend gives up the CPU for t, which is already marked Sleeping.
	// It must release l exactly once and return only after t has been
	// made runnable again.
	Suspend(t *Thread, l *SchedLock)
	MakeRunnable(t *Thread)
	RequestReschedule(cpu int)
	DecayPriority(t *Thread)
}

// ParkQueue runs every thread on its own goroutine. Suspending parks the
// goroutine on the thread's resume token and making a thread runnable
// posts that token.
type ParkQueue struct {
	loadavg int
	resched *reschedSet
}

func NewParkQueue(ncpu, loadavg int) *ParkQueue {
	if ncpu < 1 {
		ncpu = 1
	}
	if loadavg < 1 {
		loadavg = 1
	}
	return &ParkQueue{
		loadavg: loadavg,
		resched: newReschedSet(ncpu),
	}
}

func (q *ParkQueue) Suspend(t *Thread, l *SchedLock) {
	l.Unlock()
	<-t.resume.wait()
}

func (q *ParkQueue) MakeRunnable(t *Thread) {
	if !t.resume.post() {
		panic(errors.Errorf("makerunnable: thread %d woken twice", t.tid))
	}
}

func (q *ParkQueue) RequestReschedule(cpu int) {
	q.resched.request(cpu)
}

// DecayPriority forgets CPU usage accumulated before a long sleep.
// slptime counts ticks spent asleep; the first one was already charged
// by the clock.
func (q *ParkQueue) DecayPriority(t *Thread) {
	loadfac := 2 * q.loadavg
	if t.slptime > 5*loadfac {
		t.estcpu = 0
	} else {
		newcpu := t.estcpu
		for n := t.slptime - 2; newcpu > 0 && n > 0; n-- {
			newcpu = decayCPU(loadfac, newcpu)
		}
		t.estcpu = newcpu
	}
	resetPriority(t)
}

// NextReschedule pops the oldest CPU with an outstanding reschedule
// request.
func (q *ParkQueue) NextReschedule() (int, bool) {
	return q.resched.next()
}

func (q *ParkQueue) ReschedulePending(cpu int) bool {
	return q.resched.pending(cpu)
}

func (q *ParkQueue) RescheduleRequests() uint64 {
	return q.resched.requests()
}

func decayCPU(loadfac, cpu int) int {
	return loadfac * cpu / (loadfac + 1)
}

func resetPriority(t *Thread) {
	pri := PUser + t.estcpu
	if t.proc != nil {
		pri += NiceWeight * t.proc.nice
	}
	if pri > MaxPri {
		pri = MaxPri
	}
	t.usrpri = pri
}
