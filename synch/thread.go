package synch

import "fmt"

type ThreadState int

const (
	Running ThreadState = iota
	Runnable
	Sleeping
	Stopped
	Zombie
)

func (s ThreadState) String() string {
	switch s {
	case Running:
		return "running"
	case Runnable:
		return "runnable"
	case Sleeping:
		return "sleeping"
	case Stopped:
		return "stopped"
	case Zombie:
		return "zombie"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Thread is a schedulable execution context backed by a goroutine.
// Everything below cpu is protected by the scheduler lock.
type Thread struct {
	tid  int
	proc *Process
	cpu  int

	state         ThreadState
	wchan         Chan
	wmesg         string
	wpri          int
	slptime       int
	estcpu        int
	usrpri        int
	interruptible bool
	timedOut      bool
	siglist       uint32
	gen           seqnum
	to            TimeoutHandle

	resume *notifier
}

func (t *Thread) TID() int {
	return t.tid
}

func (t *Thread) Process() *Process {
	return t.proc
}

func (t *Thread) CPU() int {
	return t.cpu
}

// ThreadInfo is a consistent snapshot of a thread's scheduling state.
type ThreadInfo struct {
	TID          int         `json:"tid"`
	State        ThreadState `json:"state"`
	WaitChan     Chan        `json:"wchan"`
	WaitMessage  string      `json:"wmesg"`
	WaitPriority int         `json:"wpri"`
	SleepTicks   int         `json:"slptime"`
	EstCPU       int         `json:"estcpu"`
	UserPriority int         `json:"usrpri"`
}

func (s *Scheduler) Info(t *Thread) ThreadInfo {
	s.lock.Lock()
	defer s.lock.Unlock()

	return ThreadInfo{
		TID:          t.tid,
		State:        t.state,
		WaitChan:     t.wchan,
		WaitMessage:  t.wmesg,
		WaitPriority: t.wpri,
		SleepTicks:   t.slptime,
		EstCPU:       t.estcpu,
		UserPriority: t.usrpri,
	}
}

// NewThread registers a thread that is running on the calling goroutine.
func (s *Scheduler) NewThread(p *Process) *Thread {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.lastTID++
	t := &Thread{
		tid:    s.lastTID,
		proc:   p,
		cpu:    (s.lastTID - 1) % s.ncpu,
		state:  Running,
		usrpri: PUser,
		resume: newNotifier(),
	}
	s.threads[t.tid] = t
	return t
}

// Spawn runs fn on a new goroutine-backed thread and retires the thread
// when fn returns.
func (s *Scheduler) Spawn(p *Process, fn func(t *Thread)) *Thread {
	t := s.NewThread(p)
	go func() {
		defer s.Exit(t)
		fn(t)
	}()
	return t
}

// Exit retires t. A thread must not exit while it is on a sleep queue.
func (s *Scheduler) Exit(t *Thread) {
	s.lock.Lock()
	if t.wchan != 0 {
		invariant("exit: thread %d still sleeping on %#x", t.tid, uintptr(t.wchan))
	}
	t.state = Zombie
	delete(s.threads, t.tid)
	s.lock.Unlock()
}
