package synch

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/pkg/errors"
)

// Process owns threads and the integer-named waits they share.
type Process struct {
	pid        int
	nice       int
	sigrestart restartMask

	mu      sync.Mutex
	waiters list.List
}

// waitNode is shared by every thread of a process waiting on the same
// id: sleep and wakeup match on the node's address, so co-waiters must
// all use one node.
type waitNode struct {
	id      int64
	gen     seqnum
	waiters int
	elem    *list.Element
}

func (n *waitNode) channel() Chan {
	return Chan(uintptr(unsafe.Pointer(n)))
}

func (s *Scheduler) NewProcess() *Process {
	s.lock.Lock()
	defer s.lock.Unlock()

	s.lastPID++
	return &Process{pid: s.lastPID}
}

func (p *Process) PID() int {
	return p.pid
}

// SetRestart selects whether sig restarts an interrupted operation
// instead of aborting it.
func (p *Process) SetRestart(sig Signal, on bool) {
	if validSignal(sig) {
		p.sigrestart.set(sig, on)
	}
}

func (p *Process) restarts(sig Signal) bool {
	return p.sigrestart.has(sig)
}

// Waiting returns the number of distinct ids with waiters.
func (p *Process) Waiting() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.waiters.Len()
}

func (p *Process) lookup(id int64) *waitNode {
	for e := p.waiters.Front(); e != nil; e = e.Next() {
		if n := e.Value.(*waitNode); n.id == id {
			return n
		}
	}
	return nil
}

// ThreadSleep blocks t until ThreadWakeup(id) is called on its process,
// timeoutMS milliseconds pass (when positive) or a signal arrives. If
// lockWord is not nil it is cleared once t is committed to waiting, the
// way a condition variable releases its mutex.
func (s *Scheduler) ThreadSleep(t *Thread, id int64, timeoutMS int32, lockWord *uint32) error {
	p := t.proc
	if p == nil {
		invariant("thrsleep: thread %d has no process", t.tid)
	}

	p.mu.Lock()
	n := p.lookup(id)
	if n == nil {
		n = s.nodes.get(id)
		n.elem = p.waiters.PushBack(n)
	}
	n.waiters++
	gen := n.gen

	if lockWord != nil {
		atomic.StoreUint32(lockWord, 0)
	}

	var timo time.Duration
	if timeoutMS > 0 {
		timo = time.Duration(timeoutMS) * time.Millisecond
	}
	err := s.Msleep(t, n.channel(), &p.mu, PUser, Catch, "thrsleep", timo)

	// A node recycled by ThreadWakeup has a new generation.
	if n.gen == gen {
		n.waiters--
		if n.waiters == 0 {
			p.waiters.Remove(n.elem)
			s.nodes.put(n)
		}
	}
	p.mu.Unlock()

	if errors.Is(err, ErrWouldBlock) {
		return ErrTimedOut
	}
	return err
}

// ThreadWakeup wakes every thread of p waiting on id.
func (s *Scheduler) ThreadWakeup(p *Process, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := p.lookup(id)
	if n == nil {
		return ErrNoSuchWaiter
	}
	p.waiters.Remove(n.elem)
	s.Wakeup(n.channel())
	s.nodes.put(n)
	return nil
}
