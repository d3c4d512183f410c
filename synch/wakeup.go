package synch

// Wakeup makes every thread sleeping on c runnable and returns how many
// were taken off the queue.
func (s *Scheduler) Wakeup(c Chan) int {
	return s.WakeupN(c, -1)
}

func (s *Scheduler) WakeupOne(c Chan) int {
	return s.WakeupN(c, 1)
}

// WakeupN wakes at most n of the threads sleeping on c, oldest first.
// A negative n wakes all of them.
func (s *Scheduler) WakeupN(c Chan, n int) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	q := s.table.bucket(c)
	woken := 0
	for i := 0; i < q.Len() && n != 0; {
		t := q.At(i)
		if t.wchan != c {
			i++
			continue
		}

		q.Remove(i)
		t.wchan = 0
		switch t.state {
		case Sleeping:
			s.promote(t)
		case Stopped:
		default:
			invariant("wakeup: thread %d on %#x is %v", t.tid, uintptr(c), t.state)
		}
		woken++
		n--
	}
	s.stats.Wakeups += uint64(woken)
	return woken
}

// Unsleep takes t off whatever sleep queue holds it. It does not make t
// runnable; callers that remove a Sleeping thread must do that too.
func (s *Scheduler) Unsleep(t *Thread) {
	s.lock.Lock()
	s.unsleep(t)
	s.lock.Unlock()
}

func (s *Scheduler) unsleep(t *Thread) {
	s.lock.assertLocked()
	if t.wchan == 0 {
		return
	}
	if !removeThread(s.table.bucket(t.wchan), t) {
		invariant("unsleep: thread %d not on bucket of %#x", t.tid, uintptr(t.wchan))
	}
	t.wchan = 0
}

// setrunnable forces t off its sleep queue and onto the run queue.
func (s *Scheduler) setrunnable(t *Thread) {
	switch t.state {
	case Sleeping, Stopped:
		s.unsleep(t)
	default:
		invariant("setrunnable: thread %d is %v", t.tid, t.state)
	}
	s.promote(t)
}

// promote hands a thread that is off its sleep queue to the run queue.
func (s *Scheduler) promote(t *Thread) {
	if t.slptime > 1 {
		s.rq.DecayPriority(t)
	}
	t.slptime = 0
	t.state = Runnable
	s.rq.MakeRunnable(t)
	s.rq.RequestReschedule(t.cpu)
	s.stats.Reschedules++
}

// endtsleep runs when the timeout armed by sleep attempt gen fires. It
// loses to any wakeup or signal that already took the thread off its
// queue, and to any later sleep attempt.
func (s *Scheduler) endtsleep(t *Thread, gen seqnum) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if t.wchan == 0 || t.gen != gen {
		return
	}
	switch t.state {
	case Sleeping:
		s.setrunnable(t)
	case Stopped:
		s.unsleep(t)
	default:
		invariant("endtsleep: thread %d is %v", t.tid, t.state)
	}
	t.timedOut = true
	s.stats.Timeouts++
}

// Stop suspends a sleeping thread in place. It stays on its queue, and a
// wakeup only clears its channel until Continue.
func (s *Scheduler) Stop(t *Thread) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if t.state != Sleeping {
		return false
	}
	t.state = Stopped
	return true
}

func (s *Scheduler) Continue(t *Thread) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if t.state != Stopped {
		return false
	}
	if t.wchan != 0 {
		t.state = Sleeping
		if _, ok := s.sig.Pending(t); ok && t.interruptible {
			s.setrunnable(t)
		}
	} else {
		s.promote(t)
	}
	return true
}
