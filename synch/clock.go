package synch

import (
	"context"
	"time"
)

// Tick charges one tick of sleep to every queued thread.
func (s *Scheduler) Tick() {
	s.lock.Lock()
	defer s.lock.Unlock()

	for _, t := range s.threads {
		if t.wchan != 0 {
			t.slptime++
		}
	}
}

// Run drives Tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.tick <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Charge accounts ticks of CPU time to t.
func (s *Scheduler) Charge(t *Thread, ticks int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	t.estcpu += ticks
	resetPriority(t)
}

func (s *Scheduler) SetNice(p *Process, nice int) {
	s.lock.Lock()
	defer s.lock.Unlock()

	p.nice = nice
	for _, t := range s.threads {
		if t.proc == p {
			resetPriority(t)
		}
	}
}
