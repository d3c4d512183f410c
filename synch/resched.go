package synch

import "sync"

// reschedSet holds the CPUs that have been asked to reschedule. Repeated
// requests for a CPU that has not been serviced yet coalesce.
type reschedSet struct {
	cpus  chan int
	seen  map[int]struct{}
	count uint64
	mu    sync.Mutex
}

func newReschedSet(ncpu int) *reschedSet {
	return &reschedSet{
		cpus: make(chan int, ncpu),
		seen: make(map[int]struct{}, ncpu),
	}
}

func (r *reschedSet) request(cpu int) {
	r.mu.Lock()
	r.count++
	if _, ok := r.seen[cpu]; !ok {
		select {
		case r.cpus <- cpu:
			r.seen[cpu] = struct{}{}
		default:
		}
	}
	r.mu.Unlock()
}

// next pops the oldest CPU waiting for a reschedule.
func (r *reschedSet) next() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	select {
	case cpu := <-r.cpus:
		delete(r.seen, cpu)
		return cpu, true
	default:
		return 0, false
	}
}

func (r *reschedSet) pending(cpu int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.seen[cpu]
	return ok
}

func (r *reschedSet) requests() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.count
}
