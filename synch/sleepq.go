package synch

import "github.com/gammazero/deque"

// TableSize is the number of sleep queue buckets. It must be a power
// of two.
const TableSize = 128

// Chan names the event a thread sleeps on. Any stable address-sized
// value works; zero is reserved.
type Chan uintptr

// lookup maps a channel to its bucket. Channels are usually aligned
// addresses, so the low byte is discarded.
func lookup(c Chan) int {
	return int((uintptr(c) >> 8) & (TableSize - 1))
}

// sleepq is one bucket, oldest sleeper first. Different channels may
// share a bucket, so users filter on Thread.wchan.
type sleepq = deque.Deque[*Thread]

type waitTable [TableSize]sleepq

func (w *waitTable) bucket(c Chan) *sleepq {
	return &w[lookup(c)]
}

// removeThread reports whether t was found and taken off q.
func removeThread(q *sleepq, t *Thread) bool {
	i := q.Index(func(p *Thread) bool {
		return p == t
	})
	if i < 0 {
		return false
	}
	q.Remove(i)
	return true
}
