package synch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threadSleepAsync(s *Scheduler, p *Process, id int64, timeoutMS int32, lockWord *uint32) <-chan error {
	errs := make(chan error, 1)
	s.Spawn(p, func(th *Thread) {
		errs <- s.ThreadSleep(th, id, timeoutMS, lockWord)
	})
	return errs
}

func nodeFor(p *Process, id int64) *waitNode {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.lookup(id)
}

func waitNamed(t *testing.T, s *Scheduler, p *Process, id int64, n int) *waitNode {
	t.Helper()
	var node *waitNode
	require.Eventually(t, func() bool {
		node = nodeFor(p, id)
		return node != nil && len(s.Sleepers(node.channel())) == n
	}, time.Second, time.Millisecond)
	return node
}

func TestThreadWaitersShareNode(t *testing.T) {
	s := New(Config{})
	p := s.NewProcess()

	e1 := threadSleepAsync(s, p, 42, 0, nil)
	e2 := threadSleepAsync(s, p, 42, 0, nil)
	node := waitNamed(t, s, p, 42, 2)
	assert.Equal(t, 1, p.Waiting())
	p.mu.Lock()
	assert.Equal(t, 2, node.waiters)
	p.mu.Unlock()

	require.NoError(t, s.ThreadWakeup(p, 42))
	require.NoError(t, recvErr(t, e1))
	require.NoError(t, recvErr(t, e2))
	assert.Zero(t, p.Waiting())

	assert.Equal(t, ErrNoSuchWaiter, s.ThreadWakeup(p, 42))
}

func TestThreadWakeupIsPerID(t *testing.T) {
	s := New(Config{})
	p := s.NewProcess()
	other := s.NewProcess()

	e1 := threadSleepAsync(s, p, 1, 0, nil)
	e2 := threadSleepAsync(s, p, 2, 0, nil)
	waitNamed(t, s, p, 1, 1)
	waitNamed(t, s, p, 2, 1)

	assert.Equal(t, ErrNoSuchWaiter, s.ThreadWakeup(other, 1))
	require.NoError(t, s.ThreadWakeup(p, 1))
	require.NoError(t, recvErr(t, e1))
	assert.Equal(t, 1, p.Waiting())

	require.NoError(t, s.ThreadWakeup(p, 2))
	require.NoError(t, recvErr(t, e2))
}

func TestThreadSleepClearsLockWord(t *testing.T) {
	s := New(Config{})
	p := s.NewProcess()

	word := uint32(1)
	errs := threadSleepAsync(s, p, 7, 0, &word)
	waitNamed(t, s, p, 7, 1)
	assert.Zero(t, atomic.LoadUint32(&word))

	require.NoError(t, s.ThreadWakeup(p, 7))
	require.NoError(t, recvErr(t, errs))
}

func TestThreadSleepTimeout(t *testing.T) {
	s := New(Config{})
	p := s.NewProcess()
	th := s.NewThread(p)

	assert.Equal(t, ErrTimedOut, s.ThreadSleep(th, 9, 10, nil))
	assert.Zero(t, p.Waiting())
	assert.Equal(t, ErrNoSuchWaiter, s.ThreadWakeup(p, 9))
}

func TestAbandonedWaiterKeepsSharedNode(t *testing.T) {
	s := New(Config{})
	p := s.NewProcess()

	forever := threadSleepAsync(s, p, 42, 0, nil)
	waitNamed(t, s, p, 42, 1)
	brief := threadSleepAsync(s, p, 42, 10, nil)

	assert.Equal(t, ErrTimedOut, recvErr(t, brief))
	assert.Equal(t, 1, p.Waiting())

	require.NoError(t, s.ThreadWakeup(p, 42))
	require.NoError(t, recvErr(t, forever))
	assert.Zero(t, p.Waiting())
}

func TestThreadSleepInterrupted(t *testing.T) {
	s := New(Config{})
	p := s.NewProcess()

	errs := make(chan error, 1)
	th := s.Spawn(p, func(th *Thread) {
		errs <- s.ThreadSleep(th, 5, 0, nil)
	})
	waitNamed(t, s, p, 5, 1)

	s.Kill(th, SIGTERM)
	assert.Equal(t, ErrInterrupted, recvErr(t, errs))
	assert.Zero(t, p.Waiting())
}

func TestRecycledNodeIsNotReleasedTwice(t *testing.T) {
	s := New(Config{})
	p := s.NewProcess()

	for i := 0; i < 50; i++ {
		e1 := threadSleepAsync(s, p, 3, 0, nil)
		e2 := threadSleepAsync(s, p, 3, 0, nil)
		waitNamed(t, s, p, 3, 2)
		require.NoError(t, s.ThreadWakeup(p, 3))
		require.NoError(t, recvErr(t, e1))
		require.NoError(t, recvErr(t, e2))
		require.Zero(t, p.Waiting())
	}
}
