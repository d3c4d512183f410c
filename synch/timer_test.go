package synch

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerFires(t *testing.T) {
	fired := make(chan struct{})
	tm := newTimer(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.False(t, tm.pending())
	assert.False(t, tm.disable())
}

func TestTimerDisable(t *testing.T) {
	var fired int32
	tm := newTimer(20*time.Millisecond, func() { atomic.StoreInt32(&fired, 1) })
	require.True(t, tm.pending())
	require.True(t, tm.disable())

	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, atomic.LoadInt32(&fired))
}

func TestReschedSetCoalesces(t *testing.T) {
	r := newReschedSet(2)
	r.request(1)
	r.request(1)
	r.request(0)
	assert.True(t, r.pending(1))
	assert.EqualValues(t, 3, r.requests())

	cpu, ok := r.next()
	require.True(t, ok)
	assert.Equal(t, 1, cpu)
	assert.False(t, r.pending(1))

	cpu, ok = r.next()
	require.True(t, ok)
	assert.Equal(t, 0, cpu)

	_, ok = r.next()
	assert.False(t, ok)
}

func TestNotifierKeepsEarlyPost(t *testing.T) {
	n := newNotifier()
	require.True(t, n.post())
	assert.False(t, n.post())

	select {
	case <-n.wait():
	default:
		t.Fatal("post was lost")
	}
}
