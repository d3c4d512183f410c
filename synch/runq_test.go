package synch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParkQueueReschedulesInOrder(t *testing.T) {
	q := NewParkQueue(2, 1)
	q.RequestReschedule(1)
	q.RequestReschedule(0)
	q.RequestReschedule(1)

	assert.True(t, q.ReschedulePending(0))
	assert.True(t, q.ReschedulePending(1))
	assert.Equal(t, uint64(3), q.RescheduleRequests())

	cpu, ok := q.NextReschedule()
	assert.True(t, ok)
	assert.Equal(t, 1, cpu)
	assert.False(t, q.ReschedulePending(1))

	cpu, ok = q.NextReschedule()
	assert.True(t, ok)
	assert.Equal(t, 0, cpu)

	_, ok = q.NextReschedule()
	assert.False(t, ok)
}
