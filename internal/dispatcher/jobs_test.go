package dispatcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueOrdering(t *testing.T) {
	t.Run("fifo within a lane", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(NewBanJob(1, 10, "a"))
		q.Enqueue(NewKickJob(1, 11, "b"))

		job, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, JobBan, job.Type)
		job, ok = q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, JobKick, job.Type)
	})

	t.Run("critical jobs jump queued normal work", func(t *testing.T) {
		q := NewQueue()
		q.Enqueue(NewDeleteJob(1, 2, 3, "spam"))
		q.Enqueue(NewTimeoutJob(1, 10, time.Minute, "spam"))
		q.Enqueue(NewRaidLockJob(1))

		job, ok := q.Dequeue()
		require.True(t, ok)
		assert.Equal(t, JobRaidLock, job.Type)
		assert.Equal(t, 2, q.Size())
	})

	t.Run("empty queue reports no job", func(t *testing.T) {
		q := NewQueue()
		_, ok := q.Dequeue()
		assert.False(t, ok)
		assert.Equal(t, 0, q.Size())
	})
}

func TestJobConstructors(t *testing.T) {
	job := NewTimeoutJob(5, 6, 10*time.Minute, "spam")
	assert.Equal(t, JobTimeout, job.Type)
	assert.Equal(t, uint64(5), job.GuildID)
	assert.Equal(t, uint64(6), job.TargetID)
	assert.Equal(t, 10*time.Minute, job.Duration)
	assert.Equal(t, PriorityNormal, job.Priority)

	lock := NewRaidLockJob(5)
	assert.Equal(t, PriorityCritical, lock.Priority)
}
