// Package dispatcher moves moderation actions off the detection path. The
// engine enqueues jobs and a small pool of workers executes them against the
// platform, so a slow REST call can never stall event processing.
package dispatcher

import (
	"sync"
	"time"
)

type JobType uint8

const (
	JobDeleteMessage JobType = iota + 1
	JobTimeout
	JobClearTimeout
	JobBan
	JobKick
	JobRaidLock
	JobNotify
)

type JobPriority uint8

const (
	PriorityNormal JobPriority = iota
	PriorityCritical
)

// Job is one unit of follow-up work. Fields beyond Type/GuildID are
// populated per job type; unused fields stay zero.
type Job struct {
	Type      JobType
	Priority  JobPriority
	GuildID   uint64
	TargetID  uint64
	ChannelID uint64
	MessageID uint64
	Duration  time.Duration
	Reason    string

	// notify payload
	Title       string
	Description string
	Color       int

	EnqueuedAt int64
}

func NewDeleteJob(guildID, channelID, messageID uint64, reason string) *Job {
	return &Job{Type: JobDeleteMessage, GuildID: guildID, ChannelID: channelID, MessageID: messageID, Reason: reason}
}

func NewTimeoutJob(guildID, userID uint64, d time.Duration, reason string) *Job {
	return &Job{Type: JobTimeout, GuildID: guildID, TargetID: userID, Duration: d, Reason: reason}
}

func NewClearTimeoutJob(guildID, userID uint64, reason string) *Job {
	return &Job{Type: JobClearTimeout, GuildID: guildID, TargetID: userID, Reason: reason}
}

func NewBanJob(guildID, userID uint64, reason string) *Job {
	return &Job{Type: JobBan, GuildID: guildID, TargetID: userID, Reason: reason}
}

func NewKickJob(guildID, userID uint64, reason string) *Job {
	return &Job{Type: JobKick, GuildID: guildID, TargetID: userID, Reason: reason}
}

// NewRaidLockJob is the only critical-priority job: during a raid the
// lockdown must jump every queued delete and timeout.
func NewRaidLockJob(guildID uint64) *Job {
	return &Job{Type: JobRaidLock, Priority: PriorityCritical, GuildID: guildID}
}

func NewNotifyJob(guildID uint64, title, description string, color int) *Job {
	return &Job{Type: JobNotify, GuildID: guildID, Title: title, Description: description, Color: color}
}

// Queue is a two-lane FIFO. One producer (the engine) and several workers
// share it, so unlike the event ring buffer it takes a mutex; contention is
// low because jobs are rare relative to events.
type Queue struct {
	mu       sync.Mutex
	critical []*Job
	normal   []*Job
}

func NewQueue() *Queue {
	return &Queue{
		critical: make([]*Job, 0, 64),
		normal:   make([]*Job, 0, 1024),
	}
}

func (q *Queue) Enqueue(job *Job) {
	q.mu.Lock()
	if job.Priority == PriorityCritical {
		q.critical = append(q.critical, job)
	} else {
		q.normal = append(q.normal, job)
	}
	q.mu.Unlock()
}

func (q *Queue) Dequeue() (*Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.critical) > 0 {
		job := q.critical[0]
		q.critical = q.critical[1:]
		return job, true
	}
	if len(q.normal) > 0 {
		job := q.normal[0]
		q.normal = q.normal[1:]
		return job, true
	}
	return nil, false
}

func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.critical) + len(q.normal)
}
