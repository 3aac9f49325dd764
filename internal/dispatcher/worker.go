package dispatcher

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/AunuHost/GLX-Protection-Free-Version/internal/logging"
)

// Executor is the platform surface workers act through. The bot layer
// implements it with a mix of gateway-session calls and direct REST.
type Executor interface {
	DeleteMessage(guildID, channelID, messageID uint64, reason string) error
	Timeout(job *Job) error
	ClearTimeout(guildID, userID uint64, reason string) error
	Ban(guildID, userID uint64, reason string) error
	Kick(guildID, userID uint64, reason string) error
	RaidLock(guildID uint64) (int, error)
	Notify(guildID uint64, title, description string, color int) error
}

// Worker drains the job queue. Failures are logged and dropped; a missed
// delete or timeout must never wedge the queue behind it.
type Worker struct {
	queue    *Queue
	executor Executor
	id       int
	running  atomic.Bool

	// heartbeat, read by the watchdog
	lastActive atomic.Int64
}

func NewWorker(queue *Queue, executor Executor, id int) *Worker {
	return &Worker{queue: queue, executor: executor, id: id}
}

func (w *Worker) Start() {
	w.running.Store(true)
	w.lastActive.Store(time.Now().UnixNano())

	var spins uint32
	for w.running.Load() {
		job, ok := w.queue.Dequeue()
		if !ok {
			spins++
			if spins&0x3FFF == 0 {
				w.lastActive.Store(time.Now().UnixNano())
			}
			runtime.Gosched()
			continue
		}
		w.execute(job)
	}
}

func (w *Worker) Stop() {
	w.running.Store(false)
}

// LastHeartbeat returns the unix-nano timestamp of the last executed job.
func (w *Worker) LastHeartbeat() int64 {
	return w.lastActive.Load()
}

func (w *Worker) execute(job *Job) {
	var err error
	switch job.Type {
	case JobDeleteMessage:
		err = w.executor.DeleteMessage(job.GuildID, job.ChannelID, job.MessageID, job.Reason)
	case JobTimeout:
		err = w.executor.Timeout(job)
	case JobClearTimeout:
		err = w.executor.ClearTimeout(job.GuildID, job.TargetID, job.Reason)
	case JobBan:
		err = w.executor.Ban(job.GuildID, job.TargetID, job.Reason)
	case JobKick:
		err = w.executor.Kick(job.GuildID, job.TargetID, job.Reason)
	case JobRaidLock:
		_, err = w.executor.RaidLock(job.GuildID)
	case JobNotify:
		err = w.executor.Notify(job.GuildID, job.Title, job.Description, job.Color)
	default:
		logging.Warn("[worker %d] unknown job type %d", w.id, job.Type)
	}

	if err != nil {
		logging.Warn("[worker %d] job type %d guild %d failed: %v", w.id, job.Type, job.GuildID, err)
	}
	w.lastActive.Store(time.Now().UnixNano())
}
