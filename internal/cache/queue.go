package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueFull is returned when a non-critical task is dropped under backpressure.
	ErrQueueFull = errors.New("task queue full")
	// ErrQueueClosed is returned by Submit after Close.
	ErrQueueClosed = errors.New("task queue closed")
)

// Priority orders background tasks. Higher values run first.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// TaskKind names what a task does, for logs and stats.
type TaskKind string

const (
	TaskDialogueWarmup TaskKind = "dialogue_warmup"
	TaskConsolidation  TaskKind = "memory_consolidation"
	TaskPersist        TaskKind = "persist"
	TaskCacheSweep     TaskKind = "cache_sweep"
)

// Task is a unit of background work.
type Task struct {
	Kind     TaskKind
	NPCID    string
	Priority Priority
	Run      func(ctx context.Context) error
}

// QueueStats counts task outcomes.
type QueueStats struct {
	Submitted uint64
	Completed uint64
	Failed    uint64
	Dropped   uint64
	Inline    uint64
	Pending   int
}

// TaskQueue is a bounded multi-producer, single-consumer queue with one FIFO lane per
// priority. A Critical task that finds its lane full runs inline on the caller.
type TaskQueue struct {
	lanes  [PriorityCritical + 1]chan Task
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	start  sync.Once
	stop   sync.Once

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	dropped   atomic.Uint64
	inline    atomic.Uint64
}

// NewTaskQueue creates a queue whose lanes each hold up to capacity tasks. Call Start to
// run the consumer.
func NewTaskQueue(capacity int) *TaskQueue {
	if capacity <= 0 {
		capacity = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	q := &TaskQueue{ctx: ctx, cancel: cancel, done: make(chan struct{})}
	for i := range q.lanes {
		q.lanes[i] = make(chan Task, capacity)
	}
	return q
}

// Start launches the consumer goroutine. Calling it more than once has no effect.
func (q *TaskQueue) Start() {
	q.start.Do(func() {
		go q.consume()
	})
}

// Submit enqueues task without blocking. When the lane is full a Critical task runs
// synchronously and the others are dropped with ErrQueueFull.
func (q *TaskQueue) Submit(task Task) error {
	if task.Run == nil {
		return fmt.Errorf("task %s has no run function", task.Kind)
	}
	if q.ctx.Err() != nil {
		return ErrQueueClosed
	}
	lane := task.Priority
	if lane < PriorityLow {
		lane = PriorityLow
	}
	if lane > PriorityCritical {
		lane = PriorityCritical
	}
	task.Priority = lane

	q.submitted.Add(1)
	select {
	case q.lanes[lane] <- task:
		return nil
	default:
	}

	if lane == PriorityCritical {
		q.inline.Add(1)
		q.run(task)
		return nil
	}
	q.dropped.Add(1)
	slog.Warn("task queue full, dropping task", "kind", task.Kind, "npc_id", task.NPCID, "priority", lane.String())
	return ErrQueueFull
}

func (q *TaskQueue) consume() {
	defer close(q.done)
	for {
		task, ok := q.next()
		if !ok {
			return
		}
		q.run(task)
	}
}

// next returns the head of the highest non-empty lane, blocking until one is available.
func (q *TaskQueue) next() (Task, bool) {
	for p := PriorityCritical; p >= PriorityLow; p-- {
		select {
		case task := <-q.lanes[p]:
			return task, true
		default:
		}
	}

	select {
	case task := <-q.lanes[PriorityCritical]:
		return task, true
	case task := <-q.lanes[PriorityHigh]:
		return task, true
	case task := <-q.lanes[PriorityNormal]:
		return task, true
	case task := <-q.lanes[PriorityLow]:
		return task, true
	case <-q.ctx.Done():
		return Task{}, false
	}
}

func (q *TaskQueue) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.failed.Add(1)
			slog.Error("background task panicked", "kind", task.Kind, "npc_id", task.NPCID, "panic", r)
		}
	}()
	if err := task.Run(q.ctx); err != nil {
		q.failed.Add(1)
		slog.Warn("background task failed", "kind", task.Kind, "npc_id", task.NPCID, "error", err.Error())
		return
	}
	q.completed.Add(1)
}

// Pending returns the number of queued tasks across all lanes.
func (q *TaskQueue) Pending() int {
	n := 0
	for _, lane := range q.lanes {
		n += len(lane)
	}
	return n
}

// Stats returns a snapshot of the counters.
func (q *TaskQueue) Stats() QueueStats {
	return QueueStats{
		Submitted: q.submitted.Load(),
		Completed: q.completed.Load(),
		Failed:    q.failed.Load(),
		Dropped:   q.dropped.Load(),
		Inline:    q.inline.Load(),
		Pending:   q.Pending(),
	}
}

// Close stops the consumer and waits for the running task to return. Queued tasks are
// discarded.
func (q *TaskQueue) Close() {
	q.stop.Do(func() {
		q.cancel()
		started := true
		q.start.Do(func() { started = false })
		if started {
			<-q.done
		}
	})
}
