package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/domain"
	"github.com/spec-kit/backoffice-service/internal/repository"
)

const recordTimeout = 5 * time.Second

// Task is one fire-and-forget audit unit. Immutable once constructed,
// consumed exactly once.
type Task struct {
	Username  string
	Event     domain.AuditEvent
	Outcome   domain.AuditOutcome
	Message   string
	IPAddress string
	At        time.Time
}

// Dispatcher executes audit tasks off the request path. Submit never blocks
// the caller; tasks run in submission order on a single consumer; failures
// are logged, never propagated to the triggering request.
type Dispatcher struct {
	tasks   chan Task
	logs    repository.LoginLogRepository
	logger  *zap.Logger
	dropped atomic.Int64
	done    sync.WaitGroup
	once    sync.Once
}

// NewDispatcher starts the consumer. queueDepth bounds memory; past it new
// tasks are dropped with a counter rather than growing without bound.
func NewDispatcher(logs repository.LoginLogRepository, logger *zap.Logger, queueDepth int) *Dispatcher {
	if queueDepth <= 0 {
		queueDepth = 1024
	}
	d := &Dispatcher{
		tasks:  make(chan Task, queueDepth),
		logs:   logs,
		logger: logger,
	}
	d.done.Add(1)
	go d.run()
	return d
}

// Submit enqueues a task without blocking. A full queue drops the task.
func (d *Dispatcher) Submit(task Task) {
	if task.At.IsZero() {
		task.At = time.Now()
	}
	select {
	case d.tasks <- task:
	default:
		d.dropped.Add(1)
		d.logger.Warn("audit queue full, dropping task",
			zap.String("username", task.Username),
			zap.String("event", string(task.Event)))
	}
}

// Dropped reports how many tasks were discarded due to a full queue.
func (d *Dispatcher) Dropped() int64 {
	return d.dropped.Load()
}

// Close stops accepting tasks and drains the queue.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		close(d.tasks)
	})
	d.done.Wait()
}

func (d *Dispatcher) run() {
	defer d.done.Done()
	for task := range d.tasks {
		d.record(task)
	}
}

func (d *Dispatcher) record(task Task) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	entry := &domain.LoginLog{
		Username:   task.Username,
		Event:      task.Event,
		Outcome:    task.Outcome,
		Message:    task.Message,
		IPAddress:  task.IPAddress,
		OccurredAt: task.At,
	}
	if err := d.logs.Insert(ctx, entry); err != nil {
		d.logger.Error("audit record failed",
			zap.String("username", task.Username),
			zap.String("event", string(task.Event)),
			zap.Error(err))
	}
}
