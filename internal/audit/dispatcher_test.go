package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/backoffice-service/internal/domain"
)

type recordingRepo struct {
	mu      sync.Mutex
	entries []domain.LoginLog
	entered chan struct{}
	gate    chan struct{}
}

func (r *recordingRepo) Insert(_ context.Context, entry *domain.LoginLog) error {
	if r.entered != nil {
		r.entered <- struct{}{}
	}
	if r.gate != nil {
		<-r.gate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *recordingRepo) recorded() []domain.LoginLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.LoginLog{}, r.entries...)
}

func TestTasksRunInSubmissionOrder(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(repo, zap.NewNop(), 16)

	d.Submit(Task{Username: "alpha", Event: domain.AuditEventLogin, Outcome: domain.AuditOutcomeSuccess})
	d.Submit(Task{Username: "beta", Event: domain.AuditEventLogout, Outcome: domain.AuditOutcomeSuccess})
	d.Submit(Task{Username: "gamma", Event: domain.AuditEventRegister, Outcome: domain.AuditOutcomeSuccess})
	d.Close()

	entries := repo.recorded()
	require.Len(t, entries, 3)
	require.Equal(t, "alpha", entries[0].Username)
	require.Equal(t, "beta", entries[1].Username)
	require.Equal(t, "gamma", entries[2].Username)
	require.Zero(t, d.Dropped())
}

func TestSubmitStampsTimestamp(t *testing.T) {
	repo := &recordingRepo{}
	d := NewDispatcher(repo, zap.NewNop(), 16)

	before := time.Now()
	d.Submit(Task{Username: "alpha", Event: domain.AuditEventLogin, Outcome: domain.AuditOutcomeSuccess})
	d.Close()

	entries := repo.recorded()
	require.Len(t, entries, 1)
	require.False(t, entries[0].OccurredAt.Before(before))
}

func TestFullQueueDropsInsteadOfBlocking(t *testing.T) {
	gate := make(chan struct{})
	entered := make(chan struct{}, 4)
	repo := &recordingRepo{gate: gate, entered: entered}
	d := NewDispatcher(repo, zap.NewNop(), 1)

	// First task occupies the consumer, second fills the queue; everything
	// after that must be dropped without blocking the submitter.
	d.Submit(Task{Username: "held", Event: domain.AuditEventLogin, Outcome: domain.AuditOutcomeSuccess})
	<-entered
	d.Submit(Task{Username: "queued", Event: domain.AuditEventLogin, Outcome: domain.AuditOutcomeSuccess})

	done := make(chan struct{})
	go func() {
		d.Submit(Task{Username: "dropped", Event: domain.AuditEventLogin, Outcome: domain.AuditOutcomeSuccess})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit blocked on a full queue")
	}

	close(gate)
	d.Close()

	require.GreaterOrEqual(t, d.Dropped(), int64(1))
	for _, entry := range repo.recorded() {
		require.NotEqual(t, "dropped", entry.Username)
	}
}

type failingRepo struct{}

func (failingRepo) Insert(context.Context, *domain.LoginLog) error {
	return context.DeadlineExceeded
}

func TestTaskFailureIsSwallowed(t *testing.T) {
	d := NewDispatcher(failingRepo{}, zap.NewNop(), 16)

	// Must not panic or surface the error anywhere.
	d.Submit(Task{Username: "alpha", Event: domain.AuditEventLogin, Outcome: domain.AuditOutcomeFailure})
	d.Close()
}
