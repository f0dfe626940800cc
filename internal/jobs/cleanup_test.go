package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/reservio/reservio/internal/domain/session"
)

// stubSessionService records Prune calls and returns canned results.
type stubSessionService struct {
	session.Service

	pruneCalls []session.CleanupMode
	removed    int64
	err        error
}

func (s *stubSessionService) Prune(_ context.Context, mode session.CleanupMode) (int64, error) {
	s.pruneCalls = append(s.pruneCalls, mode)
	return s.removed, s.err
}

func TestCleanupJob_Run(t *testing.T) {
	stub := &stubSessionService{removed: 4}
	job := &CleanupJob{Sessions: stub, Mode: session.CleanupFull}

	job.Run()

	if len(stub.pruneCalls) != 1 {
		t.Fatalf("Prune called %d times, want 1", len(stub.pruneCalls))
	}
	if stub.pruneCalls[0] != session.CleanupFull {
		t.Errorf("Prune mode = %q, want %q", stub.pruneCalls[0], session.CleanupFull)
	}
}

func TestCleanupJob_Run_SwallowsErrors(t *testing.T) {
	stub := &stubSessionService{err: errors.New("store down")}
	job := &CleanupJob{Sessions: stub, Mode: session.CleanupExpired}

	// Must not panic; the scheduler keeps running after a failed pass.
	job.Run()

	if len(stub.pruneCalls) != 1 {
		t.Fatalf("Prune called %d times, want 1", len(stub.pruneCalls))
	}
}

func TestCleanupJob_Run_AppliesTimeout(t *testing.T) {
	done := make(chan time.Time, 1)
	stub := &deadlineCapturingService{deadlines: done}
	job := &CleanupJob{Sessions: stub, Mode: session.CleanupFull, Timeout: 30 * time.Second}

	before := time.Now()
	job.Run()

	select {
	case deadline := <-done:
		if deadline.Before(before.Add(29*time.Second)) || deadline.After(before.Add(31*time.Second)) {
			t.Errorf("context deadline = %v, want ~30s from run start", deadline)
		}
	default:
		t.Fatalf("Prune never received a context deadline")
	}
}

type deadlineCapturingService struct {
	session.Service

	deadlines chan time.Time
}

func (s *deadlineCapturingService) Prune(ctx context.Context, _ session.CleanupMode) (int64, error) {
	if deadline, ok := ctx.Deadline(); ok {
		s.deadlines <- deadline
	}
	return 0, nil
}

func TestScheduler_AddJob_RejectsBadSpec(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	if err := s.AddJob("not a cron spec", &CleanupJob{}); err == nil {
		t.Errorf("AddJob() with malformed spec expected error")
	}
	if err := s.AddJob("0 3 * * *", &CleanupJob{Sessions: &stubSessionService{}}); err != nil {
		t.Errorf("AddJob() with valid spec unexpected error: %v", err)
	}
}
