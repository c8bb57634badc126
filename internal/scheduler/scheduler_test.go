package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(Config{
		InitialInterval: time.Millisecond,
		MaxInterval:     8 * time.Millisecond,
		BackoffFactor:   2,
	}, zerolog.New(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)
	return s
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func receiveRequest(t *testing.T, s *Scheduler) PollRequest {
	t.Helper()
	select {
	case req := <-s.Requests():
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for poll request")
		return PollRequest{}
	}
}

func assertNoRequest(t *testing.T, s *Scheduler, wait time.Duration) {
	t.Helper()
	select {
	case req := <-s.Requests():
		t.Fatalf("unexpected poll request for %s", req.JobID)
	case <-time.After(wait):
	}
}

func (s *Scheduler) intervalOf(jobID string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	if !ok {
		return 0, false
	}
	return e.interval, true
}

func (s *Scheduler) awaiting(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	return ok && e.awaiting
}

func TestStartEmitsImmediateRequest(t *testing.T) {
	s := newTestScheduler(t)
	s.Start("j1", "r1")

	req := receiveRequest(t, s)
	if req.JobID != "j1" || req.RemoteID != "r1" {
		t.Fatalf("unexpected request %+v", req)
	}
	if !s.Scheduled("j1") {
		t.Fatal("job should remain scheduled while awaiting response")
	}
}

func TestStartIsIdempotent(t *testing.T) {
	s := newTestScheduler(t)
	s.Start("j1", "r1")
	s.Start("j1", "r1")
	s.Start("j1", "other")

	receiveRequest(t, s)
	// The duplicate starts must not have armed extra timers.
	assertNoRequest(t, s, 50*time.Millisecond)
}

func TestSingleOutstandingRequest(t *testing.T) {
	s := newTestScheduler(t)
	s.Start("j1", "r1")
	receiveRequest(t, s)

	// No response yet: no new tick may fire, even when poked.
	s.Poke("j1")
	assertNoRequest(t, s, 50*time.Millisecond)

	s.Respond(PollResponse{JobID: "j1"})
	receiveRequest(t, s)
}

func TestBackoffNonDecreasingAndBounded(t *testing.T) {
	s := newTestScheduler(t)
	s.Start("j1", "r1")

	prev := time.Duration(0)
	for i := 0; i < 8; i++ {
		receiveRequest(t, s)
		s.Respond(PollResponse{JobID: "j1"})
		waitFor(t, "interval update", func() bool {
			interval, ok := s.intervalOf("j1")
			return ok && (interval != prev || interval == s.cfg.MaxInterval)
		})
		interval, ok := s.intervalOf("j1")
		if !ok {
			t.Fatal("entry disappeared")
		}
		if interval < prev {
			t.Fatalf("interval decreased: %v -> %v", prev, interval)
		}
		if interval > s.cfg.MaxInterval {
			t.Fatalf("interval %v above max %v", interval, s.cfg.MaxInterval)
		}
		prev = interval
	}
	if prev != s.cfg.MaxInterval {
		t.Fatalf("backoff never reached the cap: %v", prev)
	}
}

func TestTerminalResponseRemovesEntry(t *testing.T) {
	s := newTestScheduler(t)
	s.Start("j1", "r1")
	receiveRequest(t, s)

	s.Respond(PollResponse{JobID: "j1", Terminal: true})
	waitFor(t, "entry removal", func() bool { return !s.Scheduled("j1") })
	assertNoRequest(t, s, 50*time.Millisecond)
}

func TestStopDiscardsLateResponse(t *testing.T) {
	s := newTestScheduler(t)
	s.Start("j1", "r1")
	receiveRequest(t, s)

	// Stop while the request is in flight, then deliver the stale response.
	s.Stop("j1")
	if s.Scheduled("j1") {
		t.Fatal("entry should be removed immediately")
	}
	s.Respond(PollResponse{JobID: "j1"})

	// The stale response must not resurrect the timer.
	assertNoRequest(t, s, 50*time.Millisecond)
	if s.Scheduled("j1") {
		t.Fatal("stale response re-created the entry")
	}
}

func TestResponseForUnknownJobIsDiscarded(t *testing.T) {
	s := newTestScheduler(t)
	s.Respond(PollResponse{JobID: "ghost"})
	assertNoRequest(t, s, 50*time.Millisecond)
}

func TestStopAll(t *testing.T) {
	s := newTestScheduler(t)
	s.Start("j1", "r1")
	s.Start("j2", "r2")
	s.StopAll()
	if s.Scheduled("j1") || s.Scheduled("j2") {
		t.Fatal("StopAll left entries behind")
	}
}

func TestResumeSkipsJobsWithoutRemoteID(t *testing.T) {
	s := newTestScheduler(t)
	s.Resume([]ResumeJob{
		{JobID: "j1", RemoteID: "r1"},
		{JobID: "j2", RemoteID: ""},
	})
	if !s.Scheduled("j1") {
		t.Fatal("j1 should be scheduled")
	}
	if s.Scheduled("j2") {
		t.Fatal("j2 has no remote id and must not be scheduled")
	}
}

func TestPokeFiresEarly(t *testing.T) {
	s := New(Config{
		InitialInterval: time.Hour,
		MaxInterval:     time.Hour,
		BackoffFactor:   2,
	}, zerolog.New(io.Discard))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go s.Run(ctx)

	s.Start("j1", "r1")
	receiveRequest(t, s)
	s.Respond(PollResponse{JobID: "j1"})

	// Next tick is an hour out; poke must bring it forward.
	waitFor(t, "response handling", func() bool {
		return s.Scheduled("j1") && !s.awaiting("j1")
	})
	s.Poke("j1")
	receiveRequest(t, s)
}
