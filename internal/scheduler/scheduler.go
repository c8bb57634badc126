package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/TheMarco/sora-renderer/internal/infra"
)

// PollRequest asks the orchestrator to poll one job. It carries only ids:
// the scheduler never holds decrypted credential material, so nothing secret
// crosses this boundary.
type PollRequest struct {
	JobID    string
	RemoteID string
}

// PollResponse reports the outcome of one poll back to the scheduler.
// Terminal means the job reached a final state and its timer must go away.
type PollResponse struct {
	JobID    string
	Terminal bool
	Err      error
}

// Config holds the backoff knobs. BackoffFactor must be greater than 1.
type Config struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	BackoffFactor   float64
}

// DefaultConfig mirrors the historical polling constants.
func DefaultConfig() Config {
	return Config{
		InitialInterval: 2500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
		BackoffFactor:   1.5,
	}
}

type entry struct {
	remoteID string
	interval time.Duration
	timer    *time.Timer
	awaiting bool
}

// Scheduler owns one timer per non-terminal job and exchanges typed messages
// with the orchestrator over bounded channels. For any job there is at most
// one outstanding request: the next tick is armed only after the previous
// response has been handled, never on a fixed wall-clock grid.
type Scheduler struct {
	cfg       Config
	mu        sync.Mutex
	entries   map[string]*entry
	requests  chan PollRequest
	responses chan PollResponse
	done      chan struct{}
	closeOnce sync.Once
	logger    infra.Logger
}

const channelBuffer = 16

// New constructs a stopped scheduler; call Run to start processing responses.
func New(cfg Config, logger infra.Logger) *Scheduler {
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = DefaultConfig().InitialInterval
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		cfg.MaxInterval = cfg.InitialInterval
	}
	if cfg.BackoffFactor <= 1 {
		cfg.BackoffFactor = DefaultConfig().BackoffFactor
	}
	return &Scheduler{
		cfg:       cfg,
		entries:   make(map[string]*entry),
		requests:  make(chan PollRequest, channelBuffer),
		responses: make(chan PollResponse, channelBuffer),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Requests is the channel the orchestrator consumes poll requests from.
func (s *Scheduler) Requests() <-chan PollRequest {
	return s.requests
}

// Respond delivers a poll outcome back to the scheduler. Safe to call after
// shutdown; the response is then dropped.
func (s *Scheduler) Respond(resp PollResponse) {
	select {
	case s.responses <- resp:
	case <-s.done:
	}
}

// Run processes poll responses until the context is canceled.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.closeOnce.Do(func() { close(s.done) })
			s.StopAll()
			return
		case resp := <-s.responses:
			s.handleResponse(resp)
		}
	}
}

// Start begins polling a job. Starting an already scheduled job is a no-op,
// so duplicate submissions or double recovery can never create two timers
// for the same id. The first tick fires immediately.
func (s *Scheduler) Start(jobID, remoteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[jobID]; exists {
		return
	}
	e := &entry{remoteID: remoteID, interval: s.cfg.InitialInterval}
	e.timer = time.AfterFunc(0, func() { s.fire(jobID) })
	s.entries[jobID] = e
	s.logger.Debug().Str("job_id", jobID).Str("remote_id", remoteID).Msg("scheduler: polling started")
}

// Stop removes a job's timer entry. A response already in flight for the job
// will be discarded when it arrives because the entry is gone.
func (s *Scheduler) Stop(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[jobID]; ok {
		e.timer.Stop()
		delete(s.entries, jobID)
		s.logger.Debug().Str("job_id", jobID).Msg("scheduler: polling stopped")
	}
}

// StopAll clears every entry. Used on full reset and shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for jobID, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, jobID)
	}
}

// Scheduled reports whether the job currently has a timer entry.
func (s *Scheduler) Scheduled(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[jobID]
	return ok
}

// Poke fires a job's pending timer early, for a user-requested refresh. It
// does nothing while a response is outstanding, preserving the one-request-
// per-job invariant, and nothing for unknown jobs.
func (s *Scheduler) Poke(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[jobID]
	if !ok || e.awaiting {
		return
	}
	e.timer.Stop()
	e.timer = time.AfterFunc(0, func() { s.fire(jobID) })
}

// ResumeJob seeds one recovered job on process start.
type ResumeJob struct {
	JobID    string
	RemoteID string
}

// Resume re-seeds the scheduler from the persistent store after a restart.
// Backoff state is not persisted, so every job restarts at the minimum
// interval as if freshly started.
func (s *Scheduler) Resume(jobs []ResumeJob) {
	for _, job := range jobs {
		if job.RemoteID == "" {
			s.logger.Warn().Str("job_id", job.JobID).Msg("scheduler: skipping resume of job without remote id")
			continue
		}
		s.Start(job.JobID, job.RemoteID)
	}
}

// fire runs in the timer's goroutine: mark the entry awaiting and hand the
// poll request to the orchestrator.
func (s *Scheduler) fire(jobID string) {
	s.mu.Lock()
	e, ok := s.entries[jobID]
	if !ok || e.awaiting {
		s.mu.Unlock()
		return
	}
	e.awaiting = true
	req := PollRequest{JobID: jobID, RemoteID: e.remoteID}
	s.mu.Unlock()

	select {
	case s.requests <- req:
	case <-s.done:
	}
}

func (s *Scheduler) handleResponse(resp PollResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[resp.JobID]
	if !ok {
		// Stopped while the request was in flight; the stale response must
		// not resurrect polling.
		s.logger.Debug().Str("job_id", resp.JobID).Msg("scheduler: discarding response for unscheduled job")
		return
	}
	if !e.awaiting {
		s.logger.Warn().Str("job_id", resp.JobID).Msg("scheduler: discarding response without outstanding request")
		return
	}
	e.awaiting = false

	if resp.Terminal {
		e.timer.Stop()
		delete(s.entries, resp.JobID)
		s.logger.Debug().Str("job_id", resp.JobID).Msg("scheduler: job reached terminal state")
		return
	}
	if resp.Err != nil {
		s.logger.Debug().Err(resp.Err).Str("job_id", resp.JobID).Msg("scheduler: poll reported error, keeping schedule")
	}

	next := time.Duration(float64(e.interval) * s.cfg.BackoffFactor)
	if next > s.cfg.MaxInterval {
		next = s.cfg.MaxInterval
	}
	e.interval = next
	e.timer = time.AfterFunc(next, func() { s.fire(resp.JobID) })
}
