package notify

import (
	"sync"

	"github.com/TheMarco/sora-renderer/internal/domain"
	"github.com/TheMarco/sora-renderer/internal/infra"
)

// EventKind enumerates the notification categories the service emits.
type EventKind string

const (
	EventJobUpdated   EventKind = "job_updated"
	EventJobCompleted EventKind = "job_completed"
	EventAssetAdded   EventKind = "asset_added"
)

// Event is one notification delivered to subscribers.
type Event struct {
	Kind    EventKind        `json:"kind"`
	JobID   string           `json:"job_id,omitempty"`
	AssetID string           `json:"asset_id,omitempty"`
	Status  domain.JobStatus `json:"status,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Service is an injected, lifetime-scoped publish/subscribe hub. Delivery is
// non-blocking: events to subscribers whose buffers are full are dropped
// rather than stalling the publisher.
type Service struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
	logger infra.Logger
}

// NewService constructs an empty hub.
func NewService(logger infra.Logger) *Service {
	return &Service{
		subs:   make(map[int]chan Event),
		logger: logger,
	}
}

// Subscribe registers a subscriber with the given channel buffer and returns
// the receive channel plus a cancel func. Cancel is idempotent and closes the
// channel.
func (s *Service) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
	return ch, cancel
}

// Publish fans an event out to every subscriber.
func (s *Service) Publish(event Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for id, ch := range s.subs {
		select {
		case ch <- event:
		default:
			s.logger.Warn().Int("subscriber", id).Str("kind", string(event.Kind)).Msg("notify: dropping event for slow subscriber")
		}
	}
}

// Close shuts the hub down and closes all subscriber channels.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}
