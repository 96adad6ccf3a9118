// Package store is the event state container a dashboard screen reads from and dispatches fetches to.
// Each screen gets its own Store; nothing here is process-global.
package store

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/service"
)

// Store holds the most recent successful listing.
type Store struct {
	svc service.EventService
	log zerolog.Logger

	dispatched atomic.Uint64

	mu      sync.RWMutex
	events  []model.Event
	page    model.EventPage
	applied uint64
	subs    map[int]func([]model.Event)
	nextSub int
}

func New(svc service.EventService, logger zerolog.Logger) *Store {
	return &Store{
		svc:  svc,
		log:  logger.With().Str("component", "event_store").Logger(),
		subs: make(map[int]func([]model.Event)),
	}
}

// FetchEvents asks the service for the window described by q and replaces the held list.
// On failure the previous list stays in place and the error is returned. A dispatch that
// finishes after a newer one has already been applied is discarded.
func (s *Store) FetchEvents(ctx context.Context, q model.PaginationQuery) error {
	seq := s.dispatched.Add(1)
	page, err := s.svc.ListEvents(ctx, q)

	s.mu.Lock()
	if err != nil {
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("page", q.Page).Str("limit", q.Limit).Uint64("dispatch", seq).Msg("fetch events failed")
		return err
	}
	if seq < s.applied {
		s.mu.Unlock()
		s.log.Debug().Uint64("dispatch", seq).Uint64("applied", s.applied).Msg("stale fetch result dropped")
		return nil
	}
	s.applied = seq
	s.events = page.Items
	s.page = page
	events := s.events
	subs := s.subscribers()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(events)
	}
	return nil
}

// Events returns the current list. The slice is shared; callers must not modify it.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.events
}

// Page returns the metadata of the listing currently held. The dashboard reads Total from it.
func (s *Store) Page() model.EventPage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.page
}

// Subscribe registers fn to be called with the new list after every replacement.
func (s *Store) Subscribe(fn func([]model.Event)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// subscribers must be called with mu held.
func (s *Store) subscribers() []func([]model.Event) {
	out := make([]func([]model.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		out = append(out, fn)
	}
	return out
}
