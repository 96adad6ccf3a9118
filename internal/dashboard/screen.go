// Package dashboard implements the events dashboard screen: the pagination fields the user edits,
// the fetch cycle with its loading state, and the view the table is rendered from.
//
// A Screen owns its own state and receives its collaborators explicitly; observers learn about
// changes through Subscribe instead of a shared store.
package dashboard

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/model"
)

// Fetcher dispatches a fetch for a pagination window and returns once the store holds the result.
// Errors are the store's business; the screen only uses the return to know the fetch settled.
type Fetcher interface {
	FetchEvents(ctx context.Context, q model.PaginationQuery) error
}

// EventSource supplies the list the store currently holds.
type EventSource interface {
	Events() []model.Event
}

// pageSource is implemented by sources that also keep the listing metadata.
type pageSource interface {
	Page() model.EventPage
}

// Field names accepted by SetField.
const (
	FieldPage  = "page"
	FieldLimit = "limit"
)

// State is a snapshot of the screen. Revision grows with every change so observers called from
// different goroutines can discard snapshots older than one they already handled.
type State struct {
	Query    model.PaginationQuery `json:"query"`
	Load     model.LoadState       `json:"load"`
	Events   []model.Event         `json:"events"`
	Total    int                   `json:"total"`
	Revision uint64                `json:"revision"`
}

type Screen struct {
	source EventSource
	log    zerolog.Logger

	mu       sync.Mutex
	fetcher  Fetcher
	query    model.PaginationQuery
	load     model.LoadState
	issued   uint64
	mounted  bool
	revision uint64
	subs     map[int]func(State)
	nextSub  int
}

// NewScreen builds an unmounted screen with the initial {page: 1, limit: 10} window.
func NewScreen(fetcher Fetcher, source EventSource, logger zerolog.Logger) *Screen {
	return &Screen{
		source:  source,
		log:     logger.With().Str("component", "dashboard").Logger(),
		fetcher: fetcher,
		query:   model.DefaultPaginationQuery(),
		subs:    make(map[int]func(State)),
	}
}

// SetField stores value under page or limit as typed, leaving the other field untouched.
// Unknown names are ignored. Editing never triggers a fetch.
func (s *Screen) SetField(name, value string) {
	s.mu.Lock()
	switch name {
	case FieldPage:
		s.query.Page = value
	case FieldLimit:
		s.query.Limit = value
	default:
		s.mu.Unlock()
		s.log.Debug().Str("field", name).Msg("ignoring unknown pagination field")
		return
	}
	st, subs := s.changedLocked()
	s.mu.Unlock()
	notify(subs, st)
}

// RunFetch enters the loading state and fetches the current window in the background.
// The returned channel is closed once the completion has been handled.
//
// Every call takes the next sequence number and only the completion of the latest call clears
// the loading state; earlier completions are dropped so overlapping fetches cannot leave the
// screen stuck in loading.
func (s *Screen) RunFetch(ctx context.Context) <-chan struct{} {
	s.mu.Lock()
	s.issued++
	seq := s.issued
	q := s.query
	f := s.fetcher
	s.load = model.LoadState{Loading: true, Message: model.LoadingMessage}
	st, subs := s.changedLocked()
	s.mu.Unlock()
	notify(subs, st)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if f == nil {
			s.log.Warn().Uint64("seq", seq).Msg("no fetcher wired; settling immediately")
		} else if err := f.FetchEvents(ctx, q); err != nil {
			s.log.Debug().Err(err).Uint64("seq", seq).Msg("fetch settled with error")
		}
		s.complete(seq)
	}()
	return done
}

func (s *Screen) complete(seq uint64) {
	s.mu.Lock()
	if seq != s.issued {
		latest := s.issued
		s.mu.Unlock()
		s.log.Debug().Uint64("seq", seq).Uint64("latest", latest).Msg("stale fetch completion dropped")
		return
	}
	s.load = model.LoadState{}
	st, subs := s.changedLocked()
	s.mu.Unlock()
	notify(subs, st)
}

// Mount marks the screen active and runs the initial fetch. Only the first call fetches;
// later calls return an already closed channel.
func (s *Screen) Mount(ctx context.Context) <-chan struct{} {
	s.mu.Lock()
	if s.mounted {
		s.mu.Unlock()
		return closed()
	}
	s.mounted = true
	s.mu.Unlock()
	return s.RunFetch(ctx)
}

// SetFetcher swaps the fetch capability. A mounted screen re-fetches when the identity changed;
// triggered reports whether it did. Fetcher implementations must be comparable.
func (s *Screen) SetFetcher(ctx context.Context, f Fetcher) (done <-chan struct{}, triggered bool) {
	s.mu.Lock()
	changed := s.fetcher != f
	s.fetcher = f
	mounted := s.mounted
	s.mu.Unlock()
	if !changed || !mounted {
		return closed(), false
	}
	return s.RunFetch(ctx), true
}

// State returns the current snapshot.
func (s *Screen) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for every later state change. fn may run on a fetch goroutine
// and must not block for long.
func (s *Screen) Subscribe(fn func(State)) (unsubscribe func()) {
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

func (s *Screen) snapshotLocked() State {
	st := State{Query: s.query, Load: s.load, Revision: s.revision}
	if s.source != nil {
		st.Events = s.source.Events()
		st.Total = len(st.Events)
		if ps, ok := s.source.(pageSource); ok {
			st.Total = ps.Page().Total
		}
	}
	return st
}

// changedLocked bumps the revision and returns what notify needs; mu must be held.
func (s *Screen) changedLocked() (State, []func(State)) {
	s.revision++
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return s.snapshotLocked(), subs
}

func notify(subs []func(State), st State) {
	for _, fn := range subs {
		fn(st)
	}
}

func closed() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
