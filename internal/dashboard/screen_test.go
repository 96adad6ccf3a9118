package dashboard_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/care-events-dashboard/internal/dashboard"
	"github.com/maxviazov/care-events-dashboard/internal/model"
)

const waitFor = 2 * time.Second

type fetchCall struct {
	q    model.PaginationQuery
	gate chan error
}

// gatedFetcher blocks every fetch until the test releases its gate.
type gatedFetcher struct {
	calls chan fetchCall
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{calls: make(chan fetchCall, 16)}
}

func (f *gatedFetcher) FetchEvents(ctx context.Context, q model.PaginationQuery) error {
	c := fetchCall{q: q, gate: make(chan error, 1)}
	f.calls <- c
	select {
	case err := <-c.gate:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *gatedFetcher) next(t *testing.T) fetchCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(waitFor):
		t.Fatal("expected a fetch to be dispatched")
		return fetchCall{}
	}
}

func (f *gatedFetcher) assertIdle(t *testing.T) {
	t.Helper()
	select {
	case c := <-f.calls:
		t.Fatalf("unexpected fetch dispatched: %+v", c.q)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeSource struct {
	mu     sync.Mutex
	events []model.Event
}

func (s *fakeSource) Events() []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func (s *fakeSource) set(events ...model.Event) {
	s.mu.Lock()
	s.events = events
	s.mu.Unlock()
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("fetch did not settle")
	}
}

func newScreen(f dashboard.Fetcher, src dashboard.EventSource) *dashboard.Screen {
	return dashboard.NewScreen(f, src, zerolog.Nop())
}

func TestScreen_InitialState(t *testing.T) {
	s := newScreen(newGatedFetcher(), &fakeSource{})
	st := s.State()
	assert.Equal(t, model.PaginationQuery{Page: "1", Limit: "10"}, st.Query)
	assert.False(t, st.Load.Loading)
	assert.Empty(t, st.Load.Message)
}

func TestScreen_SetField(t *testing.T) {
	tests := []struct {
		name  string
		field string
		value string
		want  model.PaginationQuery
	}{
		{"page only", "page", "3", model.PaginationQuery{Page: "3", Limit: "10"}},
		{"limit only", "limit", "25", model.PaginationQuery{Page: "1", Limit: "25"}},
		{"no coercion", "page", "abc", model.PaginationQuery{Page: "abc", Limit: "10"}},
		{"empty value kept", "limit", "", model.PaginationQuery{Page: "1", Limit: ""}},
		{"unknown ignored", "sort", "desc", model.PaginationQuery{Page: "1", Limit: "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newGatedFetcher()
			s := newScreen(f, &fakeSource{})
			s.SetField(tt.field, tt.value)
			assert.Equal(t, tt.want, s.State().Query)
			f.assertIdle(t)
		})
	}
}

func TestScreen_MountFetchesOnce(t *testing.T) {
	f := newGatedFetcher()
	s := newScreen(f, &fakeSource{})
	ctx := context.Background()

	done := s.Mount(ctx)
	c := f.next(t)
	assert.Equal(t, model.PaginationQuery{Page: "1", Limit: "10"}, c.q)

	st := s.State()
	assert.True(t, st.Load.Loading)
	assert.Equal(t, "Loading", st.Load.Message)

	again := s.Mount(ctx)
	wait(t, again)
	f.assertIdle(t)

	c.gate <- nil
	wait(t, done)
	st = s.State()
	assert.False(t, st.Load.Loading)
	assert.Empty(t, st.Load.Message)
}

func TestScreen_FetchErrorClearsLoading(t *testing.T) {
	f := newGatedFetcher()
	src := &fakeSource{}
	src.set(testEvent("e1"))
	s := newScreen(f, src)

	done := s.Mount(context.Background())
	f.next(t).gate <- errors.New("backend down")
	wait(t, done)

	st := s.State()
	assert.False(t, st.Load.Loading)
	require.Len(t, st.Events, 1, "previous list stays visible")
}

func TestScreen_FilterUsesEditedQuery(t *testing.T) {
	f := newGatedFetcher()
	s := newScreen(f, &fakeSource{})
	ctx := context.Background()

	done := s.Mount(ctx)
	f.next(t).gate <- nil
	wait(t, done)

	s.SetField("page", "2")
	f.assertIdle(t)

	done = s.RunFetch(ctx)
	c := f.next(t)
	assert.Equal(t, model.PaginationQuery{Page: "2", Limit: "10"}, c.q)
	c.gate <- nil
	wait(t, done)
}

func TestScreen_OverlappingFetchesOnlyLatestSettles(t *testing.T) {
	f := newGatedFetcher()
	s := newScreen(f, &fakeSource{})
	ctx := context.Background()

	first := s.RunFetch(ctx)
	c1 := f.next(t)
	second := s.RunFetch(ctx)
	c2 := f.next(t)

	t.Run("early completion of the older fetch keeps loading", func(t *testing.T) {
		c1.gate <- nil
		wait(t, first)
		assert.True(t, s.State().Load.Loading)
	})

	t.Run("latest completion clears loading", func(t *testing.T) {
		c2.gate <- nil
		wait(t, second)
		assert.False(t, s.State().Load.Loading)
	})
}

func TestScreen_StaleCompletionAfterLatestIsDropped(t *testing.T) {
	f := newGatedFetcher()
	s := newScreen(f, &fakeSource{})
	ctx := context.Background()

	first := s.RunFetch(ctx)
	c1 := f.next(t)
	second := s.RunFetch(ctx)
	c2 := f.next(t)

	c2.gate <- nil
	wait(t, second)
	rev := s.State().Revision

	c1.gate <- nil
	wait(t, first)
	st := s.State()
	assert.False(t, st.Load.Loading)
	assert.Equal(t, rev, st.Revision, "stale completion must not touch state")
}

type otherFetcher struct{ *gatedFetcher }

func TestScreen_SetFetcher(t *testing.T) {
	ctx := context.Background()

	t.Run("unmounted does not fetch", func(t *testing.T) {
		f := newGatedFetcher()
		s := newScreen(nil, &fakeSource{})
		done, triggered := s.SetFetcher(ctx, f)
		assert.False(t, triggered)
		wait(t, done)
		f.assertIdle(t)
	})

	t.Run("same fetcher does not refetch", func(t *testing.T) {
		f := newGatedFetcher()
		s := newScreen(f, &fakeSource{})
		done := s.Mount(ctx)
		f.next(t).gate <- nil
		wait(t, done)

		_, triggered := s.SetFetcher(ctx, f)
		assert.False(t, triggered)
		f.assertIdle(t)
	})

	t.Run("changed fetcher refetches when mounted", func(t *testing.T) {
		f := newGatedFetcher()
		s := newScreen(f, &fakeSource{})
		done := s.Mount(ctx)
		f.next(t).gate <- nil
		wait(t, done)

		g := otherFetcher{newGatedFetcher()}
		done, triggered := s.SetFetcher(ctx, g)
		require.True(t, triggered)
		c := g.next(t)
		assert.Equal(t, model.PaginationQuery{Page: "1", Limit: "10"}, c.q)
		c.gate <- nil
		wait(t, done)
		f.assertIdle(t)
	})
}

func TestScreen_NilFetcherSettles(t *testing.T) {
	s := newScreen(nil, nil)
	wait(t, s.Mount(context.Background()))
	st := s.State()
	assert.False(t, st.Load.Loading)
	assert.Empty(t, st.Events)
}

func TestScreen_SubscribeRevisions(t *testing.T) {
	f := newGatedFetcher()
	s := newScreen(f, &fakeSource{})

	var mu sync.Mutex
	var seen []dashboard.State
	unsubscribe := s.Subscribe(func(st dashboard.State) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	s.SetField("limit", "5")
	done := s.Mount(context.Background())
	f.next(t).gate <- nil
	wait(t, done)

	mu.Lock()
	require.Len(t, seen, 3)
	assert.Equal(t, "5", seen[0].Query.Limit)
	assert.True(t, seen[1].Load.Loading)
	assert.False(t, seen[2].Load.Loading)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Revision, seen[i-1].Revision)
	}
	mu.Unlock()

	unsubscribe()
	s.SetField("page", "9")
	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
}

// pagedSource also reports listing metadata, like the store does.
type pagedSource struct {
	fakeSource
	total int
}

func (s *pagedSource) Page() model.EventPage { return model.EventPage{Total: s.total} }

func TestScreen_Total(t *testing.T) {
	t.Run("taken from the source page when it has one", func(t *testing.T) {
		src := &pagedSource{total: 57}
		src.set(testEvent("a"), testEvent("b"))
		f := newGatedFetcher()
		s := newScreen(f, src)
		done := s.Mount(context.Background())
		f.next(t).gate <- nil
		wait(t, done)
		assert.Equal(t, 57, s.State().Total)
	})

	t.Run("falls back to the list length", func(t *testing.T) {
		src := &fakeSource{}
		src.set(testEvent("a"), testEvent("b"))
		assert.Equal(t, 2, newScreen(nil, src).State().Total)
	})
}

func testEvent(id string) model.Event {
	return model.Event{Payload: model.EventPayload{
		ID:              id,
		CareRecipientID: "r-" + id,
		VisitID:         "v-" + id,
		EventType:       "check_in",
		Timestamp:       "2024-05-01T10:00:00Z",
	}}
}
