package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/service"
	"github.com/maxviazov/care-events-dashboard/internal/store"
)

type listCall struct {
	q     model.PaginationQuery
	reply chan listReply
}

type listReply struct {
	page model.EventPage
	err  error
}

// fakeService answers ListEvents only when the test replies to the call.
type fakeService struct {
	service.EventService
	calls chan listCall
}

func newFakeService() *fakeService {
	return &fakeService{calls: make(chan listCall, 8)}
}

func (f *fakeService) ListEvents(_ context.Context, q model.PaginationQuery) (model.EventPage, error) {
	c := listCall{q: q, reply: make(chan listReply, 1)}
	f.calls <- c
	r := <-c.reply
	return r.page, r.err
}

func (f *fakeService) next(t *testing.T) listCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected ListEvents to be called")
		return listCall{}
	}
}

func event(id string) model.Event {
	return model.Event{Payload: model.EventPayload{ID: id, CareRecipientID: "r", EventType: "check_in", Timestamp: "t"}}
}

func pageOf(events ...model.Event) model.EventPage {
	return model.EventPage{Items: events, Total: len(events), Page: 1, Limit: 10}
}

func fetchAsync(s *store.Store, q model.PaginationQuery) <-chan error {
	out := make(chan error, 1)
	go func() { out <- s.FetchEvents(context.Background(), q) }()
	return out
}

func TestStore_FetchReplacesList(t *testing.T) {
	svc := newFakeService()
	s := store.New(svc, zerolog.Nop())
	assert.Empty(t, s.Events())

	var notified [][]model.Event
	s.Subscribe(func(events []model.Event) { notified = append(notified, events) })

	q := model.PaginationQuery{Page: "2", Limit: "5"}
	res := fetchAsync(s, q)
	c := svc.next(t)
	assert.Equal(t, q, c.q)
	c.reply <- listReply{page: pageOf(event("a"), event("b"))}
	require.NoError(t, <-res)

	require.Len(t, s.Events(), 2)
	assert.Equal(t, "a", s.Events()[0].ID())
	assert.Equal(t, 2, s.Page().Total)
	assert.Len(t, notified, 1)
}

func TestStore_ErrorKeepsPreviousList(t *testing.T) {
	svc := newFakeService()
	s := store.New(svc, zerolog.Nop())

	res := fetchAsync(s, model.DefaultPaginationQuery())
	svc.next(t).reply <- listReply{page: pageOf(event("a"))}
	require.NoError(t, <-res)

	boom := errors.New("db down")
	res = fetchAsync(s, model.DefaultPaginationQuery())
	svc.next(t).reply <- listReply{err: boom}
	assert.ErrorIs(t, <-res, boom)

	require.Len(t, s.Events(), 1)
	assert.Equal(t, "a", s.Events()[0].ID())
	assert.Equal(t, 1, s.Page().Total, "metadata of the failed window is not applied")
}

func TestStore_StaleResultDropped(t *testing.T) {
	svc := newFakeService()
	s := store.New(svc, zerolog.Nop())

	older := fetchAsync(s, model.PaginationQuery{Page: "1", Limit: "10"})
	c1 := svc.next(t)
	newer := fetchAsync(s, model.PaginationQuery{Page: "2", Limit: "10"})
	c2 := svc.next(t)

	c2.reply <- listReply{page: pageOf(event("new"))}
	require.NoError(t, <-newer)
	c1.reply <- listReply{page: pageOf(event("old"))}
	require.NoError(t, <-older)

	require.Len(t, s.Events(), 1)
	assert.Equal(t, "new", s.Events()[0].ID())
}

func TestStore_Unsubscribe(t *testing.T) {
	svc := newFakeService()
	s := store.New(svc, zerolog.Nop())

	calls := 0
	unsubscribe := s.Subscribe(func([]model.Event) { calls++ })
	unsubscribe()

	res := fetchAsync(s, model.DefaultPaginationQuery())
	svc.next(t).reply <- listReply{page: pageOf()}
	require.NoError(t, <-res)
	assert.Zero(t, calls)
}
