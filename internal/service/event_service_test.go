package service_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
	"github.com/maxviazov/care-events-dashboard/internal/repository/memory"
	"github.com/maxviazov/care-events-dashboard/internal/service"
)

type fakeEventRepo struct {
	items    map[string]model.Event
	order    []string
	listErr  error
	lastPage repository.Page
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{items: map[string]model.Event{}}
}

func (f *fakeEventRepo) Save(_ context.Context, e model.Event) (model.Event, error) {
	if _, ok := f.items[e.ID()]; ok {
		return model.Event{}, repository.ErrAlreadyExists
	}
	f.items[e.ID()] = e
	f.order = append(f.order, e.ID())
	return e, nil
}

func (f *fakeEventRepo) GetByID(_ context.Context, id string) (model.Event, error) {
	e, ok := f.items[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (f *fakeEventRepo) List(_ context.Context, p repository.Page) (repository.PageResult[model.Event], error) {
	f.lastPage = p
	if f.listErr != nil {
		return repository.PageResult[model.Event]{}, f.listErr
	}
	res := repository.PageResult[model.Event]{Total: len(f.order)}
	for _, id := range f.order {
		res.Items = append(res.Items, f.items[id])
	}
	return res, nil
}

var _ repository.EventRepository = (*fakeEventRepo)(nil)

// fakeTx rolls back by restoring the repo's previous state.
type fakeTx struct {
	repo  *fakeEventRepo
	calls int
}

func (f *fakeTx) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	f.calls++
	items := make(map[string]model.Event, len(f.repo.items))
	for k, v := range f.repo.items {
		items[k] = v
	}
	order := append([]string(nil), f.repo.order...)
	if err := fn(ctx); err != nil {
		f.repo.items, f.repo.order = items, order
		return err
	}
	return nil
}

func newSvc(repo *fakeEventRepo) (service.EventService, *fakeTx) {
	tx := &fakeTx{repo: repo}
	return service.NewEventService(repo, tx, 50, zerolog.New(io.Discard)), tx
}

func validEvent(id string) model.Event {
	return model.Event{Payload: model.EventPayload{
		ID: id, CareRecipientID: "r-1", VisitID: "v-1", EventType: "check_in", Timestamp: "2019-04-23T10:00:00Z",
	}}
}

func TestEventService_ListEvents_TranslatesPageNumber(t *testing.T) {
	repo := newFakeEventRepo()
	svc, _ := newSvc(repo)

	page, err := svc.ListEvents(context.Background(), model.PaginationQuery{Page: "3", Limit: "20"})
	require.NoError(t, err)
	assert.Equal(t, repository.Page{Limit: 20, Offset: 40}, repo.lastPage)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 20, page.Limit)
	assert.NotNil(t, page.Items, "empty listings must serialize as []")
	assert.Empty(t, page.Items)
}

func TestEventService_ListEvents_HugePageIsPastTheEnd(t *testing.T) {
	repo := memory.NewEventRepo()
	svc := service.NewEventService(repo, memory.NewTxManager(repo), 0, zerolog.New(io.Discard))
	for _, id := range []string{"a", "b", "c"} {
		_, err := svc.RecordEvent(context.Background(), validEvent(id))
		require.NoError(t, err)
	}

	page, err := svc.ListEvents(context.Background(), model.PaginationQuery{Page: "9223372036854775807", Limit: "10"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.Total)
}

func TestEventService_ListEvents_ClampsToConfiguredMax(t *testing.T) {
	repo := newFakeEventRepo()
	svc, _ := newSvc(repo)

	_, err := svc.ListEvents(context.Background(), model.PaginationQuery{Page: "1", Limit: "1000"})
	require.NoError(t, err)
	assert.Equal(t, 50, repo.lastPage.Limit)
}

func TestEventService_ListEvents_InvalidQuery(t *testing.T) {
	svc, _ := newSvc(newFakeEventRepo())
	_, err := svc.ListEvents(context.Background(), model.PaginationQuery{Page: "abc", Limit: "10"})
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestEventService_ListEvents_RepoErrorPropagates(t *testing.T) {
	repo := newFakeEventRepo()
	repo.listErr = errors.New("db down")
	svc, _ := newSvc(repo)
	_, err := svc.ListEvents(context.Background(), model.DefaultPaginationQuery())
	require.EqualError(t, err, "db down")
}

func TestEventService_RecordEvent_Validation(t *testing.T) {
	svc, _ := newSvc(newFakeEventRepo())

	cases := []struct {
		name      string
		mutate    func(*model.EventPayload)
		wantField string
	}{
		{"missing id", func(p *model.EventPayload) { p.ID = "  " }, "payload.id"},
		{"missing recipient", func(p *model.EventPayload) { p.CareRecipientID = "" }, "payload.care_recipient_id"},
		{"missing type", func(p *model.EventPayload) { p.EventType = "" }, "payload.event_type"},
		{"missing timestamp", func(p *model.EventPayload) { p.Timestamp = "" }, "payload.timestamp"},
		{"type too long", func(p *model.EventPayload) { p.EventType = string(make([]byte, 65)) + "x" }, "payload.event_type"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validEvent("e-1")
			tc.mutate(&e.Payload)
			_, err := svc.RecordEvent(context.Background(), e)
			require.ErrorIs(t, err, service.ErrInvalidInput)
			fields := service.FieldErrors(err)
			require.NotEmpty(t, fields)
			assert.Equal(t, tc.wantField, fields[0].Field)
		})
	}
}

func TestEventService_RecordEvent_TrimsAndSaves(t *testing.T) {
	repo := newFakeEventRepo()
	svc, _ := newSvc(repo)
	e := validEvent(" e-9 ")
	out, err := svc.RecordEvent(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, "e-9", out.ID())
	_, err = repo.GetByID(context.Background(), "e-9")
	require.NoError(t, err)
}

func TestEventService_RecordEvent_DuplicatePropagates(t *testing.T) {
	svc, _ := newSvc(newFakeEventRepo())
	_, err := svc.RecordEvent(context.Background(), validEvent("e-1"))
	require.NoError(t, err)
	_, err = svc.RecordEvent(context.Background(), validEvent("e-1"))
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
}

func TestEventService_RecordEvents_AtomicOnConflict(t *testing.T) {
	repo := newFakeEventRepo()
	svc, tx := newSvc(repo)
	_, err := svc.RecordEvent(context.Background(), validEvent("taken"))
	require.NoError(t, err)

	_, err = svc.RecordEvents(context.Background(), []model.Event{validEvent("fresh"), validEvent("taken")})
	require.ErrorIs(t, err, repository.ErrAlreadyExists)
	assert.Equal(t, 1, tx.calls)
	_, err = repo.GetByID(context.Background(), "fresh")
	assert.ErrorIs(t, err, repository.ErrNotFound, "batch must roll back")
}

func TestEventService_RecordEvents_ValidatesBeforeTx(t *testing.T) {
	repo := newFakeEventRepo()
	svc, tx := newSvc(repo)
	bad := validEvent("b")
	bad.Payload.EventType = ""

	_, err := svc.RecordEvents(context.Background(), []model.Event{validEvent("a"), bad, validEvent("a")})
	require.ErrorIs(t, err, service.ErrInvalidInput)
	assert.Equal(t, 0, tx.calls)

	fields := service.FieldErrors(err)
	require.Len(t, fields, 2)
	assert.Equal(t, "events[1].payload.event_type", fields[0].Field)
	assert.Equal(t, "events[2].payload.id", fields[1].Field)
	assert.Equal(t, "duplicates events[0]", fields[1].Message)
}

func TestEventService_RecordEvents_Empty(t *testing.T) {
	svc, _ := newSvc(newFakeEventRepo())
	_, err := svc.RecordEvents(context.Background(), nil)
	require.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestEventService_GetEvent(t *testing.T) {
	repo := newFakeEventRepo()
	svc, _ := newSvc(repo)
	_, err := svc.GetEvent(context.Background(), "")
	require.ErrorIs(t, err, service.ErrInvalidInput)
	_, err = svc.GetEvent(context.Background(), "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
