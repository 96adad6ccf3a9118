// Package memory keeps events in process memory. Used in dev mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
)

const defaultPageLimit = 10

// EventRepo is an in-memory repository.EventRepository; it also serves as its own Pinger.
type EventRepo struct {
	mu   sync.RWMutex
	byID map[string]model.Event
}

func NewEventRepo() *EventRepo {
	return &EventRepo{byID: make(map[string]model.Event)}
}

func (r *EventRepo) Save(_ context.Context, e model.Event) (model.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[e.ID()]; exists {
		return model.Event{}, repository.ErrAlreadyExists
	}
	r.byID[e.ID()] = e
	return e, nil
}

func (r *EventRepo) GetByID(_ context.Context, id string) (model.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byID[id]
	if !ok {
		return model.Event{}, repository.ErrNotFound
	}
	return e, nil
}

func (r *EventRepo) List(_ context.Context, p repository.Page) (repository.PageResult[model.Event], error) {
	r.mu.RLock()
	all := make([]model.Event, 0, len(r.byID))
	for _, e := range r.byID {
		all = append(all, e)
	}
	r.mu.RUnlock()

	// Timestamp desc, then id asc; same order as the SQL stores.
	sort.Slice(all, func(i, j int) bool {
		if all[i].Payload.Timestamp != all[j].Payload.Timestamp {
			return all[i].Payload.Timestamp > all[j].Payload.Timestamp
		}
		return all[i].ID() < all[j].ID()
	})

	limit, offset := p.Limit, p.Offset
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	res := repository.PageResult[model.Event]{Items: []model.Event{}, Total: len(all)}
	if offset >= len(all) {
		return res, nil
	}
	end := min(offset+limit, len(all))
	res.Items = append(res.Items, all[offset:end]...)
	return res, nil
}

// Ping always succeeds; there is nothing to reach.
func (r *EventRepo) Ping(context.Context) error { return nil }

func (r *EventRepo) snapshot() map[string]model.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]model.Event, len(r.byID))
	for k, v := range r.byID {
		out[k] = v
	}
	return out
}

func (r *EventRepo) restore(s map[string]model.Event) {
	r.mu.Lock()
	r.byID = s
	r.mu.Unlock()
}

type txManager struct {
	mu   sync.Mutex
	repo *EventRepo
}

// NewTxManager returns a TxManager that restores the repo snapshot when fn fails.
// Units of work are serialized; writes made outside WithinTx meanwhile are lost on rollback.
func NewTxManager(repo *EventRepo) repository.TxManager {
	return &txManager{repo: repo}
}

func (m *txManager) WithinTx(ctx context.Context, fn repository.TxFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	before := m.repo.snapshot()
	if err := fn(ctx); err != nil {
		m.repo.restore(before)
		return err
	}
	return nil
}

var (
	_ repository.EventRepository = (*EventRepo)(nil)
	_ repository.Pinger          = (*EventRepo)(nil)
	_ repository.TxManager       = (*txManager)(nil)
)
