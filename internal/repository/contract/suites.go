// Package contract holds behavior suites every repository implementation must pass.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
)

type EventFactory func(t *testing.T) (repository.EventRepository, func())

type TxFactory func(t *testing.T) (tx repository.TxManager, events repository.EventRepository, cleanup func())

type PingerFactory func(t *testing.T) (repository.Pinger, func())

// NewEvent builds a valid event for seeding.
func NewEvent(id, recipient, ts string) model.Event {
	return model.Event{Payload: model.EventPayload{
		ID:              id,
		CareRecipientID: recipient,
		VisitID:         "visit-" + id,
		EventType:       "check_in",
		Timestamp:       ts,
	}}
}

func RunEventRepositoryContract(t *testing.T, makeRepo EventFactory) {
	t.Helper()

	t.Run("save_and_get_keeps_full_payload", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		e := NewEvent("e-1", "r-1", "2019-04-23T10:00:00Z")
		e.Payload.Extra = map[string]json.RawMessage{"mood": json.RawMessage(`"calm"`)}
		if _, err := repo.Save(ctx, e); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		got, err := repo.GetByID(ctx, "e-1")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if got.Payload.CareRecipientID != "r-1" || got.Payload.VisitID != "visit-e-1" || got.Payload.Timestamp != e.Payload.Timestamp {
			t.Fatalf("mismatch: %+v", got)
		}
		if string(got.Payload.Extra["mood"]) != `"calm"` {
			t.Fatalf("extra payload lost: %+v", got.Payload.Extra)
		}
	})

	t.Run("get_not_found", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		_, err := repo.GetByID(context.Background(), "missing")
		if !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("save_duplicate_id", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := repo.Save(ctx, NewEvent("dup", "r-1", "2019-04-23T10:00:00Z")); err != nil {
			t.Fatalf("seed: %v", err)
		}
		_, err := repo.Save(ctx, NewEvent("dup", "r-2", "2019-04-24T10:00:00Z"))
		if !errors.Is(err, repository.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("list_order_and_total", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		seed := []model.Event{
			NewEvent("b", "r-1", "2019-04-23T10:00:00Z"),
			NewEvent("a", "r-1", "2019-04-23T10:00:00Z"),
			NewEvent("c", "r-2", "2019-04-25T08:00:00Z"),
			NewEvent("d", "r-2", "2019-04-21T08:00:00Z"),
			NewEvent("e", "r-3", "2019-04-24T09:30:00Z"),
		}
		for _, e := range seed {
			if _, err := repo.Save(ctx, e); err != nil {
				t.Fatalf("seed %s: %v", e.ID(), err)
			}
		}
		first, err := repo.List(ctx, repository.Page{Limit: 3, Offset: 0})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if got := ids(first.Items); got != "c,e,a" || first.Total != 5 {
			t.Fatalf("unexpected first page: ids=%s total=%d", got, first.Total)
		}
		second, err := repo.List(ctx, repository.Page{Limit: 3, Offset: 3})
		if err != nil {
			t.Fatalf("list2: %v", err)
		}
		if got := ids(second.Items); got != "b,d" || second.Total != 5 {
			t.Fatalf("unexpected second page: ids=%s total=%d", got, second.Total)
		}
	})

	t.Run("list_past_end", func(t *testing.T) {
		repo, cleanup := makeRepo(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		if _, err := repo.Save(ctx, NewEvent("only", "r-1", "2019-04-23T10:00:00Z")); err != nil {
			t.Fatalf("seed: %v", err)
		}
		for _, offset := range []int{10, math.MaxInt} {
			res, err := repo.List(ctx, repository.Page{Limit: 10, Offset: offset})
			if err != nil {
				t.Fatalf("list offset=%d: %v", offset, err)
			}
			if len(res.Items) != 0 || res.Total != 1 {
				t.Fatalf("offset=%d: expected empty page with total 1, got len=%d total=%d", offset, len(res.Items), res.Total)
			}
		}
	})
}

func RunTxManagerContract(t *testing.T, makeTx TxFactory) {
	t.Helper()

	t.Run("commit_on_nil_error", func(t *testing.T) {
		tx, events, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			_, err := events.Save(ctx, NewEvent("tx-commit", "r-1", "2019-04-23T10:00:00Z"))
			return err
		})
		if err != nil {
			t.Fatalf("WithinTx: %v", err)
		}
		if _, err := events.GetByID(ctx, "tx-commit"); err != nil {
			t.Fatalf("expected committed row visible, got err=%v", err)
		}
	})

	t.Run("rollback_on_error", func(t *testing.T) {
		tx, events, cleanup := makeTx(t)
		t.Cleanup(cleanup)
		ctx := context.Background()
		errMarker := assertErr("boom")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			if _, err := events.Save(ctx, NewEvent("tx-rollback", "r-1", "2019-04-23T10:00:00Z")); err != nil {
				return err
			}
			return errMarker
		})
		if err == nil || err.Error() != errMarker.Error() {
			t.Fatalf("expected marker error, got %v", err)
		}
		if _, err := events.GetByID(ctx, "tx-rollback"); !errors.Is(err, repository.ErrNotFound) {
			t.Fatalf("expected ErrNotFound after rollback, got %v", err)
		}
	})
}

func RunPingerContract(t *testing.T, makePinger PingerFactory) {
	t.Helper()
	t.Run("ping_ok", func(t *testing.T) {
		p, cleanup := makePinger(t)
		t.Cleanup(cleanup)
		if err := p.Ping(context.Background()); err != nil {
			t.Fatalf("expected ping ok, got %v", err)
		}
	})
}

func ids(items []model.Event) string {
	out := ""
	for i, e := range items {
		if i > 0 {
			out += ","
		}
		out += e.ID()
	}
	return out
}

// assertErr builds a sentinel error that is not a repository error.
func assertErr(msg string) error { return fmt.Errorf("%s", msg) }
