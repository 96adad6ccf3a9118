package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
)

// eventService holds event use-case logic: validation + orchestration, no transport / SQL details.
type eventService struct {
	repo     repository.EventRepository
	tx       repository.TxManager
	maxLimit int
	log      zerolog.Logger
}

// NewEventService wires the event use cases. maxLimit <= 0 means DefaultMaxLimit.
func NewEventService(repo repository.EventRepository, tx repository.TxManager, maxLimit int, logger zerolog.Logger) EventService {
	l := logger.With().Str("module", "service").Str("component", "event").Logger()
	return &eventService{repo: repo, tx: tx, maxLimit: maxLimit, log: l}
}

func (s *eventService) ListEvents(ctx context.Context, q model.PaginationQuery) (model.EventPage, error) {
	start := time.Now()
	page, limit, err := ParsePagination(q, s.maxLimit)
	if err != nil {
		s.log.Debug().Str("page_raw", q.Page).Str("limit_raw", q.Limit).Msg("pagination validation failed")
		return model.EventPage{}, err
	}
	res, err := s.repo.List(ctx, repository.PageFromNumber(page, limit))
	if err != nil {
		s.log.Error().Err(err).Int("page", page).Int("limit", limit).Msg("list events failed")
		return model.EventPage{}, err
	}
	items := res.Items
	if items == nil {
		items = []model.Event{}
	}
	s.log.Debug().Int("page", page).Int("limit", limit).Int("returned", len(items)).Dur("took", time.Since(start)).Msg("events listed")
	return model.EventPage{Items: items, Total: res.Total, Page: page, Limit: limit}, nil
}

func (s *eventService) GetEvent(ctx context.Context, id string) (model.Event, error) {
	if id == "" {
		return model.Event{}, newInvalidInput([]FieldError{{Field: "id", Message: "must not be empty"}})
	}
	return s.repo.GetByID(ctx, id)
}

func (s *eventService) RecordEvent(ctx context.Context, e model.Event) (model.Event, error) {
	e.Payload = normalizePayload(e.Payload)
	if err := newInvalidInput(validateEvent(e, "")); err != nil {
		s.log.Debug().Str("event_id", e.ID()).Interface("field_errors", FieldErrors(err)).Msg("event validation failed")
		return model.Event{}, err
	}
	out, err := s.repo.Save(ctx, e)
	if err != nil {
		// Repository surfaces domain-level errors already, do not wrap.
		s.log.Error().Err(err).Str("event_id", e.ID()).Msg("record event failed")
		return model.Event{}, err
	}
	s.log.Info().Str("event_id", out.ID()).Str("event_type", out.Payload.EventType).Msg("event recorded")
	return out, nil
}

func (s *eventService) RecordEvents(ctx context.Context, events []model.Event) ([]model.Event, error) {
	if len(events) == 0 {
		return nil, newInvalidInput([]FieldError{{Field: "events", Message: "must not be empty"}})
	}

	// Validate everything up front so a bad item never opens a transaction.
	var ferrs []FieldError
	seen := make(map[string]int, len(events))
	normalized := make([]model.Event, len(events))
	for i, e := range events {
		e.Payload = normalizePayload(e.Payload)
		normalized[i] = e
		prefix := "events[" + strconv.Itoa(i) + "]."
		ferrs = append(ferrs, validateEvent(e, prefix)...)
		if first, dup := seen[e.ID()]; dup {
			ferrs = append(ferrs, FieldError{Field: prefix + "payload.id", Message: fmt.Sprintf("duplicates events[%d]", first)})
		} else if e.ID() != "" {
			seen[e.ID()] = i
		}
	}
	if err := newInvalidInput(ferrs); err != nil {
		return nil, err
	}

	out := make([]model.Event, 0, len(normalized))
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		for _, e := range normalized {
			saved, err := s.repo.Save(ctx, e)
			if err != nil {
				return err
			}
			out = append(out, saved)
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int("batch_size", len(normalized)).Msg("record events failed")
		return nil, err
	}
	s.log.Info().Int("batch_size", len(out)).Msg("events recorded")
	return out, nil
}
