package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
)

const defaultPageLimit = 10

type eventRepository struct{ d *DB }

func NewEventRepository(d *DB) repository.EventRepository {
	return &eventRepository{d: d}
}

func (r *eventRepository) Save(ctx context.Context, e model.Event) (model.Event, error) {
	doc, err := json.Marshal(e.Payload)
	if err != nil {
		return model.Event{}, fmt.Errorf("encode payload: %w", err)
	}
	_, err = r.d.exec(ctx).ExecContext(ctx,
		`INSERT INTO care_events (id, care_recipient_id, visit_id, event_type, event_time, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Payload.ID, e.Payload.CareRecipientID, e.Payload.VisitID, e.Payload.EventType, e.Payload.Timestamp, string(doc),
	)
	if err != nil {
		return model.Event{}, mapError(err)
	}
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (model.Event, error) {
	var doc string
	err := r.d.exec(ctx).QueryRowContext(ctx, `SELECT payload FROM care_events WHERE id = ?`, id).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, repository.ErrNotFound
		}
		return model.Event{}, mapError(err)
	}
	return decodeEvent(doc)
}

func (r *eventRepository) List(ctx context.Context, p repository.Page) (repository.PageResult[model.Event], error) {
	limit, offset := p.Limit, p.Offset
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	exec := r.d.exec(ctx)

	var total int
	if err := exec.QueryRowContext(ctx, `SELECT COUNT(*) FROM care_events`).Scan(&total); err != nil {
		return repository.PageResult[model.Event]{}, mapError(err)
	}

	rows, err := exec.QueryContext(ctx,
		`SELECT payload FROM care_events ORDER BY event_time DESC, id ASC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return repository.PageResult[model.Event]{}, mapError(err)
	}
	defer rows.Close()

	res := repository.PageResult[model.Event]{Items: make([]model.Event, 0, limit), Total: total}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return repository.PageResult[model.Event]{}, mapError(err)
		}
		e, err := decodeEvent(doc)
		if err != nil {
			return repository.PageResult[model.Event]{}, err
		}
		res.Items = append(res.Items, e)
	}
	return res, rows.Err()
}

func decodeEvent(doc string) (model.Event, error) {
	var e model.Event
	if err := json.Unmarshal([]byte(doc), &e.Payload); err != nil {
		return model.Event{}, fmt.Errorf("decode payload: %w", err)
	}
	return e, nil
}

var _ repository.EventRepository = (*eventRepository)(nil)
