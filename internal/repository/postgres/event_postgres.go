package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
)

type eventRepository struct{ pool *pgxpool.Pool }

func NewEventRepository(pool *pgxpool.Pool) repository.EventRepository {
	return &eventRepository{pool: pool}
}

// Save stores the key columns next to the full payload document.
func (r *eventRepository) Save(ctx context.Context, e model.Event) (model.Event, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Event{}, err
	}
	doc, err := json.Marshal(e.Payload)
	if err != nil {
		return model.Event{}, fmt.Errorf("encode payload: %w", err)
	}
	exec := getQ(ctx, r.pool)
	_, err = exec.Exec(ctx,
		`INSERT INTO care_events (id, care_recipient_id, visit_id, event_type, event_time, payload)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		e.Payload.ID, e.Payload.CareRecipientID, e.Payload.VisitID, e.Payload.EventType, e.Payload.Timestamp, string(doc),
	)
	if err != nil {
		return model.Event{}, mapError(err)
	}
	return e, nil
}

func (r *eventRepository) GetByID(ctx context.Context, id string) (model.Event, error) {
	if err := ensurePool(r.pool); err != nil {
		return model.Event{}, err
	}
	exec := getQ(ctx, r.pool)
	var doc []byte
	err := exec.QueryRow(ctx, `SELECT payload FROM care_events WHERE id = $1`, id).Scan(&doc)
	if err != nil {
		return model.Event{}, mapError(err)
	}
	return decodeEvent(doc)
}

func (r *eventRepository) List(ctx context.Context, p repository.Page) (repository.PageResult[model.Event], error) {
	if err := ensurePool(r.pool); err != nil {
		return repository.PageResult[model.Event]{}, err
	}
	limit, offset := sanitizeLimitOffset(p.Limit, p.Offset)
	exec := getQ(ctx, r.pool)

	// COUNT(*) OVER() yields nothing past the last row, so the total is read separately.
	var total int
	if err := exec.QueryRow(ctx, `SELECT COUNT(*) FROM care_events`).Scan(&total); err != nil {
		return repository.PageResult[model.Event]{}, mapError(err)
	}

	rows, err := exec.Query(ctx,
		`SELECT payload
		 FROM care_events
		 ORDER BY event_time DESC, id ASC
		 LIMIT $1 OFFSET $2`,
		limit, offset,
	)
	if err != nil {
		return repository.PageResult[model.Event]{}, mapError(err)
	}
	defer rows.Close()

	res := repository.PageResult[model.Event]{Items: make([]model.Event, 0, limit), Total: total}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return repository.PageResult[model.Event]{}, mapError(err)
		}
		e, err := decodeEvent(doc)
		if err != nil {
			return repository.PageResult[model.Event]{}, err
		}
		res.Items = append(res.Items, e)
	}
	if err := rows.Err(); err != nil {
		return repository.PageResult[model.Event]{}, mapError(err)
	}
	return res, nil
}

func decodeEvent(doc []byte) (model.Event, error) {
	var e model.Event
	if err := json.Unmarshal(doc, &e.Payload); err != nil {
		return model.Event{}, fmt.Errorf("decode payload: %w", err)
	}
	return e, nil
}

var _ repository.EventRepository = (*eventRepository)(nil)
