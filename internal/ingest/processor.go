// Package ingest feeds care events from a Kafka topic into the event service.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/maxviazov/care-events-dashboard/internal/model"
	"github.com/maxviazov/care-events-dashboard/internal/repository"
	"github.com/maxviazov/care-events-dashboard/internal/service"
)

// Recorder is the part of the event service the processor needs.
type Recorder interface {
	RecordEvent(ctx context.Context, e model.Event) (model.Event, error)
}

const (
	defaultAttempts = 3
	defaultBackoff  = 200 * time.Millisecond
)

// Processor turns one message value into a recorded event.
type Processor struct {
	rec      Recorder
	log      zerolog.Logger
	attempts int
	backoff  time.Duration
}

func NewProcessor(rec Recorder, logger zerolog.Logger) *Processor {
	return &Processor{
		rec:      rec,
		log:      logger.With().Str("component", "ingest").Logger(),
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
}

// WithRetry overrides how often a transient storage failure is retried and the initial delay,
// which doubles after every attempt.
func (p *Processor) WithRetry(attempts int, backoff time.Duration) *Processor {
	if attempts > 0 {
		p.attempts = attempts
	}
	p.backoff = backoff
	return p
}

// Process records the event in val. Malformed JSON, invalid payloads and duplicates are logged and
// skipped with a nil error; only storage failures that outlive the retries are returned.
func (p *Processor) Process(ctx context.Context, val []byte) error {
	e, err := decodeMessage(val)
	if err != nil {
		p.log.Warn().Err(err).Int("bytes", len(val)).Msg("invalid JSON, skipping")
		return nil
	}

	delay := p.backoff
	for attempt := 1; ; attempt++ {
		_, err = p.rec.RecordEvent(ctx, e)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, service.ErrInvalidInput):
			p.log.Warn().Str("event_id", e.ID()).Interface("field_errors", service.FieldErrors(err)).Msg("invalid event, skipping")
			return nil
		case errors.Is(err, repository.ErrAlreadyExists):
			p.log.Info().Str("event_id", e.ID()).Msg("duplicate event, skipping")
			return nil
		case errors.Is(err, repository.ErrConflict):
			p.log.Warn().Err(err).Str("event_id", e.ID()).Msg("event rejected by storage, skipping")
			return nil
		}
		if attempt >= p.attempts {
			return fmt.Errorf("record event %q: %w", e.ID(), err)
		}
		p.log.Warn().Err(err).Str("event_id", e.ID()).Int("attempt", attempt).Dur("retry_in", delay).Msg("record event failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// decodeMessage accepts either an event envelope {"payload": {...}} or a bare payload document.
func decodeMessage(val []byte) (model.Event, error) {
	var envelope struct {
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(val, &envelope); err != nil {
		return model.Event{}, err
	}
	doc := val
	if len(envelope.Payload) > 0 && envelope.Payload[0] == '{' {
		doc = envelope.Payload
	}
	var e model.Event
	if err := json.Unmarshal(doc, &e.Payload); err != nil {
		return model.Event{}, err
	}
	return e, nil
}
