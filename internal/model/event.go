// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes; the only behavior here is the JSON shape of event payloads.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Event is a single caregiving visit occurrence as stored and listed.
type Event struct {
	Payload EventPayload `json:"payload"`
}

// ID is the identity of the event, taken from its payload.
func (e Event) ID() string { return e.Payload.ID }

// EventPayload carries the fields the dashboard shows plus the rest of the source document.
// The id is accepted as a JSON string or number and always held as a string.
type EventPayload struct {
	ID              string `json:"id" validate:"required,max=128"`
	CareRecipientID string `json:"care_recipient_id" validate:"required,max=128"`
	VisitID         string `json:"visit_id" validate:"max=128"`
	EventType       string `json:"event_type" validate:"required,max=64"`
	Timestamp       string `json:"timestamp" validate:"required,max=64"`

	// Extra keeps every other key of the source document verbatim.
	Extra map[string]json.RawMessage `json:"-"`
}

const (
	keyID              = "id"
	keyCareRecipientID = "care_recipient_id"
	keyVisitID         = "visit_id"
	keyEventType       = "event_type"
	keyTimestamp       = "timestamp"
)

// UnmarshalJSON splits the document into the known fields and Extra.
func (p *EventPayload) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var out EventPayload
	targets := map[string]*string{
		keyID:              &out.ID,
		keyCareRecipientID: &out.CareRecipientID,
		keyVisitID:         &out.VisitID,
		keyEventType:       &out.EventType,
		keyTimestamp:       &out.Timestamp,
	}
	for key, value := range raw {
		dst, known := targets[key]
		if !known {
			if out.Extra == nil {
				out.Extra = make(map[string]json.RawMessage)
			}
			out.Extra[key] = value
			continue
		}
		s, err := decodeText(value)
		if err != nil {
			return fmt.Errorf("payload.%s: %w", key, err)
		}
		*dst = s
	}
	*p = out
	return nil
}

// MarshalJSON emits the known fields merged back with Extra; keys come out sorted.
func (p EventPayload) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(p.Extra)+5)
	for k, v := range p.Extra {
		out[k] = v
	}
	out[keyID] = p.ID
	out[keyCareRecipientID] = p.CareRecipientID
	out[keyVisitID] = p.VisitID
	out[keyEventType] = p.EventType
	out[keyTimestamp] = p.Timestamp
	return json.Marshal(out)
}

// decodeText reads a JSON string, number or null as text.
func decodeText(raw json.RawMessage) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", err
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
}

// EventPage is one listed window of events.
type EventPage struct {
	Items []Event `json:"items"`
	Total int     `json:"total"`
	Page  int     `json:"page"`
	Limit int     `json:"limit"`
}
