package dashboard

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/maxviazov/care-events-dashboard/internal/model"
)

// StateParam is the query parameter that carries the navigation state of a detail link.
const StateParam = "state"

// ErrInvalidDetailState is returned for a state token that cannot be decoded into a payload.
var ErrInvalidDetailState = errors.New("invalid detail state")

// DetailLink builds the navigation target for a row: the detail route with the full payload
// attached as URL-safe base64 JSON. A payload that cannot be encoded yields a link without state,
// which the detail page reports as missing.
func DetailLink(p model.EventPayload) string {
	token, err := EncodeDetailState(p)
	if err != nil {
		return DetailPath
	}
	return DetailPath + "?" + url.Values{StateParam: {token}}.Encode()
}

func EncodeDetailState(p model.EventPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode detail state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func DecodeDetailState(token string) (model.EventPayload, error) {
	if token == "" {
		return model.EventPayload{}, fmt.Errorf("%w: missing", ErrInvalidDetailState)
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return model.EventPayload{}, fmt.Errorf("%w: %v", ErrInvalidDetailState, err)
	}
	var p model.EventPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.EventPayload{}, fmt.Errorf("%w: %v", ErrInvalidDetailState, err)
	}
	return p, nil
}

// DetailField is one labelled value on the detail page.
type DetailField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// DetailView is what the detail template renders.
type DetailView struct {
	Title  string        `json:"title"`
	Fields []DetailField `json:"fields,omitempty"`
	Error  string        `json:"error,omitempty"`
	Back   string        `json:"back"`
}

// BuildDetailView decodes a state token into the detail page. Known fields come first in table
// order, the remaining payload keys follow sorted by name with their raw JSON as value.
func BuildDetailView(token string) DetailView {
	v := DetailView{Title: "Event", Back: DashboardPath}
	p, err := DecodeDetailState(token)
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.Fields = []DetailField{
		{Name: "Event ID", Value: p.ID},
		{Name: Columns[0], Value: p.CareRecipientID},
		{Name: Columns[1], Value: p.VisitID},
		{Name: Columns[2], Value: p.EventType},
		{Name: Columns[3], Value: p.Timestamp},
	}
	keys := make([]string, 0, len(p.Extra))
	for k := range p.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v.Fields = append(v.Fields, DetailField{Name: k, Value: string(p.Extra[k])})
	}
	return v
}
