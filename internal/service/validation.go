package service

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/maxviazov/care-events-dashboard/internal/model"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	// DefaultMaxLimit caps the page size when no explicit cap is configured.
	DefaultMaxLimit = 100
)

// ParsePagination interprets the user-typed window. Blank fields fall back to page 1 / limit 10,
// anything that is not an integer >= 1 is invalid input, and limit is clamped to maxLimit.
func ParsePagination(q model.PaginationQuery, maxLimit int) (page, limit int, err error) {
	var ferrs []FieldError
	page, ok := parsePositive(q.Page, defaultPage)
	if !ok {
		ferrs = append(ferrs, FieldError{Field: "page", Message: "must be an integer >= 1"})
	}
	limit, ok = parsePositive(q.Limit, defaultLimit)
	if !ok {
		ferrs = append(ferrs, FieldError{Field: "limit", Message: "must be an integer >= 1"})
	}
	if err := newInvalidInput(ferrs); err != nil {
		return 0, 0, err
	}
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	return page, min(limit, maxLimit), nil
}

func parsePositive(s string, def int) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

var validate = newValidator()

// newValidator reports fields by their JSON names so errors match what clients sent.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// normalizePayload trims the columns the dashboard displays and keys on.
func normalizePayload(p model.EventPayload) model.EventPayload {
	p.ID = strings.TrimSpace(p.ID)
	p.CareRecipientID = strings.TrimSpace(p.CareRecipientID)
	p.VisitID = strings.TrimSpace(p.VisitID)
	p.EventType = strings.TrimSpace(p.EventType)
	p.Timestamp = strings.TrimSpace(p.Timestamp)
	return p
}

// validateEvent returns field errors prefixed with prefix (e.g. "events[2].").
func validateEvent(e model.Event, prefix string) []FieldError {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []FieldError{{Field: prefix + "payload", Message: err.Error()}}
	}
	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: prefix + "payload." + fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "failed " + fe.Tag() + " check"
	}
}
