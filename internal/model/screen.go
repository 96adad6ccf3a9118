package model

// Initial pagination of a freshly opened dashboard.
const (
	DefaultPage  = "1"
	DefaultLimit = "10"
)

// LoadingMessage is the status text shown while a fetch is in flight.
const LoadingMessage = "Loading"

// PaginationQuery is the page window exactly as the user typed it.
// Values stay text here; only the service layer interprets them.
type PaginationQuery struct {
	Page  string `json:"page"`
	Limit string `json:"limit"`
}

// DefaultPaginationQuery returns the {page: 1, limit: 10} starting window.
func DefaultPaginationQuery() PaginationQuery {
	return PaginationQuery{Page: DefaultPage, Limit: DefaultLimit}
}

// LoadState tells a fetch in flight apart from a settled one, whatever its outcome.
type LoadState struct {
	Loading bool   `json:"loading"`
	Message string `json:"message"`
}
