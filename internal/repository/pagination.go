package repository

import "math"

// Page is the limit/offset window repositories list by.
type Page struct {
	Limit  int
	Offset int
}

// PageFromNumber converts a 1-based page number and page size into a limit/offset window.
// An offset that does not fit in an int saturates at math.MaxInt, which lies past any stored data.
func PageFromNumber(page, limit int) Page {
	if page < 1 {
		page = 1
	}
	if limit > 0 && page-1 > math.MaxInt/limit {
		return Page{Limit: limit, Offset: math.MaxInt}
	}
	return Page{Limit: limit, Offset: (page - 1) * limit}
}

// PageResult is one window of items plus the total number of stored items.
type PageResult[T any] struct {
	Items []T
	Total int
}
