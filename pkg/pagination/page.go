package pagination

import (
	"math"
	"net/url"
	"strconv"
)

const (
	// DefaultLimit is the page size used when the client sends none.
	DefaultLimit = 20

	// MaxLimit caps the page size.
	MaxLimit = 100
)

// Params selects one page.
type Params struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// DefaultParams returns the first page with the default size.
func DefaultParams() Params {
	return Params{Page: 1, Limit: DefaultLimit}
}

// FromQuery reads "page" and "limit" from q. Missing or malformed values
// fall back to the defaults and out-of-range values are clamped.
func FromQuery(q url.Values) Params {
	p := DefaultParams()
	if v, err := strconv.Atoi(q.Get("page")); err == nil {
		p.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		p.Limit = v
	}
	return p.Normalize()
}

// Normalize clamps p into the accepted range.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the number of items before the page. Pages too far out to
// be addressed saturate at math.MaxInt.
func (p Params) Offset() int {
	p = p.Normalize()
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Page is one page of items plus what a client needs to fetch the next.
type Page[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// HasNext reports whether items remain after this page.
func (p Page[T]) HasNext() bool {
	if p.Limit <= 0 {
		return false
	}
	pages := (p.Total + p.Limit - 1) / p.Limit
	return p.Page < pages
}

// Apply returns the page of items selected by params. Items is never nil,
// so an empty page encodes as [] rather than null.
func Apply[T any](items []T, params Params) Page[T] {
	params = params.Normalize()

	start := params.Offset()
	if start > len(items) {
		start = len(items)
	}
	end := start + params.Limit
	if end > len(items) {
		end = len(items)
	}

	out := make([]T, end-start)
	copy(out, items[start:end])

	return Page[T]{
		Items: out,
		Page:  params.Page,
		Limit: params.Limit,
		Total: len(items),
	}
}
