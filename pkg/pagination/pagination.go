// Package pagination parses page/per_page query parameters and wraps listed
// rows with the counts a client needs to render an order-history style
// paged view.
package pagination

import (
	"net/http"
	"strconv"
)

// Page sizes for paged listings. Order history is a short list for most
// accounts, so the default page is small; the cap keeps a hostile per_page
// from turning a listing into a table scan.
const (
	DefaultPerPage = 10
	MaxPerPage     = 50
)

// Params holds the requested page window. Offset is derived, ready to feed
// into a LIMIT/OFFSET query.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams returns the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: DefaultPerPage}
}

// FromRequest reads page and per_page from the request's query string.
// Missing, malformed, or out-of-range values fall back to the defaults
// rather than failing the request.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 {
		p.PerPage = v
		if p.PerPage > MaxPerPage {
			p.PerPage = MaxPerPage
		}
	}

	p.Offset = (p.Page - 1) * p.PerPage
	return p
}

// Result is one page of rows plus the counts needed to render pagination
// controls.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult wraps a page of rows with its pagination envelope.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := (totalCount + params.PerPage - 1) / params.PerPage

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
