// Package pagination implements the page-numbered paging scheme the
// assessment API uses: 1-based page numbers with a capped per-page limit.
package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 20
)

// Params holds paging parameters extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// FromContext extracts page and limit from the echo context, clamping both
// to sane values.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Params{Page: page, Limit: limit}
}

// Window returns the [start, end) slice bounds for this page over a dataset
// of the given size. Pages past the end yield an empty window.
func (p Params) Window(total int) (int, int) {
	start := (p.Page - 1) * p.Limit
	if start >= total {
		return total, total
	}
	end := start + p.Limit
	if end > total {
		end = total
	}
	return start, end
}

// TotalPages returns the number of pages the dataset spans.
func (p Params) TotalPages(total int) int {
	if total == 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// HasNext reports whether a page follows the current one.
func (p Params) HasNext(total int) bool {
	return p.Page < p.TotalPages(total)
}
