package pagination

import (
	"math"
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds page-based pagination parameters extracted from a request.
type Params struct {
	Page  int
	Limit int
}

// FromContext extracts page and limit from the query string. An invalid or
// missing page becomes 1; a missing limit becomes DefaultLimit and any other
// value is clamped to [1, MaxLimit].
func FromContext(c echo.Context) Params {
	return Parse(c.QueryParam("page"), c.QueryParam("limit"))
}

// Parse is FromContext for raw strings.
func Parse(pageStr, limitStr string) Params {
	page, err := strconv.Atoi(pageStr)
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		limit = DefaultLimit
	}
	return New(page, limit)
}

// New clamps page and limit into their valid ranges. Page is capped so that
// Offset cannot overflow.
func New(page, limit int) Params {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 1
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}
	return Params{Page: page, Limit: limit}
}

// Offset returns the number of rows to skip for this page.
func (p Params) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Window returns the [start, end) slice bounds of this page over n items.
func (p Params) Window(n int) (int, int) {
	start := p.Offset()
	if start < 0 || start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

// Meta is the pagination block returned alongside list results.
type Meta struct {
	CurrentPage    int  `json:"currentPage"`
	TotalPages     int  `json:"totalPages"`
	TotalRecords   int  `json:"totalRecords"`
	RecordsPerPage int  `json:"recordsPerPage"`
	HasNextPage    bool `json:"hasNextPage"`
	HasPrevPage    bool `json:"hasPrevPage"`
}

func NewMeta(p Params, total int) Meta {
	totalPages := 0
	if p.Limit > 0 {
		totalPages = (total + p.Limit - 1) / p.Limit
	}
	return Meta{
		CurrentPage:    p.Page,
		TotalPages:     totalPages,
		TotalRecords:   total,
		RecordsPerPage: p.Limit,
		HasNextPage:    p.Page < totalPages,
		HasPrevPage:    p.Page > 1,
	}
}
