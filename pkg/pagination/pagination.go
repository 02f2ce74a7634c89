package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/samber/lo"
)

// DefaultPageSize is the fixed number of rows on every list page.
const DefaultPageSize = 5

// Params holds 1-indexed page parameters extracted from a request.
type Params struct {
	Page     int
	PageSize int
}

// FromContext reads the 1-indexed page from the echo context. Missing or
// invalid values fall back to page 1. The page size is always
// DefaultPageSize; a page_size query parameter is ignored.
func FromContext(c echo.Context) Params {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page <= 0 {
		page = 1
	}
	return Params{Page: page, PageSize: DefaultPageSize}
}

func (p Params) normalized() Params {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	return p
}

// Offset returns the index of the first item on the page.
func (p Params) Offset() int {
	p = p.normalized()
	return (p.Page - 1) * p.PageSize
}

// Slice returns items[start:start+size] for the requested page, clamped to
// the collection. Pages past the end are empty.
func Slice[T any](items []T, p Params) []T {
	p = p.normalized()
	start := p.Offset()
	return lo.Slice(items, start, start+p.PageSize)
}

// PageCount returns ceil(total/size).
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// Response wraps a paginated API response.
type Response struct {
	Data     interface{} `json:"data"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Pages    int         `json:"pages"`
	HasMore  bool        `json:"has_more"`
}

func NewResponse(data interface{}, total int, p Params) *Response {
	p = p.normalized()
	return &Response{
		Data:     data,
		Total:    total,
		Page:     p.Page,
		PageSize: p.PageSize,
		Pages:    PageCount(total, p.PageSize),
		HasMore:  p.Offset()+p.PageSize < total,
	}
}

// Paginate slices items for p and wraps the page with its totals.
func Paginate[T any](items []T, p Params) *Response {
	page := Slice(items, p)
	if page == nil {
		page = []T{}
	}
	return NewResponse(page, len(items), p)
}
