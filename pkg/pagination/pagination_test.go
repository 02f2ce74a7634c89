package pagination

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))
	if p.Page != 1 {
		t.Errorf("expected page 1, got %d", p.Page)
	}
	if p.PageSize != DefaultPageSize {
		t.Errorf("expected page size %d, got %d", DefaultPageSize, p.PageSize)
	}
}

func TestFromContext_Page(t *testing.T) {
	p := FromContext(newContext("/?page=3"))
	if p.Page != 3 || p.PageSize != DefaultPageSize {
		t.Errorf("expected page 3 size %d, got %+v", DefaultPageSize, p)
	}
}

func TestFromContext_Invalid(t *testing.T) {
	p := FromContext(newContext("/?page=-2"))
	if p.Page != 1 || p.PageSize != DefaultPageSize {
		t.Errorf("expected defaults for invalid input, got %+v", p)
	}
}

func TestFromContext_IgnoresPageSize(t *testing.T) {
	for _, q := range []string{"/?page_size=10", "/?page_size=5000", "/?page_size=abc"} {
		if p := FromContext(newContext(q)); p.PageSize != DefaultPageSize {
			t.Errorf("%s: expected fixed page size %d, got %d", q, DefaultPageSize, p.PageSize)
		}
	}
}

func TestSlice_TwelveRows(t *testing.T) {
	items := seq(12)
	var lengths []int
	for page := 1; page <= PageCount(len(items), DefaultPageSize); page++ {
		lengths = append(lengths, len(Slice(items, Params{Page: page, PageSize: DefaultPageSize})))
	}
	if !slices.Equal(lengths, []int{5, 5, 2}) {
		t.Errorf("expected page lengths [5 5 2], got %v", lengths)
	}
}

func TestSlice_ConcatenationReconstructs(t *testing.T) {
	for _, n := range []int{0, 1, 4, 5, 6, 10, 11, 23} {
		items := seq(n)
		pages := PageCount(n, DefaultPageSize)
		var joined []int
		for page := 1; page <= pages; page++ {
			joined = append(joined, Slice(items, Params{Page: page, PageSize: DefaultPageSize})...)
		}
		if !slices.Equal(joined, items) && !(n == 0 && len(joined) == 0) {
			t.Errorf("n=%d: concatenated pages %v do not match %v", n, joined, items)
		}
	}
}

func TestSlice_PastEnd(t *testing.T) {
	if got := Slice(seq(3), Params{Page: 4, PageSize: 5}); len(got) != 0 {
		t.Errorf("expected empty page, got %v", got)
	}
}

func TestPageCount(t *testing.T) {
	tests := []struct {
		total, size, want int
	}{
		{0, 5, 0},
		{1, 5, 1},
		{5, 5, 1},
		{6, 5, 2},
		{12, 5, 3},
		{12, 0, 3},
	}
	for _, tt := range tests {
		if got := PageCount(tt.total, tt.size); got != tt.want {
			t.Errorf("PageCount(%d, %d) = %d, want %d", tt.total, tt.size, got, tt.want)
		}
	}
}

func TestNewResponse(t *testing.T) {
	resp := NewResponse([]int{1, 2, 3, 4, 5}, 12, Params{Page: 2, PageSize: 5})
	if resp.Pages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.Pages)
	}
	if !resp.HasMore {
		t.Error("expected has_more on page 2 of 3")
	}

	last := NewResponse([]int{11, 12}, 12, Params{Page: 3, PageSize: 5})
	if last.HasMore {
		t.Error("expected no more results on the last page")
	}
}

func TestPaginate_EmptyIsNotNil(t *testing.T) {
	resp := Paginate([]string{}, Params{Page: 1})
	page, ok := resp.Data.([]string)
	if !ok || page == nil {
		t.Errorf("expected an empty non-nil page, got %#v", resp.Data)
	}
}
