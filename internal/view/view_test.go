package view

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"

	"github.com/lukasdemani/searcher-app/internal/model"
	"github.com/lukasdemani/searcher-app/internal/platform/errs"
)

func ids(recs []model.AnalysisRecord) []int64 {
	out := make([]int64, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

func params() Params {
	return Params{Page: 1, PageSize: 100}
}

func withInternalLinks(counts ...int) []model.AnalysisRecord {
	recs := make([]model.AnalysisRecord, len(counts))
	for i, c := range counts {
		recs[i] = model.AnalysisRecord{ID: int64(i + 1), InternalLinksCount: c, ExternalLinksCount: c}
	}
	return recs
}

func TestCompute_NumericFilter(t *testing.T) {
	recs := withInternalLinks(3, 5, 8)

	tests := []struct {
		filter string
		want   []int64
	}{
		{">=5", []int64{2, 3}},
		{"<=5", []int64{1, 2}},
		{">5", []int64{3}},
		{"<5", []int64{1}},
		{"5", []int64{2}},
		{" >= 5 ", []int64{2, 3}},
		{"", []int64{1, 2, 3}},
		{"abc", []int64{}},
		{">=", []int64{}},
		{"5.5", []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			p := params()
			p.Filters = Filters{FieldExternalLinksCount: tt.filter}
			assert.Equal(t, ids(Compute(recs, p).Items), tt.want)
		})
	}
}

func TestCompute_InternalLinksScenario(t *testing.T) {
	p := params()
	p.Filters = Filters{FieldInternalLinksCount: ">=10"}

	got := Compute(withInternalLinks(5, 10, 15), p)
	assert.Equal(t, ids(got.Items), []int64{2, 3})
	assert.Equal(t, got.Matched, 2)
}

func TestCompute_TextBooleanAndStatusFilters(t *testing.T) {
	recs := []model.AnalysisRecord{
		{ID: 1, URL: "https://Go.dev", Title: "The Go Programming Language", HTMLVersion: "HTML5", HasLoginForm: false, Status: model.StatusCompleted},
		{ID: 2, URL: "https://example.com/login", Title: "Sign in", HasLoginForm: true, Status: model.StatusCompleted},
		{ID: 3, URL: "https://old.example", HTMLVersion: "HTML 4.01", Status: model.StatusError},
	}

	tests := []struct {
		name    string
		filters Filters
		want    []int64
	}{
		{"title substring is case-insensitive", Filters{FieldTitle: "go PROG"}, []int64{1}},
		{"missing title never matches a text filter", Filters{FieldTitle: "n"}, []int64{1, 2}},
		{"url", Filters{FieldURL: "example"}, []int64{2, 3}},
		{"html version", Filters{FieldHTMLVersion: "html 4"}, []int64{3}},
		{"login true", Filters{FieldHasLoginForm: "true"}, []int64{2}},
		{"login false", Filters{FieldHasLoginForm: "false"}, []int64{1, 3}},
		{"login empty", Filters{FieldHasLoginForm: ""}, []int64{1, 2, 3}},
		{"login unparseable", Filters{FieldHasLoginForm: "yes"}, []int64{}},
		{"status all", Filters{FieldStatus: "all"}, []int64{1, 2, 3}},
		{"status exact", Filters{FieldStatus: "error"}, []int64{3}},
		{"combined", Filters{FieldURL: "https", FieldStatus: "completed", FieldHasLoginForm: "false"}, []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := params()
			p.Filters = tt.filters
			assert.Equal(t, ids(Compute(recs, p).Items), tt.want)
		})
	}
}

func TestCompute_GlobalSearch(t *testing.T) {
	recs := []model.AnalysisRecord{
		{ID: 1, URL: "https://go.dev", Status: model.StatusQueued},
		{ID: 2, URL: "https://a.example", Title: "All about GOPHERS", Status: model.StatusQueued},
		{ID: 3, URL: "https://b.example", HTMLVersion: "XHTML 1.0", Status: model.StatusQueued},
		{ID: 4, URL: "https://c.example", Status: model.StatusProcessing},
	}

	tests := []struct {
		term string
		want []int64
	}{
		{"", []int64{1, 2, 3, 4}},
		{"go", []int64{1, 2}},
		{"xhtml", []int64{3}},
		{"PROCESS", []int64{4}},
		{"nothing", []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			p := params()
			p.Search = tt.term
			assert.Equal(t, ids(Compute(recs, p).Items), tt.want)
		})
	}
}

func TestCompute_SortReversesAndIsStable(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []model.AnalysisRecord{
		{ID: 1, Title: "beta", H1Count: 2, HasLoginForm: true, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, Title: "Alpha", H1Count: 1, CreatedAt: base},
		{ID: 3, Title: "alpha", H1Count: 2, CreatedAt: base.Add(time.Hour)},
		{ID: 4, H1Count: 1, HasLoginForm: true, CreatedAt: base.Add(3 * time.Hour)},
	}

	tests := []struct {
		field Field
		asc   []int64
		desc  []int64
	}{
		// Equal keys keep store order in both directions.
		{FieldTitle, []int64{4, 2, 3, 1}, []int64{1, 2, 3, 4}},
		{FieldH1Count, []int64{2, 4, 1, 3}, []int64{1, 3, 2, 4}},
		{FieldHasLoginForm, []int64{2, 3, 1, 4}, []int64{1, 4, 2, 3}},
		{FieldCreatedAt, []int64{2, 3, 1, 4}, []int64{4, 1, 3, 2}},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			p := params()
			p.SortField = tt.field

			p.SortDirection = Asc
			assert.Equal(t, ids(Compute(recs, p).Items), tt.asc)

			p.SortDirection = Desc
			assert.Equal(t, ids(Compute(recs, p).Items), tt.desc)
		})
	}
}

func TestCompute_NoSortKeepsStoreOrder(t *testing.T) {
	recs := withInternalLinks(9, 1, 5)
	assert.Equal(t, ids(Compute(recs, params()).Items), []int64{1, 2, 3})
}

func TestCompute_Pagination(t *testing.T) {
	recs := withInternalLinks(make([]int, 23)...)

	tests := []struct {
		page, size int
		wantLen    int
		wantStart  int
		wantFirst  int64
	}{
		{page: 1, size: 10, wantLen: 10, wantStart: 0, wantFirst: 1},
		{page: 2, size: 10, wantLen: 10, wantStart: 10, wantFirst: 11},
		{page: 3, size: 10, wantLen: 3, wantStart: 20, wantFirst: 21},
		{page: 4, size: 10, wantLen: 0, wantStart: 30},
		{page: 1, size: 50, wantLen: 23, wantStart: 0, wantFirst: 1},
	}

	for _, tt := range tests {
		p := Params{Page: tt.page, PageSize: tt.size}
		got := Compute(recs, p)

		remaining := max(got.Matched-tt.wantStart, 0)
		assert.Equal(t, len(got.Items), min(tt.size, remaining))
		assert.Equal(t, len(got.Items), tt.wantLen)
		assert.Equal(t, got.Start, tt.wantStart)
		assert.Equal(t, got.End, tt.wantStart+tt.wantLen)
		assert.Equal(t, got.TotalPages, (23+tt.size-1)/tt.size)
		assert.Equal(t, got.Page, tt.page)
		if tt.wantLen > 0 {
			assert.Equal(t, got.Items[0].ID, tt.wantFirst)
		}
	}
}

func TestCompute_DoesNotClampPage(t *testing.T) {
	recs := withInternalLinks(1, 2, 3, 20, 30)
	p := Params{Page: 2, PageSize: 3, Filters: Filters{FieldInternalLinksCount: "<10"}}

	got := Compute(recs, p)
	assert.Equal(t, len(got.Items), 0)
	assert.Equal(t, got.Page, 2)
	assert.Equal(t, got.TotalPages, 1)
}

func TestCompute_DoesNotMutateInput(t *testing.T) {
	recs := withInternalLinks(3, 1, 2)
	p := params()
	p.SortField = FieldInternalLinksCount
	p.SortDirection = Asc

	Compute(recs, p)
	assert.Equal(t, ids(recs), []int64{1, 2, 3})
}

func TestParams_Validate(t *testing.T) {
	valid := DefaultParams(10)
	assert.Equal(t, valid.Validate(), nil)

	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"unknown filter", func(p *Params) { p.Filters = Filters{"h1_count": "1"} }},
		{"unknown sort field", func(p *Params) { p.SortField = "colour" }},
		{"bad direction", func(p *Params) { p.SortDirection = "up" }},
		{"zero page", func(p *Params) { p.Page = 0 }},
		{"zero page size", func(p *Params) { p.PageSize = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams(10)
			tt.mutate(&p)
			assert.Equal(t, errs.KindOf(p.Validate()), errs.InvalidInput)
		})
	}
}

func TestDirection_Toggle(t *testing.T) {
	assert.Equal(t, Asc.Toggle(), Desc)
	assert.Equal(t, Desc.Toggle(), Asc)
}
