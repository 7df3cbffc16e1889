// Package view derives the rendered page from the loaded records: global
// search, then column filters, then a stable sort, then pagination.
package view

import (
	"slices"

	"github.com/lukasdemani/searcher-app/internal/model"
)

// Result is one computed view.
type Result struct {
	Items []model.AnalysisRecord
	// Matched counts records that passed search and filters.
	Matched    int
	TotalPages int
	Page       int
	PageSize   int
	// Start is the index of the first item within the matched sequence;
	// End is one past the last.
	Start int
	End   int
}

// IDs returns the IDs of the visible items, in display order.
func (r Result) IDs() []int64 {
	ids := make([]int64, len(r.Items))
	for i := range r.Items {
		ids[i] = r.Items[i].ID
	}
	return ids
}

// Compute runs the view pipeline. It never mutates records. A page beyond
// the matched range yields no items; the page is not clamped.
func Compute(records []model.AnalysisRecord, p Params) Result {
	page := max(p.Page, 1)
	size := p.PageSize
	if size < 1 {
		size = DefaultPageSize
	}

	search := searchPredicate(p.Search)
	filters := compileFilters(p.Filters)

	matched := make([]model.AnalysisRecord, 0, len(records))
	for i := range records {
		rec := &records[i]
		if !search(rec) || !all(filters, rec) {
			continue
		}
		matched = append(matched, *rec)
	}

	if cmpFn, ok := comparators[p.SortField]; ok {
		if p.SortDirection == Desc {
			slices.SortStableFunc(matched, func(a, b model.AnalysisRecord) int { return cmpFn(&b, &a) })
		} else {
			slices.SortStableFunc(matched, func(a, b model.AnalysisRecord) int { return cmpFn(&a, &b) })
		}
	}

	start := (page - 1) * size
	lo := min(start, len(matched))
	hi := min(start+size, len(matched))
	items := slices.Clone(matched[lo:hi])
	if items == nil {
		items = []model.AnalysisRecord{}
	}

	return Result{
		Items:      items,
		Matched:    len(matched),
		TotalPages: (len(matched) + size - 1) / size,
		Page:       page,
		PageSize:   size,
		Start:      start,
		End:        start + len(items),
	}
}

func all(preds []predicate, rec *model.AnalysisRecord) bool {
	for _, p := range preds {
		if !p(rec) {
			return false
		}
	}
	return true
}
