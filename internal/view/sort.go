package view

import (
	"cmp"
	"strings"
	"time"

	"github.com/lukasdemani/searcher-app/internal/model"
)

type comparator func(a, b *model.AnalysisRecord) int

var textFields = map[Field]func(*model.AnalysisRecord) string{
	FieldURL:          func(r *model.AnalysisRecord) string { return r.URL },
	FieldTitle:        func(r *model.AnalysisRecord) string { return r.Title },
	FieldHTMLVersion:  func(r *model.AnalysisRecord) string { return r.HTMLVersion },
	FieldStatus:       func(r *model.AnalysisRecord) string { return string(r.Status) },
	FieldErrorMessage: func(r *model.AnalysisRecord) string { return r.ErrorMessage },
}

var intFields = map[Field]func(*model.AnalysisRecord) int{
	FieldH1Count:            func(r *model.AnalysisRecord) int { return r.H1Count },
	FieldH2Count:            func(r *model.AnalysisRecord) int { return r.H2Count },
	FieldH3Count:            func(r *model.AnalysisRecord) int { return r.H3Count },
	FieldH4Count:            func(r *model.AnalysisRecord) int { return r.H4Count },
	FieldH5Count:            func(r *model.AnalysisRecord) int { return r.H5Count },
	FieldH6Count:            func(r *model.AnalysisRecord) int { return r.H6Count },
	FieldInternalLinksCount: func(r *model.AnalysisRecord) int { return r.InternalLinksCount },
	FieldExternalLinksCount: func(r *model.AnalysisRecord) int { return r.ExternalLinksCount },
	FieldBrokenLinksCount:   func(r *model.AnalysisRecord) int { return r.BrokenLinksCount },
}

var comparators = buildComparators()

func buildComparators() map[Field]comparator {
	m := map[Field]comparator{
		FieldID:           byOrdered(func(r *model.AnalysisRecord) int64 { return r.ID }),
		FieldHasLoginForm: byBool(func(r *model.AnalysisRecord) bool { return r.HasLoginForm }),
		FieldCreatedAt:    byTime(func(r *model.AnalysisRecord) time.Time { return r.CreatedAt }),
		FieldUpdatedAt:    byTime(func(r *model.AnalysisRecord) time.Time { return r.UpdatedAt }),
	}
	for f, get := range textFields {
		m[f] = byText(get)
	}
	for f, get := range intFields {
		m[f] = byOrdered(get)
	}
	return m
}

// byText compares case-insensitively. Absent optional values are empty strings.
func byText(get func(*model.AnalysisRecord) string) comparator {
	return func(a, b *model.AnalysisRecord) int {
		return strings.Compare(strings.ToLower(get(a)), strings.ToLower(get(b)))
	}
}

func byOrdered[T cmp.Ordered](get func(*model.AnalysisRecord) T) comparator {
	return func(a, b *model.AnalysisRecord) int {
		return cmp.Compare(get(a), get(b))
	}
}

// byBool orders false before true.
func byBool(get func(*model.AnalysisRecord) bool) comparator {
	return byOrdered(func(r *model.AnalysisRecord) int {
		if get(r) {
			return 1
		}
		return 0
	})
}

func byTime(get func(*model.AnalysisRecord) time.Time) comparator {
	return func(a, b *model.AnalysisRecord) int {
		return get(a).Compare(get(b))
	}
}
