package view

import (
	"strconv"
	"strings"

	"github.com/lukasdemani/searcher-app/internal/model"
)

type filterKind int

const (
	textFilter filterKind = iota
	numericFilter
	booleanFilter
	enumFilter
)

var filterKinds = map[Field]filterKind{
	FieldURL:                textFilter,
	FieldTitle:              textFilter,
	FieldHTMLVersion:        textFilter,
	FieldInternalLinksCount: numericFilter,
	FieldExternalLinksCount: numericFilter,
	FieldBrokenLinksCount:   numericFilter,
	FieldHasLoginForm:       booleanFilter,
	FieldStatus:             enumFilter,
}

// predicate decides whether a record passes one compiled filter.
type predicate func(rec *model.AnalysisRecord) bool

func pass(*model.AnalysisRecord) bool   { return true }
func reject(*model.AnalysisRecord) bool { return false }

// compileFilters turns the raw filter strings into predicates. Filters that
// pass everything are dropped.
func compileFilters(filters Filters) []predicate {
	var preds []predicate
	for field, raw := range filters {
		kind, ok := filterKinds[field]
		if !ok {
			continue
		}

		var p predicate
		switch kind {
		case textFilter:
			p = textPredicate(field, raw)
		case numericFilter:
			p = numericPredicate(field, raw)
		case booleanFilter:
			p = booleanPredicate(raw)
		case enumFilter:
			p = statusPredicate(raw)
		}
		if p != nil {
			preds = append(preds, p)
		}
	}
	return preds
}

func textPredicate(field Field, raw string) predicate {
	needle := strings.ToLower(raw)
	if needle == "" {
		return nil
	}
	get := textFields[field]
	return func(rec *model.AnalysisRecord) bool {
		return strings.Contains(strings.ToLower(get(rec)), needle)
	}
}

// numericPredicate accepts an optional >=, <=, > or < prefix followed by an
// integer. A filter that does not parse rejects every record.
func numericPredicate(field Field, raw string) predicate {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	op := "="
	for _, prefix := range []string{">=", "<=", ">", "<"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			op, s = prefix, strings.TrimSpace(rest)
			break
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return reject
	}

	get := intFields[field]
	switch op {
	case ">=":
		return func(rec *model.AnalysisRecord) bool { return get(rec) >= n }
	case "<=":
		return func(rec *model.AnalysisRecord) bool { return get(rec) <= n }
	case ">":
		return func(rec *model.AnalysisRecord) bool { return get(rec) > n }
	case "<":
		return func(rec *model.AnalysisRecord) bool { return get(rec) < n }
	}
	return func(rec *model.AnalysisRecord) bool { return get(rec) == n }
}

// booleanPredicate handles the tri-state "" | "true" | "false". Any other
// value rejects every record.
func booleanPredicate(raw string) predicate {
	switch raw {
	case "":
		return nil
	case "true":
		return func(rec *model.AnalysisRecord) bool { return rec.HasLoginForm }
	case "false":
		return func(rec *model.AnalysisRecord) bool { return !rec.HasLoginForm }
	}
	return reject
}

func statusPredicate(raw string) predicate {
	if raw == "" || raw == "all" {
		return nil
	}
	want := model.Status(raw)
	return func(rec *model.AnalysisRecord) bool { return rec.Status == want }
}

// searchPredicate matches the term against url, title, html_version and status.
func searchPredicate(term string) predicate {
	needle := strings.ToLower(term)
	if needle == "" {
		return pass
	}
	return func(rec *model.AnalysisRecord) bool {
		return strings.Contains(strings.ToLower(rec.URL), needle) ||
			strings.Contains(strings.ToLower(rec.Title), needle) ||
			strings.Contains(strings.ToLower(rec.HTMLVersion), needle) ||
			strings.Contains(strings.ToLower(string(rec.Status)), needle)
	}
}
