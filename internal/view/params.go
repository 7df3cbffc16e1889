package view

import (
	"fmt"
	"maps"
	"slices"

	"github.com/lukasdemani/searcher-app/internal/platform/errs"
)

// DefaultPageSize is the client-side page size when none is set.
const DefaultPageSize = 10

// Field names a record column by its wire name.
type Field string

const (
	FieldID                 Field = "id"
	FieldURL                Field = "url"
	FieldTitle              Field = "title"
	FieldHTMLVersion        Field = "html_version"
	FieldH1Count            Field = "h1_count"
	FieldH2Count            Field = "h2_count"
	FieldH3Count            Field = "h3_count"
	FieldH4Count            Field = "h4_count"
	FieldH5Count            Field = "h5_count"
	FieldH6Count            Field = "h6_count"
	FieldInternalLinksCount Field = "internal_links_count"
	FieldExternalLinksCount Field = "external_links_count"
	FieldBrokenLinksCount   Field = "broken_links_count"
	FieldHasLoginForm       Field = "has_login_form"
	FieldStatus             Field = "status"
	FieldErrorMessage       Field = "error_message"
	FieldCreatedAt          Field = "created_at"
	FieldUpdatedAt          Field = "updated_at"
)

// Direction is the sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Toggle returns the opposite direction.
func (d Direction) Toggle() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Filters maps a filterable field to its raw filter string.
type Filters map[Field]string

// Clone returns an independent copy.
func (f Filters) Clone() Filters {
	if f == nil {
		return Filters{}
	}
	return maps.Clone(f)
}

// Params are the inputs of the derived view.
type Params struct {
	Search        string
	Filters       Filters
	SortField     Field
	SortDirection Direction
	Page          int
	PageSize      int
}

// DefaultParams sorts newest first, matching the dashboard's initial view.
func DefaultParams(pageSize int) Params {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Params{
		Filters:       Filters{},
		SortField:     FieldCreatedAt,
		SortDirection: Desc,
		Page:          1,
		PageSize:      pageSize,
	}
}

// Validate rejects unknown filter keys and sort fields, bad directions and
// non-positive paging.
func (p Params) Validate() error {
	for _, field := range slices.Sorted(maps.Keys(p.Filters)) {
		if !Filterable(field) {
			return invalid("unknown filter field %q", field)
		}
	}
	if p.SortField != "" && !Sortable(p.SortField) {
		return invalid("unknown sort field %q", p.SortField)
	}
	if p.SortDirection != "" && p.SortDirection != Asc && p.SortDirection != Desc {
		return invalid("sort direction must be %q or %q, got %q", Asc, Desc, p.SortDirection)
	}
	if p.Page < 1 {
		return invalid("page must be at least 1, got %d", p.Page)
	}
	if p.PageSize < 1 {
		return invalid("page size must be at least 1, got %d", p.PageSize)
	}
	return nil
}

// Filterable reports whether field accepts a column filter.
func Filterable(field Field) bool {
	_, ok := filterKinds[field]
	return ok
}

// Sortable reports whether field can be sorted on.
func Sortable(field Field) bool {
	_, ok := comparators[field]
	return ok
}

func invalid(format string, args ...any) error {
	return &errs.AppError{Kind: errs.InvalidInput, Message: fmt.Sprintf(format, args...)}
}
