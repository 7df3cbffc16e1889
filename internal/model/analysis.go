package model

import "time"

// Status is the analysis lifecycle state of a submitted URL.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Valid reports whether s is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// AnalysisRecord holds one analyzed URL as returned by the API.
type AnalysisRecord struct {
	ID                 int64     `json:"id"`
	URL                string    `json:"url"`
	Title              string    `json:"title,omitempty"`
	HTMLVersion        string    `json:"html_version,omitempty"`
	H1Count            int       `json:"h1_count"`
	H2Count            int       `json:"h2_count"`
	H3Count            int       `json:"h3_count"`
	H4Count            int       `json:"h4_count"`
	H5Count            int       `json:"h5_count"`
	H6Count            int       `json:"h6_count"`
	InternalLinksCount int       `json:"internal_links_count"`
	ExternalLinksCount int       `json:"external_links_count"`
	BrokenLinksCount   int       `json:"broken_links_count"`
	HasLoginForm       bool      `json:"has_login_form"`
	Status             Status    `json:"status"`
	ErrorMessage       string    `json:"error_message,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Patch is a partial AnalysisRecord. Nil fields are left untouched by Apply.
// ID and CreatedAt are not patchable.
type Patch struct {
	URL                *string    `json:"url,omitempty"`
	Title              *string    `json:"title,omitempty"`
	HTMLVersion        *string    `json:"html_version,omitempty"`
	H1Count            *int       `json:"h1_count,omitempty"`
	H2Count            *int       `json:"h2_count,omitempty"`
	H3Count            *int       `json:"h3_count,omitempty"`
	H4Count            *int       `json:"h4_count,omitempty"`
	H5Count            *int       `json:"h5_count,omitempty"`
	H6Count            *int       `json:"h6_count,omitempty"`
	InternalLinksCount *int       `json:"internal_links_count,omitempty"`
	ExternalLinksCount *int       `json:"external_links_count,omitempty"`
	BrokenLinksCount   *int       `json:"broken_links_count,omitempty"`
	HasLoginForm       *bool      `json:"has_login_form,omitempty"`
	Status             *Status    `json:"status,omitempty"`
	ErrorMessage       *string    `json:"error_message,omitempty"`
	UpdatedAt          *time.Time `json:"updated_at,omitempty"`
}

// Apply returns a copy of rec with every non-nil patch field replaced.
func (p *Patch) Apply(rec AnalysisRecord) AnalysisRecord {
	if p == nil {
		return rec
	}
	setString(&rec.URL, p.URL)
	setString(&rec.Title, p.Title)
	setString(&rec.HTMLVersion, p.HTMLVersion)
	setInt(&rec.H1Count, p.H1Count)
	setInt(&rec.H2Count, p.H2Count)
	setInt(&rec.H3Count, p.H3Count)
	setInt(&rec.H4Count, p.H4Count)
	setInt(&rec.H5Count, p.H5Count)
	setInt(&rec.H6Count, p.H6Count)
	setInt(&rec.InternalLinksCount, p.InternalLinksCount)
	setInt(&rec.ExternalLinksCount, p.ExternalLinksCount)
	setInt(&rec.BrokenLinksCount, p.BrokenLinksCount)
	if p.HasLoginForm != nil {
		rec.HasLoginForm = *p.HasLoginForm
	}
	if p.Status != nil && p.Status.Valid() {
		rec.Status = *p.Status
	}
	setString(&rec.ErrorMessage, p.ErrorMessage)
	if p.UpdatedAt != nil {
		rec.UpdatedAt = *p.UpdatedAt
	}
	return rec
}

// Empty reports whether the patch carries no field at all.
func (p *Patch) Empty() bool {
	return p == nil || *p == Patch{}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil && *v >= 0 {
		*dst = *v
	}
}
