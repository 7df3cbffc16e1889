package model

// PageMeta is the pagination metadata of a snapshot.
type PageMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Page is one paginated snapshot returned by GET /urls.
type Page struct {
	Data []AnalysisRecord `json:"data"`
	PageMeta
}

// URLRequest is the body of POST /urls.
type URLRequest struct {
	URL string `json:"url"`
}

// BulkRequest is the body of the bulk endpoints.
type BulkRequest struct {
	IDs []int64 `json:"ids"`
}

// RecordEnvelope is the success envelope wrapping a single record.
type RecordEnvelope struct {
	Message string         `json:"message"`
	Data    AnalysisRecord `json:"data"`
}

// SuccessResponse is the JSON shape returned by mutation endpoints.
type SuccessResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is the JSON shape returned on failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatusFrame is the wire shape of a push channel text frame.
type StatusFrame struct {
	Type   string `json:"type"`
	URLID  int64  `json:"url_id"`
	Status string `json:"status"`
	Data   any    `json:"data,omitempty"`
}

const (
	// FrameTypeStatusUpdate is the only frame type forwarded to subscribers.
	FrameTypeStatusUpdate = "status_update"
	// StatusDeleted is the removal sentinel carried in a frame's status.
	StatusDeleted = "deleted"
)
