package model

// EventKind discriminates the two push event shapes.
type EventKind int

const (
	// EventStatusUpdate carries a status and an optional partial record.
	EventStatusUpdate EventKind = iota + 1
	// EventRemoved signals the record was deleted server-side.
	EventRemoved
)

func (k EventKind) String() string {
	switch k {
	case EventStatusUpdate:
		return "status_update"
	case EventRemoved:
		return "removed"
	}
	return "unknown"
}

// PushEvent is a partial update or removal notification for a single record.
type PushEvent struct {
	Kind     EventKind
	TargetID int64
	Status   Status
	Patch    *Patch
}

// Update is one item delivered by a live source: a push event, a fresh
// snapshot, or the error of a failed snapshot fetch. Exactly one field is set.
type Update struct {
	Event    *PushEvent
	Snapshot *Page
	Err      error
}
