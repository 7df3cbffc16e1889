package store

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/lukasdemani/searcher-app/internal/model"
	"github.com/lukasdemani/searcher-app/internal/platform/errs"
	"github.com/lukasdemani/searcher-app/internal/platform/metrics"
)

// Mutator performs record mutations against the server.
type Mutator interface {
	AddURL(ctx context.Context, rawURL string) (*model.AnalysisRecord, error)
	AnalyzeURL(ctx context.Context, id int64) error
	DeleteURL(ctx context.Context, id int64) error
	BulkAnalyze(ctx context.Context, ids []int64) error
	BulkDelete(ctx context.Context, ids []int64) error
}

// Stats are the per-status counts over the loaded records.
type Stats struct {
	Total      int
	Queued     int
	Processing int
	Completed  int
	Error      int
}

// Store is the reconciliation store: the single owner of the loaded
// records. Snapshots, push events and mutation results all land here, each
// applied against the state at the moment it runs. No lock is held across
// a server call.
type Store struct {
	api    Mutator
	logger *slog.Logger

	mu       sync.Mutex
	records  []model.AnalysisRecord
	meta     model.PageMeta
	fetchErr error
	loading  bool
	version  uint64
	closed   bool

	// selection is pruned under mu together with the records.
	selection *Selection

	onRemove []func(ids []int64)
	onChange []func()
}

func New(api Mutator, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Store{
		api:     api,
		logger:  logger.With("component", "store"),
		loading: true,
	}
}

// Track ties sel to the store: removed IDs leave the selection in the same
// locked step that removes the records.
func (s *Store) Track(sel *Selection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = sel
}

// ToggleSelected flips the selection of a loaded record. ok is false, and
// the selection untouched, when id is not loaded.
func (s *Store) ToggleSelected(id int64) (selected, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selection == nil || s.indexOf(id) < 0 {
		return false, false
	}
	return s.selection.Toggle(id), true
}

// OnRemove registers fn to be called with the IDs of removed records.
func (s *Store) OnRemove(fn func(ids []int64)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = append(s.onRemove, fn)
}

// OnChange registers fn to be called after every state change.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Close gates the store: every later apply or mutation completion is discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *Store) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Apply routes one live update to the matching operation.
func (s *Store) Apply(u model.Update) {
	switch {
	case u.Event != nil:
		s.ApplyPushEvent(*u.Event)
	case u.Snapshot != nil:
		s.ApplySnapshot(u.Snapshot)
	case u.Err != nil:
		s.SetFetchError(u.Err)
	}
}

// ApplySnapshot replaces the records and page metadata wholesale and clears
// the fetch error. Records that are no longer present count as removed.
func (s *Store) ApplySnapshot(page *model.Page) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	next := make([]model.AnalysisRecord, 0, len(page.Data))
	seen := make(map[int64]struct{}, len(page.Data))
	for _, rec := range page.Data {
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		next = append(next, rec)
	}

	var removed []int64
	for _, rec := range s.records {
		if _, ok := seen[rec.ID]; !ok {
			removed = append(removed, rec.ID)
		}
	}

	s.records = next
	s.pruneLocked(removed)
	s.meta = page.PageMeta
	s.fetchErr = nil
	s.loading = false
	s.version++
	s.mu.Unlock()

	s.emit(removed, true)
}

// SetFetchError records a failed snapshot fetch. Records are retained.
func (s *Store) SetFetchError(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.fetchErr = err
	s.loading = false
	s.version++
	s.mu.Unlock()

	s.emit(nil, true)
}

// SetLoading flags a snapshot fetch in flight.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	if s.closed || s.loading == loading {
		s.mu.Unlock()
		return
	}
	s.loading = loading
	s.version++
	s.mu.Unlock()

	s.emit(nil, true)
}

// ApplyPushEvent merges one push event. Events for unknown IDs are no-ops;
// a record is never created from a delta. It reports whether state changed.
func (s *Store) ApplyPushEvent(e model.PushEvent) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	idx := s.indexOf(e.TargetID)
	if idx < 0 {
		s.mu.Unlock()
		metrics.PushEventsTotal.WithLabelValues(e.Kind.String(), "ignored").Inc()
		return false
	}

	var removed []int64
	switch e.Kind {
	case model.EventRemoved:
		s.records = slices.Delete(s.records, idx, idx+1)
		removed = []int64{e.TargetID}
		s.pruneLocked(removed)
	case model.EventStatusUpdate:
		rec := s.records[idx]
		if e.Patch != nil {
			rec = e.Patch.Apply(rec)
		} else if e.Status.Valid() {
			rec.Status = e.Status
		}
		if rec == s.records[idx] {
			s.mu.Unlock()
			metrics.PushEventsTotal.WithLabelValues(e.Kind.String(), "unchanged").Inc()
			return false
		}
		s.records[idx] = rec
	default:
		s.mu.Unlock()
		return false
	}
	s.version++
	s.mu.Unlock()

	metrics.PushEventsTotal.WithLabelValues(e.Kind.String(), "applied").Inc()
	s.emit(removed, true)
	return true
}

// Add submits a URL and, once the server accepts it, prepends the canonical
// record. An existing record with the same ID is replaced.
func (s *Store) Add(ctx context.Context, rawURL string) (*model.AnalysisRecord, error) {
	rec, err := s.api.AddURL(ctx, rawURL)
	metrics.MutationsTotal.WithLabelValues("add", metrics.Result(err)).Inc()
	if err != nil {
		return nil, mutationError("Failed to add URL.", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return rec, nil
	}
	if idx := s.indexOf(rec.ID); idx >= 0 {
		s.records = slices.Delete(s.records, idx, idx+1)
	}
	s.records = slices.Insert(s.records, 0, *rec)
	s.version++
	s.mu.Unlock()

	s.emit(nil, true)
	return rec, nil
}

// Analyze triggers re-analysis of one record. Status changes arrive later
// through push events or the next poll.
func (s *Store) Analyze(ctx context.Context, id int64) error {
	err := s.api.AnalyzeURL(ctx, id)
	metrics.MutationsTotal.WithLabelValues("analyze", metrics.Result(err)).Inc()
	if err != nil {
		return mutationError("Failed to start analysis.", err)
	}
	return nil
}

// BulkAnalyze triggers re-analysis of several records in one server call.
func (s *Store) BulkAnalyze(ctx context.Context, ids []int64) error {
	err := s.api.BulkAnalyze(ctx, ids)
	metrics.MutationsTotal.WithLabelValues("bulk_analyze", metrics.Result(err)).Inc()
	if err != nil {
		return mutationError("Failed to start bulk analysis.", err)
	}
	return nil
}

// Delete removes one record once the server confirms it.
func (s *Store) Delete(ctx context.Context, id int64) error {
	err := s.api.DeleteURL(ctx, id)
	metrics.MutationsTotal.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		return mutationError("Failed to delete URL.", err)
	}
	s.remove([]int64{id})
	return nil
}

// BulkDelete removes every listed record once the server confirms it.
func (s *Store) BulkDelete(ctx context.Context, ids []int64) error {
	err := s.api.BulkDelete(ctx, ids)
	metrics.MutationsTotal.WithLabelValues("bulk_delete", metrics.Result(err)).Inc()
	if err != nil {
		return mutationError("Failed to delete URLs.", err)
	}
	s.remove(ids)
	return nil
}

func (s *Store) remove(ids []int64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	before := len(s.records)
	s.records = slices.DeleteFunc(s.records, func(rec model.AnalysisRecord) bool {
		return slices.Contains(ids, rec.ID)
	})
	changed := len(s.records) != before
	// Listed IDs are pruned from the selection even when not loaded.
	s.pruneLocked(ids)
	if changed {
		s.version++
	}
	s.mu.Unlock()

	s.emit(slices.Clone(ids), changed)
}

// emit runs the hooks outside the lock.
func (s *Store) emit(removed []int64, changed bool) {
	s.mu.Lock()
	onRemove := slices.Clone(s.onRemove)
	onChange := slices.Clone(s.onChange)
	s.mu.Unlock()

	if len(removed) > 0 {
		for _, fn := range onRemove {
			fn(removed)
		}
	}
	if changed {
		for _, fn := range onChange {
			fn()
		}
	}
}

func (s *Store) pruneLocked(ids []int64) {
	if s.selection != nil && len(ids) > 0 {
		s.selection.Prune(ids...)
	}
}

func (s *Store) indexOf(id int64) int {
	return slices.IndexFunc(s.records, func(rec model.AnalysisRecord) bool { return rec.ID == id })
}

func mutationError(message string, cause error) error {
	return &errs.AppError{
		Kind:           errs.Mutation,
		UpstreamStatus: errs.UpstreamStatus(cause),
		Message:        message,
		Cause:          cause,
	}
}

// Records returns a copy of the loaded records in store order.
func (s *Store) Records() []model.AnalysisRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

func (s *Store) Get(id int64) (model.AnalysisRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.indexOf(id); idx >= 0 {
		return s.records[idx], true
	}
	return model.AnalysisRecord{}, false
}

func (s *Store) Has(id int64) bool {
	_, ok := s.Get(id)
	return ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *Store) Meta() model.PageMeta {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// FetchError returns the error of the last snapshot fetch, nil after a success.
func (s *Store) FetchError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchErr
}

func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Version increases on every state change.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.records)}
	for _, rec := range s.records {
		switch rec.Status {
		case model.StatusQueued:
			st.Queued++
		case model.StatusProcessing:
			st.Processing++
		case model.StatusCompleted:
			st.Completed++
		case model.StatusError:
			st.Error++
		}
	}
	return st
}
