// Package dashboard wires the live sources, the reconciliation store, the
// selection and the derived view into one Session that a front end drives.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"

	"github.com/lukasdemani/searcher-app/internal/api"
	"github.com/lukasdemani/searcher-app/internal/live"
	"github.com/lukasdemani/searcher-app/internal/model"
	"github.com/lukasdemani/searcher-app/internal/platform/config"
	"github.com/lukasdemani/searcher-app/internal/platform/errs"
	"github.com/lukasdemani/searcher-app/internal/platform/middleware"
	"github.com/lukasdemani/searcher-app/internal/store"
	"github.com/lukasdemani/searcher-app/internal/view"
)

// SnapshotLimit is the number of records requested per snapshot. The view
// paginates client-side over what is loaded.
const SnapshotLimit = 100

var (
	errAlreadyStarted = errors.New("dashboard: session already started")
	errClosed         = errors.New("dashboard: session closed")
)

// Client is the server surface a Session needs.
type Client interface {
	store.Mutator
	live.PageFetcher
}

// Status is a point-in-time summary for rendering headers and indicators.
type Status struct {
	Connection   live.Status
	Loading      bool
	FetchErr     error
	Meta         model.PageMeta
	Stats        store.Stats
	Selected     int
	StatusFilter string
}

type Option func(*Session)

// WithNotifier routes user-visible notifications to n.
func WithNotifier(n Notifier) Option {
	return func(s *Session) { s.notifier = n }
}

// Session is one live dashboard.
type Session struct {
	logger   *slog.Logger
	notifier Notifier

	store     *store.Store
	selection *store.Selection
	transport *live.Transport
	poller    *live.Poller

	searchInput *view.Debouncer[string]
	filterInput *view.Debouncer[view.Filters]
	filterMu    sync.Mutex

	changes chan struct{}

	mu           sync.Mutex
	params       view.Params
	paramsRev    uint64
	statusFilter string
	cached       view.Result
	cachedRev    uint64
	cachedVer    uint64
	cacheValid   bool
	started      bool
	closed       bool
	ctx          context.Context
	cancel       context.CancelFunc

	wg sync.WaitGroup
}

func New(cfg config.Config, client Client, logger *slog.Logger, opts ...Option) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Session{
		logger:    logger.With("component", "session"),
		selection: store.NewSelection(),
		changes:   make(chan struct{}, 1),
		params:    view.DefaultParams(cfg.PageSize),
	}
	s.notifier = logNotifier{logger: s.logger}
	for _, opt := range opts {
		opt(s)
	}

	s.store = store.New(client, logger)
	s.store.Track(s.selection)
	s.store.OnRemove(func([]int64) { s.signal() })
	s.store.OnChange(s.signal)

	header := http.Header{}
	if cfg.APIKey != "" {
		header.Set(middleware.APIKeyHeader, cfg.APIKey)
	}
	settings := live.DefaultTransportSettings()
	settings.URL = cfg.WSURL
	settings.Header = header
	settings.ReconnectInterval = cfg.ReconnectInterval
	settings.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	settings.HandshakeTimeout = cfg.RequestTimeout
	s.transport = live.NewTransport(settings, logger)

	s.poller = live.NewPoller(client, live.PollerSettings{
		Interval: cfg.PollInterval,
		Query:    s.query,
		Paused:   s.transport.Connected,
		OnFetch:  func() { s.store.SetLoading(true) },
	}, logger)

	s.searchInput = view.NewDebouncer(cfg.DebounceWindow, s.commitSearch)
	s.filterInput = view.NewDebouncer(cfg.DebounceWindow, s.commitFilters)
	return s
}

// Start connects the push channel, requests the initial snapshot and feeds
// both live sources into the store until Close.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errClosed
	}
	if s.started {
		s.mu.Unlock()
		return errAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.ctx, s.cancel = ctx, cancel
	s.started = true
	s.mu.Unlock()

	s.transport.Connect(ctx)
	s.poller.Trigger()

	s.wg.Go(func() { s.poller.Run(ctx) })
	s.wg.Go(func() { live.Pump(ctx, s.transport, s.store.Apply) })
	s.wg.Go(func() { live.Pump(ctx, s.poller, s.store.Apply) })
	s.wg.Go(func() { s.watchTransport(ctx) })

	s.logger.Info("session started")
	return nil
}

// watchTransport relays connection changes and refetches after the push
// channel comes back, since events sent while it was down are lost.
func (s *Session) watchTransport(ctx context.Context) {
	var wasConnected, everConnected bool
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.transport.Changed():
		}

		connected := s.transport.Connected()
		if connected && !wasConnected {
			if everConnected {
				s.poller.Trigger()
			}
			everConnected = true
		}
		wasConnected = connected
		s.signal()
	}
}

// Close disconnects the push channel, cancels pending input and polling and
// discards anything that completes afterwards. It is idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	s.mu.Unlock()

	s.transport.Disconnect()
	s.searchInput.Stop()
	s.filterInput.Stop()
	s.store.Close()
	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
	s.logger.Info("session closed")
}

// Reconnect restarts the push channel after it failed or was closed.
func (s *Session) Reconnect() error {
	s.mu.Lock()
	ctx, closed := s.ctx, s.closed
	s.mu.Unlock()
	if closed {
		return errClosed
	}
	if ctx == nil {
		return errors.New("dashboard: session not started")
	}
	s.transport.Connect(ctx)
	return nil
}

// Changes receives a value after any change to records, parameters,
// selection or connection state. Signals are coalesced.
func (s *Session) Changes() <-chan struct{} {
	return s.changes
}

func (s *Session) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// query is the server-side query for the next snapshot.
func (s *Session) query() api.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return api.Query{
		Page:   1,
		Limit:  SnapshotLimit,
		Search: s.params.Search,
		Status: s.statusFilter,
	}
}

// View returns the current page. It is recomputed only when the records or
// the committed parameters changed. The result must not be modified.
func (s *Session) View() view.Result {
	version := s.store.Version()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cacheValid && s.cachedVer == version && s.cachedRev == s.paramsRev {
		return s.cached
	}
	s.cached = view.Compute(s.store.Records(), s.params)
	s.cachedVer = version
	s.cachedRev = s.paramsRev
	s.cacheValid = true
	return s.cached
}

// Params returns the committed view parameters.
func (s *Session) Params() view.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.params
	p.Filters = p.Filters.Clone()
	return p
}

func (s *Session) Status() Status {
	s.mu.Lock()
	statusFilter := s.statusFilter
	s.mu.Unlock()

	return Status{
		Connection:   s.transport.Status(),
		Loading:      s.store.Loading(),
		FetchErr:     s.store.FetchError(),
		Meta:         s.store.Meta(),
		Stats:        s.store.Stats(),
		Selected:     s.selection.Len(),
		StatusFilter: statusFilter,
	}
}

// update applies fn to the parameters, validates the result and commits it.
func (s *Session) update(fn func(p *view.Params)) error {
	s.mu.Lock()
	next := s.params
	next.Filters = next.Filters.Clone()
	fn(&next)
	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.params = next
	s.paramsRev++
	s.mu.Unlock()

	s.signal()
	return nil
}

// SetSearch stages a global search term. Once it settles the view resets to
// the first page and a snapshot with the new term is fetched.
func (s *Session) SetSearch(term string) {
	s.searchInput.Set(term)
}

func (s *Session) commitSearch(term string) {
	s.mu.Lock()
	same := s.params.Search == term
	s.mu.Unlock()
	if same {
		return
	}
	_ = s.update(func(p *view.Params) {
		p.Search = term
		p.Page = 1
	})
	s.poller.Trigger()
}

// SetFilter stages a column filter. An empty value removes it.
func (s *Session) SetFilter(field view.Field, value string) error {
	if !view.Filterable(field) {
		return &errs.AppError{Kind: errs.InvalidInput, Message: fmt.Sprintf("unknown filter field %q", field)}
	}

	s.filterMu.Lock()
	defer s.filterMu.Unlock()
	staged, ok := s.filterInput.Pending()
	if ok {
		staged = staged.Clone()
	} else {
		staged = s.Params().Filters
	}
	if value == "" {
		delete(staged, field)
	} else {
		staged[field] = value
	}
	s.filterInput.Set(staged)
	return nil
}

// FlushInput commits staged search and filter input now instead of after
// the debounce window.
func (s *Session) FlushInput() {
	s.searchInput.Flush()
	s.filterMu.Lock()
	s.filterInput.Flush()
	s.filterMu.Unlock()
}

func (s *Session) commitFilters(filters view.Filters) {
	_ = s.update(func(p *view.Params) {
		p.Filters = filters
		p.Page = 1
	})
}

// ClearFilters drops the search term, the status filter and every column
// filter at once.
func (s *Session) ClearFilters() {
	s.filterMu.Lock()
	s.filterInput.Set(view.Filters{})
	s.filterInput.Flush()
	s.filterMu.Unlock()

	s.searchInput.Set("")
	s.searchInput.Flush()
	_ = s.SetStatusFilter("")
}

// SetStatusFilter restricts snapshots to one status. Empty or "all" lifts it.
func (s *Session) SetStatusFilter(status string) error {
	if status == "all" {
		status = ""
	}
	if status != "" && !model.Status(status).Valid() {
		return &errs.AppError{Kind: errs.InvalidInput, Message: fmt.Sprintf("unknown status %q", status)}
	}

	s.mu.Lock()
	same := s.statusFilter == status
	s.statusFilter = status
	if !same {
		s.params.Page = 1
		s.paramsRev++
	}
	s.mu.Unlock()
	if same {
		return nil
	}

	s.signal()
	s.poller.Trigger()
	return nil
}

// SortBy sorts on field. Sorting on the current field flips the direction;
// a new field starts ascending.
func (s *Session) SortBy(field view.Field) error {
	return s.update(func(p *view.Params) {
		if p.SortField == field {
			p.SortDirection = p.SortDirection.Toggle()
			return
		}
		p.SortField = field
		p.SortDirection = view.Asc
	})
}

func (s *Session) SetSort(field view.Field, dir view.Direction) error {
	return s.update(func(p *view.Params) {
		p.SortField = field
		p.SortDirection = dir
	})
}

// SetPage moves to page n. Pages past the end are allowed and show nothing.
func (s *Session) SetPage(n int) error {
	return s.update(func(p *view.Params) { p.Page = n })
}

func (s *Session) SetPageSize(n int) error {
	return s.update(func(p *view.Params) {
		p.PageSize = n
		p.Page = 1
	})
}

// Toggle flips the selection of a loaded record. Unknown IDs are ignored.
func (s *Session) Toggle(id int64) bool {
	selected, ok := s.store.ToggleSelected(id)
	if ok {
		s.signal()
	}
	return selected
}

// SelectAll selects exactly the visible page.
func (s *Session) SelectAll() {
	s.selection.SelectAll(s.View().IDs())
	s.signal()
}

// ToggleAll selects the visible page, or clears it when already selected.
func (s *Session) ToggleAll() {
	s.selection.ToggleAll(s.View().IDs())
	s.signal()
}

func (s *Session) ClearSelection() {
	s.selection.Clear()
	s.signal()
}

// Selected returns the selected IDs in ascending order.
func (s *Session) Selected() []int64 {
	return s.selection.IDs()
}

func (s *Session) IsSelected(id int64) bool {
	return s.selection.Contains(id)
}

// Refresh requests a snapshot now. The result arrives asynchronously.
func (s *Session) Refresh() {
	s.poller.Trigger()
}

// Add submits a URL and prepends the accepted record.
func (s *Session) Add(ctx context.Context, rawURL string) (*model.AnalysisRecord, error) {
	rec, err := s.store.Add(ctx, rawURL)
	if err != nil {
		s.fail(err)
		return nil, err
	}
	s.succeed("URL added successfully.")
	return rec, nil
}

func (s *Session) Analyze(ctx context.Context, id int64) error {
	if err := s.store.Analyze(ctx, id); err != nil {
		s.fail(err)
		return err
	}
	s.succeed("Analysis started.")
	return nil
}

func (s *Session) Delete(ctx context.Context, id int64) error {
	if err := s.store.Delete(ctx, id); err != nil {
		s.fail(err)
		return err
	}
	s.succeed("URL deleted.")
	return nil
}

// BulkAnalyze starts analysis of ids and refetches once the server accepts.
func (s *Session) BulkAnalyze(ctx context.Context, ids []int64) error {
	if err := s.store.BulkAnalyze(ctx, slices.Clone(ids)); err != nil {
		s.fail(err)
		return err
	}
	s.succeed(fmt.Sprintf("Analysis started for %d URLs.", len(ids)))
	s.poller.Trigger()
	return nil
}

// BulkDelete deletes ids and refetches. Only the deleted IDs leave the
// selection.
func (s *Session) BulkDelete(ctx context.Context, ids []int64) error {
	if err := s.store.BulkDelete(ctx, slices.Clone(ids)); err != nil {
		s.fail(err)
		return err
	}
	s.succeed(fmt.Sprintf("Deleted %d URLs.", len(ids)))
	s.poller.Trigger()
	return nil
}

func (s *Session) AnalyzeSelected(ctx context.Context) error {
	return s.BulkAnalyze(ctx, s.selection.IDs())
}

func (s *Session) DeleteSelected(ctx context.Context) error {
	return s.BulkDelete(ctx, s.selection.IDs())
}

func (s *Session) succeed(message string) {
	s.notifier.Notify(Notification{Level: LevelSuccess, Message: message})
}

func (s *Session) fail(err error) {
	s.notifier.Notify(Notification{Level: LevelError, Message: describe(err), Err: err})
}
