package live

import (
	"context"
	"log/slog"
	"time"

	"github.com/lukasdemani/searcher-app/internal/api"
	"github.com/lukasdemani/searcher-app/internal/model"
	"github.com/lukasdemani/searcher-app/internal/platform/errs"
	"github.com/lukasdemani/searcher-app/internal/platform/metrics"
)

// PageFetcher retrieves one snapshot page.
type PageFetcher interface {
	FetchPage(ctx context.Context, q api.Query) (*model.Page, error)
}

type PollerSettings struct {
	Interval time.Duration

	// Query returns the current server-side query. Called before every fetch.
	Query func() api.Query

	// Paused suppresses interval polls while it reports true. Triggered
	// fetches always run.
	Paused func() bool

	// OnFetch is called before every fetch.
	OnFetch func()
}

// Poller is the fallback live source. It fetches snapshots on demand and,
// while not paused, at a fixed interval. Fetches run one at a time.
type Poller struct {
	fetcher  PageFetcher
	settings PollerSettings
	logger   *slog.Logger

	updates chan model.Update
	trigger chan struct{}
}

func NewPoller(fetcher PageFetcher, settings PollerSettings, logger *slog.Logger) *Poller {
	if settings.Interval <= 0 {
		settings.Interval = 5 * time.Second
	}
	if settings.Query == nil {
		settings.Query = func() api.Query { return api.Query{Page: 1, Limit: 10} }
	}
	if settings.Paused == nil {
		settings.Paused = func() bool { return false }
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Poller{
		fetcher:  fetcher,
		settings: settings,
		logger:   logger.With("component", "poller"),
		updates:  make(chan model.Update, UpdateBufferSize),
		trigger:  make(chan struct{}, 1),
	}
}

func (p *Poller) Updates() <-chan model.Update {
	return p.updates
}

// Trigger requests an immediate fetch. Requests made while one is pending
// are coalesced.
func (p *Poller) Trigger() {
	select {
	case p.trigger <- struct{}{}:
	default:
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.settings.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.trigger:
			p.fetch(ctx)
		case <-ticker.C:
			if p.settings.Paused() {
				continue
			}
			p.fetch(ctx)
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	if p.settings.OnFetch != nil {
		p.settings.OnFetch()
	}

	q := p.settings.Query()
	page, err := p.fetcher.FetchPage(ctx, q)
	metrics.SnapshotsTotal.WithLabelValues(metrics.Result(err)).Inc()
	if ctx.Err() != nil {
		return
	}

	var u model.Update
	if err != nil {
		p.logger.Warn("snapshot fetch failed", "page", q.Page, "error", err)
		u.Err = &errs.AppError{Kind: errs.Fetch, Message: "Failed to fetch URLs", Cause: err}
	} else {
		u.Snapshot = page
	}

	select {
	case <-ctx.Done():
	case p.updates <- u:
	}
}
