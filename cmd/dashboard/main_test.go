package main

import (
	"testing"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/lukasdemani/searcher-app/internal/api"
	"github.com/lukasdemani/searcher-app/internal/dashboard"
	"github.com/lukasdemani/searcher-app/internal/platform/config"
	"github.com/lukasdemani/searcher-app/internal/view"
)

func TestApplyWatchOptions_PageSurvivesSearchAndFilters(t *testing.T) {
	opts, err := docopt.ParseArgs(usage, []string{
		"watch", "--search=site", "--filter=title=x", "--filter=internal_links_count=>=3",
		"--sort=title", "--desc", "--page-size=5", "--page=2",
	}, version)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}

	cfg := config.Config{
		APIBaseURL:     "http://127.0.0.1:1/api",
		WSURL:          "ws://127.0.0.1:1/ws",
		PageSize:       10,
		PollInterval:   time.Second,
		DebounceWindow: 300 * time.Millisecond,
	}
	client, err := api.NewClient(api.Options{BaseURL: cfg.APIBaseURL})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	session := dashboard.New(cfg, client, nil)
	defer session.Close()

	if err := applyWatchOptions(session, opts); err != nil {
		t.Fatalf("applyWatchOptions: %v", err)
	}
	// Outlast the debounce window: nothing staged may reset the page later.
	time.Sleep(2 * cfg.DebounceWindow)

	p := session.Params()
	if p.Page != 2 || p.PageSize != 5 {
		t.Errorf("page = %d size = %d, want 2 and 5", p.Page, p.PageSize)
	}
	if p.Search != "site" {
		t.Errorf("search = %q, want %q", p.Search, "site")
	}
	if p.Filters[view.FieldTitle] != "x" || p.Filters[view.FieldInternalLinksCount] != ">=3" {
		t.Errorf("filters = %v", p.Filters)
	}
	if p.SortField != view.FieldTitle || p.SortDirection != view.Desc {
		t.Errorf("sort = %s %s", p.SortField, p.SortDirection)
	}
}

func TestApplyWatchOptions_RejectsBadFilter(t *testing.T) {
	opts, err := docopt.ParseArgs(usage, []string{"watch", "--filter=title"}, version)
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	client, err := api.NewClient(api.Options{BaseURL: "http://127.0.0.1:1/api"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	session := dashboard.New(config.Config{PageSize: 10}, client, nil)
	defer session.Close()

	if err := applyWatchOptions(session, opts); err == nil {
		t.Error("expected an error for a filter without '='")
	}
}
