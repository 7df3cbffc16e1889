package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lukasdemani/searcher-app/internal/api"
	"github.com/lukasdemani/searcher-app/internal/dashboard"
	"github.com/lukasdemani/searcher-app/internal/platform/config"
	"github.com/lukasdemani/searcher-app/internal/platform/logger"
	"github.com/lukasdemani/searcher-app/internal/view"
)

const version = "0.1.0"

const usage = `URL analysis dashboard.

Connection settings come from the environment: API_BASE_URL, WS_URL,
API_KEY, LOG_LEVEL, POLL_INTERVAL, PAGE_SIZE, METRICS_ADDR and friends.

Usage:
    dashboard watch [--search=<term>] [--status=<status>] [--sort=<field>] [--desc]
        [--page=<n>] [--page-size=<n>] [--filter=<field=value>...]
    dashboard add <url>
    dashboard analyze <id>...
    dashboard delete <id>...
    dashboard -h | --help
    dashboard --version

Options:
    -h --help                 Show this screen.
    --version                 Show version.
    --search=<term>           Global search term.
    --status=<status>         Only load records with this status.
    --sort=<field>            Sort column, e.g. title or broken_links_count.
    --desc                    Sort descending.
    --page=<n>                Page to show [default: 1].
    --page-size=<n>           Rows per page.
    --filter=<field=value>    Column filter, e.g. internal_links_count=>=10.`

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	client, err := api.NewClient(api.Options{
		BaseURL: cfg.APIBaseURL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.RequestTimeout,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	if watch, _ := opts.Bool("watch"); watch {
		return runWatch(cfg, client, log, opts)
	}

	session := dashboard.New(cfg, client, log, dashboard.WithNotifier(dashboard.NotifierFunc(printNotification)))
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	switch {
	case boolOpt(opts, "add"):
		raw, _ := opts.String("<url>")
		rec, err := session.Add(ctx, raw)
		if err != nil {
			return err
		}
		fmt.Printf("%d\t%s\t%s\n", rec.ID, rec.Status, rec.URL)
		return nil
	case boolOpt(opts, "analyze"):
		ids, err := parseIDs(opts)
		if err != nil {
			return err
		}
		if len(ids) == 1 {
			return session.Analyze(ctx, ids[0])
		}
		return session.BulkAnalyze(ctx, ids)
	case boolOpt(opts, "delete"):
		ids, err := parseIDs(opts)
		if err != nil {
			return err
		}
		if len(ids) == 1 {
			return session.Delete(ctx, ids[0])
		}
		return session.BulkDelete(ctx, ids)
	}
	return nil
}

func runWatch(cfg config.Config, client *api.Client, log *slog.Logger, opts docopt.Opts) error {
	// Notifications would tear the redrawn screen; keep them in the log.
	session := dashboard.New(cfg, client, log)
	if err := applyWatchOptions(session, opts); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := session.Start(ctx); err != nil {
		return err
	}
	defer session.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		exit := make(chan os.Signal, 1)
		signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(exit)
		select {
		case sig := <-exit:
			log.Info("signal caught", "sig", sig)
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	g.Go(func() error {
		r := newRenderer(os.Stdout)
		for {
			r.render(session)
			select {
			case <-ctx.Done():
				return nil
			case <-session.Changes():
			}
		}
	})

	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("serving metrics", "addr", cfg.MetricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func applyWatchOptions(session *dashboard.Session, opts docopt.Opts) error {
	if term, _ := opts.String("--search"); term != "" {
		session.SetSearch(term)
	}
	if status, _ := opts.String("--status"); status != "" {
		if err := session.SetStatusFilter(status); err != nil {
			return err
		}
	}
	if field, _ := opts.String("--sort"); field != "" {
		dir := view.Asc
		if boolOpt(opts, "--desc") {
			dir = view.Desc
		}
		if err := session.SetSort(view.Field(field), dir); err != nil {
			return err
		}
	}
	filters, _ := opts["--filter"].([]string)
	for _, f := range filters {
		field, value, ok := strings.Cut(f, "=")
		if !ok {
			return fmt.Errorf("invalid --filter %q: want field=value", f)
		}
		if err := session.SetFilter(view.Field(field), value); err != nil {
			return err
		}
	}

	// Settle search and filters first: committing them resets the page.
	session.FlushInput()

	if raw, _ := opts.String("--page-size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid --page-size %q: %w", raw, err)
		}
		if err := session.SetPageSize(n); err != nil {
			return err
		}
	}
	if raw, _ := opts.String("--page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid --page %q: %w", raw, err)
		}
		if err := session.SetPage(n); err != nil {
			return err
		}
	}
	return nil
}

func boolOpt(opts docopt.Opts, key string) bool {
	v, _ := opts.Bool(key)
	return v
}

func parseIDs(opts docopt.Opts) ([]int64, error) {
	raw, _ := opts["<id>"].([]string)
	ids := make([]int64, 0, len(raw))
	for _, s := range raw {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id < 1 {
			return nil, fmt.Errorf("invalid id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func printNotification(n dashboard.Notification) {
	if n.Level == dashboard.LevelError {
		fmt.Fprintln(os.Stderr, n.Message)
		return
	}
	fmt.Println(n.Message)
}
