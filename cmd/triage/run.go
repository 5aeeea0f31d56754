// cmd/triage/run.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Corphon/Diplomat/internal/config"
	"github.com/Corphon/Diplomat/internal/feed"
	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/services"
	"github.com/Corphon/Diplomat/internal/terminal"
	"github.com/Corphon/Diplomat/internal/triage"
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

type runOptions struct {
	input     string
	feedURL   string
	revealAll bool
	direct    bool
	timeout   time.Duration
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Triage a page of comments",
		Example: `  triage run --input comments.jsonl
  triage run --input comments.jsonl --feed ws://localhost:9000/comments --reveal-all`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTriage(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "JSON-lines file of {\"id\",\"text\"} comments (- for stdin)")
	cmd.Flags().StringVar(&opts.feedURL, "feed", "", "live discovery feed: ws:// or wss:// URL, or a JSON-lines file")
	cmd.Flags().BoolVar(&opts.revealAll, "reveal-all", false, "reveal the rewrite of every toxic comment before printing")
	cmd.Flags().BoolVar(&opts.direct, "direct", false, "analyze in-process with LLM_* settings instead of calling the gateway")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "per-comment analysis timeout")
	cmd.MarkFlagRequired("input")

	return cmd
}

func runTriage(cmd *cobra.Command, root *rootOptions, opts *runOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := root.store()
	settings, err := store.Load()
	if err != nil {
		return err
	}

	page := terminal.NewPage()
	items, err := readInput(cmd.InOrStdin(), opts.input)
	if err != nil {
		return err
	}
	for _, item := range items {
		page.Add(item.ID, item.Text)
	}

	analyzer, err := newAnalyzer(settings, opts)
	if err != nil {
		return err
	}

	metrics := utils.NewMetricsCollector()
	engine := triage.NewEngine(page, analyzer, settings,
		triage.WithSettingsStore(store),
		triage.WithMetrics(metrics),
		triage.WithContext(ctx),
	)

	out := cmd.OutOrStdout()
	if !settings.Enabled {
		fmt.Fprintln(out, "Diplomat mode is disabled; run `triage settings enable` to analyze comments.")
	}

	engine.Scan(ctx)

	if opts.feedURL != "" {
		source, closeSource, err := openFeed(opts.feedURL, page)
		if err != nil {
			return err
		}
		defer closeSource()

		batches := make(chan []models.CommentID)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			defer close(batches)
			return source.Run(gctx, batches)
		})
		g.Go(func() error {
			return engine.Watch(gctx, batches)
		})
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}

	if err := engine.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for analyses: %w", err)
	}

	if opts.revealAll {
		engine.RevealAll()
	}

	page.Render(out)
	printSummary(out, engine, metrics)
	return nil
}

func readInput(stdin io.Reader, path string) ([]feed.Item, error) {
	if path == "-" {
		return feed.ReadLines(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return feed.ReadLines(f)
}

func newAnalyzer(settings models.Settings, opts *runOptions) (triage.Analyzer, error) {
	if !opts.direct {
		return triage.NewGatewayClient(settings.BackendURL, opts.timeout), nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if opts.timeout > 0 {
		cfg.LLMTimeout = opts.timeout
	}
	return services.NewModerationService(cfg, nil), nil
}

func openFeed(target string, sink feed.Sink) (feed.Source, func(), error) {
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		return feed.NewWebSocketFeed(target, sink), func() {}, nil
	}
	f, err := os.Open(target)
	if err != nil {
		return nil, nil, fmt.Errorf("open feed: %w", err)
	}
	return feed.NewLinesFeed(f, sink), func() { f.Close() }, nil
}

func printSummary(w io.Writer, engine *triage.Engine, metrics *utils.MetricsCollector) {
	counts := engine.Counts()
	parts := make([]string, 0, len(counts))
	for _, status := range triage.SortedStatuses(counts) {
		parts = append(parts, fmt.Sprintf("%s=%d", status, counts[status]))
	}
	fmt.Fprintf(w, "\n%d comments: %s\n", len(engine.Snapshot()), strings.Join(parts, " "))
	fmt.Fprintf(w, "remote analyses: %d (failed %d)\n",
		metrics.GetCounterValue("triage_analyses_total"),
		metrics.GetCounterValue("triage_analysis_failures"))
}
