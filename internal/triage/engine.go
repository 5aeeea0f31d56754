// internal/triage/engine.go
package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/Diplomat/internal/config"
	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
)

// record is the engine-side state of one comment.
type record struct {
	models.Comment
	actionLabel string // empty until the reveal action exists
}

// Engine decides the fate of every comment on a page: local skip, or remote analysis through a
// bounded work queue. It owns all comment records.
type Engine struct {
	page     Page
	analyzer Analyzer
	store    config.SettingsStore

	mu       sync.Mutex
	settings models.Settings
	comments map[models.CommentID]*record
	order    []models.CommentID

	queue   *WorkQueue
	ctx     context.Context
	metrics *utils.MetricsCollector
	logger  *utils.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	store          config.SettingsStore
	metrics        *utils.MetricsCollector
	maxConcurrency int
	ctx            context.Context
}

// WithSettingsStore persists SetEnabled through store.
func WithSettingsStore(store config.SettingsStore) Option {
	return func(o *engineOptions) { o.store = store }
}

// WithMetrics records engine metrics into collector.
func WithMetrics(collector *utils.MetricsCollector) Option {
	return func(o *engineOptions) { o.metrics = collector }
}

// WithMaxConcurrency overrides the in-flight ceiling.
func WithMaxConcurrency(n int) Option {
	return func(o *engineOptions) { o.maxConcurrency = n }
}

// WithContext sets the context remote analyses run under.
func WithContext(ctx context.Context) Option {
	return func(o *engineOptions) { o.ctx = ctx }
}

// NewEngine creates an engine for page. settings are read once here; only Enabled changes later.
func NewEngine(page Page, analyzer Analyzer, settings models.Settings, opts ...Option) *Engine {
	o := engineOptions{
		maxConcurrency: MaxConcurrency,
		ctx:            context.Background(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = utils.GetMetricsCollector()
	}

	e := &Engine{
		page:     page,
		analyzer: analyzer,
		store:    o.store,
		settings: settings,
		comments: make(map[models.CommentID]*record),
		ctx:      o.ctx,
		metrics:  o.metrics,
		logger:   utils.GetLogger(),
	}
	e.queue = NewWorkQueue(o.maxConcurrency, e.analyze, o.metrics)
	return e
}

// Enabled reports the current toggle state.
func (e *Engine) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings.Enabled
}

// Queue exposes the work queue.
func (e *Engine) Queue() *WorkQueue {
	return e.queue
}

// Scan processes up to MaxComments comments already on the page and returns how many were newly
// recorded. It does nothing while disabled.
func (e *Engine) Scan(ctx context.Context) int {
	e.mu.Lock()
	enabled := e.settings.Enabled
	limit := e.settings.MaxComments
	e.mu.Unlock()
	if !enabled {
		return 0
	}

	ids := e.page.Comments()
	if limit < len(ids) {
		if limit < 0 {
			limit = 0
		}
		ids = ids[:limit]
	}

	recorded := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if e.discover(id) {
			recorded++
		}
	}

	e.logger.Debug("initial scan finished", map[string]interface{}{
		"candidates": len(ids),
		"recorded":   recorded,
	})
	return recorded
}

// Watch consumes batches of newly appearing comments until feed closes or ctx ends.
// Batches that arrive while disabled are dropped.
func (e *Engine) Watch(ctx context.Context, feed <-chan []models.CommentID) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case batch, ok := <-feed:
			if !ok {
				return nil
			}
			if !e.Enabled() {
				continue
			}
			for _, id := range batch {
				e.discover(id)
			}
		}
	}
}

// discover classifies a comment seen for the first time. Known ids, unreadable handles and blank
// text are ignored. It reports whether a record was created.
func (e *Engine) discover(id models.CommentID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.settings.Enabled {
		return false
	}
	if _, seen := e.comments[id]; seen {
		return false
	}

	text, ok := e.page.Text(id)
	if !ok {
		return false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}

	decision := Classify(text)
	rec := &record{Comment: models.Comment{
		ID:           id,
		OriginalText: text,
		Status:       decision.status(),
	}}
	e.comments[id] = rec
	e.order = append(e.order, id)
	e.metrics.IncrementCounter("triage_classified_" + decision.String())

	if decision != Analyze {
		e.page.SetBadge(id, rec.Status)
		return true
	}

	e.queue.Enqueue(id)
	return true
}

// analyze runs on a queue slot: one remote call, then the verdict is applied.
func (e *Engine) analyze(id models.CommentID) {
	e.mu.Lock()
	rec, ok := e.comments[id]
	if !ok {
		e.mu.Unlock()
		return
	}
	threshold := e.settings.ToxicityThreshold
	req := models.AnalysisRequest{
		Text:       rec.OriginalText,
		Threshold:  &threshold,
		LLMBaseURL: e.settings.LLMBaseURL,
		LLMModel:   e.settings.LLMModel,
		LLMAPIKey:  e.settings.LLMAPIKey,
	}
	e.mu.Unlock()

	start := time.Now()
	result, err := e.analyzer.Analyze(e.ctx, req)
	e.metrics.IncrementCounter("triage_analyses_total")
	e.metrics.RecordHistogram("triage_analysis_ms", time.Since(start).Milliseconds())

	e.mu.Lock()
	defer e.mu.Unlock()

	if err == nil && result == nil {
		err = fmt.Errorf("empty analysis result")
	}
	if err != nil {
		rec.Status = models.StatusError
		rec.Error = err.Error()
		e.page.SetBadge(id, models.StatusError)
		e.metrics.IncrementCounter("triage_analysis_failures")
		e.logger.Warn("analysis failed", map[string]interface{}{
			"comment": id,
			"error":   err.Error(),
		})
		return
	}

	rec.Toxicity = result.Toxicity
	rec.RewrittenText = result.RewrittenText

	if result.Toxicity >= threshold {
		rec.Status = models.StatusToxic
		rec.actionLabel = RevealActionLabel
		// While disabled the text stays visible; SetEnabled(true) hides it.
		if e.settings.Enabled {
			e.page.SetObscured(id, true)
		}
		e.page.SetBadge(id, models.StatusToxic)
		e.page.SetRevealAction(id, rec.actionLabel, true)
		e.metrics.IncrementCounter("triage_toxic")
		return
	}

	rec.Status = heuristicStatus(rec.OriginalText)
	e.page.SetBadge(id, rec.Status)
}

// Reveal replaces a toxic comment with its rewrite. It is a no-op for unknown ids and for
// comments that are not toxic, including ones already revealed. It reports whether the comment
// changed.
func (e *Engine) Reveal(id models.CommentID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, ok := e.comments[id]
	if !ok || rec.Status != models.StatusToxic {
		return false
	}

	rewritten := strings.TrimSpace(rec.RewrittenText)
	if rewritten == "" {
		rewritten = FallbackRewrite
	}
	rec.RewrittenText = rewritten
	rec.Status = models.StatusRewritten
	rec.actionLabel = RevealedLabel

	if e.settings.Enabled {
		e.page.SetText(id, rewritten)
	}
	e.page.SetObscured(id, false)
	e.page.SetBadge(id, models.StatusRewritten)
	e.page.SetRevealAction(id, rec.actionLabel, false)
	e.metrics.IncrementCounter("triage_revealed")
	return true
}

// RevealAll reveals every toxic comment and returns how many changed.
func (e *Engine) RevealAll() int {
	revealed := 0
	for _, c := range e.Snapshot() {
		if c.Status == models.StatusToxic && e.Reveal(c.ID) {
			revealed++
		}
	}
	return revealed
}

// SetEnabled is the host's runtime toggle. It gates discovery and presentation only: queued and
// in-flight analyses carry on either way. Disabling restores every recorded comment's captured
// text. Enabling re-shows rewrites, hides toxic comments again and rescans the page. The new value
// is persisted when a settings store is configured.
func (e *Engine) SetEnabled(ctx context.Context, enabled bool) error {
	e.mu.Lock()
	e.settings.Enabled = enabled
	for _, id := range e.order {
		rec := e.comments[id]
		if rec == nil {
			continue
		}
		if enabled {
			switch {
			case rec.Status == models.StatusRewritten && rec.RewrittenText != "":
				e.page.SetText(id, rec.RewrittenText)
			case rec.Status == models.StatusToxic:
				e.page.SetObscured(id, true)
			}
			continue
		}
		e.page.SetText(id, rec.OriginalText)
		e.page.SetObscured(id, false)
		if rec.actionLabel != "" {
			e.page.SetRevealAction(id, rec.actionLabel, true)
		}
	}
	e.mu.Unlock()

	e.logger.Info("diplomat mode toggled", map[string]interface{}{
		"enabled": enabled,
	})

	var persistErr error
	if e.store != nil {
		if err := e.store.SetEnabled(enabled); err != nil {
			persistErr = fmt.Errorf("persist enabled=%t: %w", enabled, err)
		}
	}

	if enabled {
		e.Scan(ctx)
	}
	return persistErr
}

// Comment returns a copy of the record for id.
func (e *Engine) Comment(id models.CommentID) (models.Comment, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	rec, ok := e.comments[id]
	if !ok {
		return models.Comment{}, false
	}
	return rec.Comment, true
}

// Snapshot returns copies of all records in discovery order.
func (e *Engine) Snapshot() []models.Comment {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.Comment, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.comments[id].Comment)
	}
	return out
}

// Counts tallies records by status.
func (e *Engine) Counts() map[models.CommentStatus]int {
	counts := make(map[models.CommentStatus]int)
	for _, c := range e.Snapshot() {
		counts[c.Status]++
	}
	return counts
}

// SortedStatuses returns the keys of counts in a stable order for reporting.
func SortedStatuses(counts map[models.CommentStatus]int) []models.CommentStatus {
	statuses := make([]models.CommentStatus, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i] < statuses[j] })
	return statuses
}

// Wait blocks until the work queue is idle or ctx ends.
func (e *Engine) Wait(ctx context.Context) error {
	return e.queue.Wait(ctx)
}
