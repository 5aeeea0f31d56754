package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeComment struct {
	text        string
	badge       models.CommentStatus
	obscured    bool
	actionLabel string
	actionOn    bool
	textReads   int
}

// fakePage is an in-memory Page.
type fakePage struct {
	mu       sync.Mutex
	order    []models.CommentID
	comments map[models.CommentID]*fakeComment
}

func newFakePage() *fakePage {
	return &fakePage{comments: make(map[models.CommentID]*fakeComment)}
}

func (p *fakePage) add(id models.CommentID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.order = append(p.order, id)
	p.comments[id] = &fakeComment{text: text}
}

func (p *fakePage) get(id models.CommentID) fakeComment {
	p.mu.Lock()
	defer p.mu.Unlock()
	return *p.comments[id]
}

func (p *fakePage) Comments() []models.CommentID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.CommentID(nil), p.order...)
}

func (p *fakePage) Text(id models.CommentID) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.comments[id]
	if !ok {
		return "", false
	}
	c.textReads++
	return c.text, true
}

func (p *fakePage) SetText(id models.CommentID, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments[id].text = text
}

func (p *fakePage) SetBadge(id models.CommentID, status models.CommentStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments[id].badge = status
}

func (p *fakePage) SetObscured(id models.CommentID, obscured bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments[id].obscured = obscured
}

func (p *fakePage) SetRevealAction(id models.CommentID, label string, enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.comments[id].actionLabel = label
	p.comments[id].actionOn = enabled
}

type verdict struct {
	result *models.AnalysisResult
	err    error
}

// fakeAnalyzer answers by comment text and records every request.
type fakeAnalyzer struct {
	mu       sync.Mutex
	verdicts map[string]verdict
	requests []models.AnalysisRequest
	gate     chan struct{}
}

func newFakeAnalyzer() *fakeAnalyzer {
	return &fakeAnalyzer{verdicts: make(map[string]verdict)}
}

func (a *fakeAnalyzer) on(text string, toxicity float64, rewrite string) {
	a.verdicts[text] = verdict{result: &models.AnalysisResult{Toxicity: toxicity, RewrittenText: rewrite}}
}

func (a *fakeAnalyzer) fail(text string, err error) {
	a.verdicts[text] = verdict{err: err}
}

func (a *fakeAnalyzer) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	a.mu.Lock()
	a.requests = append(a.requests, req)
	v, ok := a.verdicts[req.Text]
	gate := a.gate
	a.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if !ok {
		return &models.AnalysisResult{Toxicity: 0}, nil
	}
	return v.result, v.err
}

func (a *fakeAnalyzer) requestCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.requests)
}

type fakeStore struct {
	mu      sync.Mutex
	enabled []bool
	err     error
}

func (s *fakeStore) Load() (models.Settings, error) { return models.DefaultSettings(), nil }

func (s *fakeStore) SetEnabled(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = append(s.enabled, enabled)
	return s.err
}

const (
	toxicText   = "You are an idiot and this video is garbage, wrong on every point"
	calmText    = "I think the second half of the argument misses some context"
	praiseShort = "Great video, thanks!"
	tinyText    = "ok sure"
)

func newTestEngine(page Page, analyzer Analyzer, opts ...Option) *Engine {
	opts = append([]Option{WithMetrics(utils.NewMetricsCollector())}, opts...)
	return NewEngine(page, analyzer, models.DefaultSettings(), opts...)
}

func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, e.Wait(ctx))
}

func TestEngine_ScanClassifiesAndAnalyzes(t *testing.T) {
	page := newFakePage()
	page.add("toxic", toxicText)
	page.add("calm", calmText)
	page.add("praise", praiseShort)
	page.add("tiny", tinyText)

	analyzer := newFakeAnalyzer()
	analyzer.on(toxicText, 0.92, "I disagree with most points in this video.")
	analyzer.on(calmText, 0.1, "")

	e := newTestEngine(page, analyzer)
	assert.Equal(t, 4, e.Scan(context.Background()))
	waitIdle(t, e)

	assert.Equal(t, 2, analyzer.requestCount(), "only undecided comments go remote")

	c, ok := e.Comment("toxic")
	require.True(t, ok)
	assert.Equal(t, models.StatusToxic, c.Status)
	assert.InDelta(t, 0.92, c.Toxicity, 1e-9)
	assert.Equal(t, toxicText, page.get("toxic").text, "rewrite is not shown automatically")
	assert.True(t, page.get("toxic").obscured)
	assert.Equal(t, models.StatusToxic, page.get("toxic").badge)
	assert.Equal(t, RevealActionLabel, page.get("toxic").actionLabel)
	assert.True(t, page.get("toxic").actionOn)

	c, _ = e.Comment("calm")
	assert.Equal(t, models.StatusNeutral, c.Status)
	c, _ = e.Comment("praise")
	assert.Equal(t, models.StatusPositive, c.Status)
	c, _ = e.Comment("tiny")
	assert.Equal(t, models.StatusNeutral, c.Status)
}

func TestEngine_RequestCarriesSettings(t *testing.T) {
	page := newFakePage()
	page.add("a", calmText)
	analyzer := newFakeAnalyzer()

	settings := models.DefaultSettings()
	settings.ToxicityThreshold = 0.55
	settings.LLMBaseURL = "http://llm.local/v1"
	settings.LLMModel = "tiny"
	settings.LLMAPIKey = "k"
	e := NewEngine(page, analyzer, settings, WithMetrics(utils.NewMetricsCollector()))

	e.Scan(context.Background())
	waitIdle(t, e)

	require.Equal(t, 1, analyzer.requestCount())
	req := analyzer.requests[0]
	assert.Equal(t, calmText, req.Text)
	require.NotNil(t, req.Threshold)
	assert.InDelta(t, 0.55, *req.Threshold, 1e-9)
	assert.Equal(t, "http://llm.local/v1", req.LLMBaseURL)
	assert.Equal(t, "tiny", req.LLMModel)
	assert.Equal(t, "k", req.LLMAPIKey)
	assert.False(t, req.Rewrite)
}

func TestEngine_FailureMarksError(t *testing.T) {
	page := newFakePage()
	page.add("a", calmText)
	analyzer := newFakeAnalyzer()
	analyzer.fail(calmText, errors.New("connection refused"))

	e := newTestEngine(page, analyzer)
	e.Scan(context.Background())
	waitIdle(t, e)

	c, _ := e.Comment("a")
	assert.Equal(t, models.StatusError, c.Status)
	assert.Equal(t, "connection refused", c.Error)
	assert.Equal(t, models.StatusError, page.get("a").badge)

	// no retry on rescan
	e.Scan(context.Background())
	waitIdle(t, e)
	assert.Equal(t, 1, analyzer.requestCount())
}

func TestEngine_LongPraiseBelowThresholdIsPositive(t *testing.T) {
	text := "Thanks for the upload. I have to say though that the audio mixing in the middle section was hard to follow"
	page := newFakePage()
	page.add("a", text)
	analyzer := newFakeAnalyzer()
	analyzer.on(text, 0.2, "")

	e := newTestEngine(page, analyzer)
	e.Scan(context.Background())
	waitIdle(t, e)

	require.Equal(t, 1, analyzer.requestCount())
	c, _ := e.Comment("a")
	assert.Equal(t, models.StatusPositive, c.Status)
}

func TestEngine_ThresholdIsInclusive(t *testing.T) {
	page := newFakePage()
	page.add("a", calmText)
	analyzer := newFakeAnalyzer()
	analyzer.on(calmText, models.DefaultThreshold, "")

	e := newTestEngine(page, analyzer)
	e.Scan(context.Background())
	waitIdle(t, e)

	c, _ := e.Comment("a")
	assert.Equal(t, models.StatusToxic, c.Status)
}

func TestEngine_Dedup(t *testing.T) {
	page := newFakePage()
	page.add("a", toxicText)
	analyzer := newFakeAnalyzer()

	e := newTestEngine(page, analyzer)
	assert.Equal(t, 1, e.Scan(context.Background()))
	waitIdle(t, e)

	// the page text changes, but the captured text never is re-read
	page.SetText("a", "something else entirely, long enough to analyze")
	assert.Equal(t, 0, e.Scan(context.Background()))

	feed := make(chan []models.CommentID, 1)
	feed <- []models.CommentID{"a"}
	close(feed)
	require.NoError(t, e.Watch(context.Background(), feed))
	waitIdle(t, e)

	assert.Equal(t, 1, analyzer.requestCount())
	assert.Equal(t, 1, page.get("a").textReads)
	c, _ := e.Comment("a")
	assert.Equal(t, toxicText, c.OriginalText)
}

func TestEngine_ScanRespectsMaxComments(t *testing.T) {
	page := newFakePage()
	page.add("a", tinyText)
	page.add("b", tinyText)
	page.add("c", tinyText)

	settings := models.DefaultSettings()
	settings.MaxComments = 2
	e := NewEngine(page, newFakeAnalyzer(), settings, WithMetrics(utils.NewMetricsCollector()))

	assert.Equal(t, 2, e.Scan(context.Background()))
	_, ok := e.Comment("c")
	assert.False(t, ok)
}

func TestEngine_SkipsBlankAndMissing(t *testing.T) {
	page := newFakePage()
	page.add("blank", "   ")

	e := newTestEngine(page, newFakeAnalyzer())
	assert.Equal(t, 0, e.Scan(context.Background()))

	feed := make(chan []models.CommentID, 1)
	feed <- []models.CommentID{"gone"}
	close(feed)
	require.NoError(t, e.Watch(context.Background(), feed))
	assert.Empty(t, e.Snapshot())
}

func TestEngine_Reveal(t *testing.T) {
	page := newFakePage()
	page.add("a", toxicText)
	analyzer := newFakeAnalyzer()
	analyzer.on(toxicText, 0.9, "  I disagree with the points made here.  ")

	e := newTestEngine(page, analyzer)
	e.Scan(context.Background())
	waitIdle(t, e)

	require.True(t, e.Reveal("a"))
	after := page.get("a")
	assert.Equal(t, "I disagree with the points made here.", after.text)
	assert.False(t, after.obscured)
	assert.Equal(t, models.StatusRewritten, after.badge)
	assert.Equal(t, RevealedLabel, after.actionLabel)
	assert.False(t, after.actionOn)

	// idempotent
	assert.False(t, e.Reveal("a"))
	assert.Equal(t, after, page.get("a"))
	c, _ := e.Comment("a")
	assert.Equal(t, models.StatusRewritten, c.Status)
}

func TestEngine_RevealFallback(t *testing.T) {
	page := newFakePage()
	page.add("a", toxicText)
	analyzer := newFakeAnalyzer()
	analyzer.on(toxicText, 0.95, "")

	e := newTestEngine(page, analyzer)
	e.Scan(context.Background())
	waitIdle(t, e)

	require.True(t, e.Reveal("a"))
	assert.Equal(t, FallbackRewrite, page.get("a").text)
}

func TestEngine_RevealIgnoresNonToxic(t *testing.T) {
	page := newFakePage()
	page.add("a", tinyText)

	e := newTestEngine(page, newFakeAnalyzer())
	e.Scan(context.Background())

	assert.False(t, e.Reveal("a"))
	assert.False(t, e.Reveal("unknown"))
	assert.Equal(t, tinyText, page.get("a").text)
}

func TestEngine_ToggleRoundTrip(t *testing.T) {
	page := newFakePage()
	page.add("toxic", toxicText)
	page.add("revealed", toxicText+" again")
	page.add("calm", calmText)
	page.add("tiny", tinyText)

	analyzer := newFakeAnalyzer()
	analyzer.on(toxicText, 0.9, "rewrite one")
	analyzer.on(toxicText+" again", 0.9, "rewrite two")

	store := &fakeStore{}
	e := newTestEngine(page, analyzer, WithSettingsStore(store))
	e.Scan(context.Background())
	waitIdle(t, e)
	require.True(t, e.Reveal("revealed"))

	require.NoError(t, e.SetEnabled(context.Background(), false))
	assert.False(t, e.Enabled())
	assert.Equal(t, toxicText, page.get("toxic").text)
	assert.False(t, page.get("toxic").obscured)
	assert.True(t, page.get("toxic").actionOn)
	assert.Equal(t, toxicText+" again", page.get("revealed").text)
	assert.True(t, page.get("revealed").actionOn, "disabling re-enables the action")

	require.NoError(t, e.SetEnabled(context.Background(), true))
	assert.Equal(t, "rewrite two", page.get("revealed").text)
	assert.False(t, page.get("revealed").obscured)
	assert.Equal(t, toxicText, page.get("toxic").text)
	assert.True(t, page.get("toxic").obscured, "toxic text is hidden again")
	assert.Equal(t, calmText, page.get("calm").text)
	assert.Equal(t, tinyText, page.get("tiny").text)

	assert.Equal(t, []bool{false, true}, store.enabled)
	assert.Equal(t, 3, analyzer.requestCount(), "toggling does not re-analyze")
}

func TestEngine_ToggleIsIdempotent(t *testing.T) {
	e := newTestEngine(newFakePage(), newFakeAnalyzer())
	require.NoError(t, e.SetEnabled(context.Background(), false))
	require.NoError(t, e.SetEnabled(context.Background(), false))
	require.NoError(t, e.SetEnabled(context.Background(), true))
	require.NoError(t, e.SetEnabled(context.Background(), true))
	assert.True(t, e.Enabled())
}

func TestEngine_DisabledIgnoresDiscoveryAndRescansOnEnable(t *testing.T) {
	page := newFakePage()
	e := newTestEngine(page, newFakeAnalyzer())
	require.NoError(t, e.SetEnabled(context.Background(), false))

	page.add("late", tinyText)
	feed := make(chan []models.CommentID, 1)
	feed <- []models.CommentID{"late"}
	close(feed)
	require.NoError(t, e.Watch(context.Background(), feed))
	assert.Equal(t, 0, e.Scan(context.Background()))
	_, ok := e.Comment("late")
	assert.False(t, ok)

	require.NoError(t, e.SetEnabled(context.Background(), true))
	c, ok := e.Comment("late")
	require.True(t, ok)
	assert.Equal(t, models.StatusNeutral, c.Status)
}

func TestEngine_DisableDoesNotCancelInFlight(t *testing.T) {
	page := newFakePage()
	page.add("a", toxicText)
	analyzer := newFakeAnalyzer()
	analyzer.on(toxicText, 0.9, "calmer")
	analyzer.gate = make(chan struct{})

	e := newTestEngine(page, analyzer)
	e.Scan(context.Background())
	require.Eventually(t, func() bool { return analyzer.requestCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, e.SetEnabled(context.Background(), false))
	close(analyzer.gate)
	waitIdle(t, e)

	c, _ := e.Comment("a")
	assert.Equal(t, models.StatusToxic, c.Status)
	assert.Equal(t, toxicText, page.get("a").text)
	assert.False(t, page.get("a").obscured, "no obscuring while disabled")
	assert.True(t, page.get("a").actionOn)

	require.NoError(t, e.SetEnabled(context.Background(), true))
	assert.True(t, page.get("a").obscured)
	assert.Equal(t, models.StatusToxic, page.get("a").badge)
	assert.Equal(t, toxicText, page.get("a").text)
}

func TestEngine_QueuedWorkContinuesWhileDisabled(t *testing.T) {
	page := newFakePage()
	page.add("a", toxicText+" 1")
	page.add("b", toxicText+" 2")
	page.add("c", toxicText+" 3")
	analyzer := newFakeAnalyzer()
	analyzer.gate = make(chan struct{})

	e := newTestEngine(page, analyzer, WithMaxConcurrency(2))
	e.Scan(context.Background())
	require.Eventually(t, func() bool { return analyzer.requestCount() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, e.Queue().Len())

	require.NoError(t, e.SetEnabled(context.Background(), false))
	close(analyzer.gate)
	waitIdle(t, e)

	assert.Equal(t, 3, analyzer.requestCount())
	assert.Equal(t, 0, e.Queue().Len())
	c, ok := e.Comment("c")
	require.True(t, ok)
	assert.Equal(t, models.StatusNeutral, c.Status)
}

func TestEngine_PersistErrorIsReported(t *testing.T) {
	store := &fakeStore{err: errors.New("read-only")}
	e := newTestEngine(newFakePage(), newFakeAnalyzer(), WithSettingsStore(store))

	err := e.SetEnabled(context.Background(), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read-only")
	assert.False(t, e.Enabled(), "the toggle still applies")
}

func TestEngine_WatchStopsOnContext(t *testing.T) {
	e := newTestEngine(newFakePage(), newFakeAnalyzer())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.Watch(ctx, make(chan []models.CommentID)), context.Canceled)
}

func TestEngine_CountsAndRevealAll(t *testing.T) {
	page := newFakePage()
	page.add("a", toxicText)
	page.add("b", tinyText)
	analyzer := newFakeAnalyzer()
	analyzer.on(toxicText, 0.8, "")

	e := newTestEngine(page, analyzer)
	e.Scan(context.Background())
	waitIdle(t, e)

	assert.Equal(t, map[models.CommentStatus]int{models.StatusToxic: 1, models.StatusNeutral: 1}, e.Counts())
	assert.Equal(t, 1, e.RevealAll())
	assert.Equal(t, 0, e.RevealAll())
	assert.Equal(t, []models.CommentStatus{models.StatusNeutral, models.StatusRewritten}, SortedStatuses(e.Counts()))
}
