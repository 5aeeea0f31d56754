// internal/services/moderation_service.go
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Corphon/Diplomat/internal/config"
	apperrors "github.com/Corphon/Diplomat/internal/errors"
	"github.com/Corphon/Diplomat/internal/llm"
	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
)

const (
	purposeAssess  = "assess"
	purposeRewrite = "rewrite"
)

const assessSystemPrompt = "You are a diplomatic editor. Assess toxicity and, if needed, rewrite " +
	"the comment to preserve the original feedback while removing insults, " +
	"profanity, and aggressive tone."

const rewriteSystemPrompt = "You are a diplomatic editor. Rewrite the comment to preserve the " +
	"original feedback while removing insults, profanity, and aggressive tone. " +
	"Reply with the rewritten comment only."

// Completer is the upstream chat-completion call.
type Completer interface {
	CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
	Model() string
}

// ModerationService turns one analysis request into a normalized verdict.
//
// Scoring is model-self-reported: a single chat completion returns
// {toxicity, rewrittenText} as JSON. A second plain-text call is made only when the caller asked
// for a rewrite and the assessment did not produce one.
type ModerationService struct {
	defaults   models.LLMOverrides
	httpClient *http.Client
	metrics    *utils.APIMetrics
	logger     *utils.Logger

	// newCompleter builds the upstream client for a resolved configuration.
	newCompleter func(baseURL, model, apiKey string) Completer
}

// NewModerationService creates the service from gateway configuration.
func NewModerationService(cfg *config.Config, metrics *utils.APIMetrics) *ModerationService {
	if metrics == nil {
		metrics = utils.NewAPIMetrics()
	}
	timeout := cfg.LLMTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &ModerationService{
		defaults: models.LLMOverrides{
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
			APIKey:  cfg.LLMAPIKey,
		},
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     utils.GetLogger(),
	}
	s.newCompleter = func(baseURL, model, apiKey string) Completer {
		return llm.NewClientWithHTTP(baseURL, model, apiKey, s.httpClient)
	}
	return s
}

// resolveCompleter applies per-request overrides over process defaults.
func (s *ModerationService) resolveCompleter(overrides models.LLMOverrides) (Completer, error) {
	baseURL := config.NormalizeBaseURL(firstNonEmpty(overrides.BaseURL, s.defaults.BaseURL))
	model := strings.TrimSpace(firstNonEmpty(overrides.Model, s.defaults.Model))
	apiKey := strings.TrimSpace(firstNonEmpty(overrides.APIKey, s.defaults.APIKey))

	if baseURL == "" {
		return nil, apperrors.NewConfigurationError("Missing LLM_BASE_URL")
	}
	if model == "" {
		return nil, apperrors.NewConfigurationError("Missing LLM_MODEL")
	}
	return s.newCompleter(baseURL, model, apiKey), nil
}

// Analyze scores req.Text and, when warranted, returns a de-escalated rewrite.
func (s *ModerationService) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperrors.NewValidationError("Missing text", nil)
	}
	threshold := req.ThresholdOrDefault()

	completer, err := s.resolveCompleter(models.LLMOverrides{
		BaseURL: req.LLMBaseURL,
		Model:   req.LLMModel,
		APIKey:  req.LLMAPIKey,
	})
	if err != nil {
		s.metrics.RecordError(string(apperrors.TypeOf(err)), "moderation")
		return nil, err
	}

	verdict, err := s.assess(ctx, completer, text, threshold)
	if err != nil {
		s.metrics.RecordError(string(apperrors.TypeOf(err)), "moderation")
		return nil, err
	}

	result := &models.AnalysisResult{
		Toxicity:      verdict.Toxicity,
		RewrittenText: verdict.RewrittenText,
	}

	if req.Rewrite && result.RewrittenText == "" {
		rewritten, err := s.rewrite(ctx, completer, text)
		if err != nil {
			s.metrics.RecordError(string(apperrors.TypeOf(err)), "moderation")
			return nil, err
		}
		result.RewrittenText = rewritten
	}

	if result.Toxicity < threshold && !req.Rewrite {
		result.RewrittenText = ""
	}

	s.logger.Debug("analysis completed", map[string]interface{}{
		"model":      completer.Model(),
		"toxicity":   result.Toxicity,
		"threshold":  threshold,
		"rewrite":    req.Rewrite,
		"rewritten":  result.RewrittenText != "",
		"text_runes": len([]rune(text)),
	})
	return result, nil
}

func (s *ModerationService) assess(ctx context.Context, completer Completer, text string, threshold float64) (*assessment, error) {
	resp, err := s.complete(ctx, completer, purposeAssess, llm.CompletionRequest{
		SystemPrompt: assessSystemPrompt,
		Prompt:       buildAssessPrompt(text, threshold),
	})
	if err != nil {
		return nil, err
	}
	return parseAssessment(resp.Text)
}

func (s *ModerationService) rewrite(ctx context.Context, completer Completer, text string) (string, error) {
	resp, err := s.complete(ctx, completer, purposeRewrite, llm.CompletionRequest{
		SystemPrompt: rewriteSystemPrompt,
		Prompt:       "Comment: " + text,
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

// complete wraps one upstream call with metrics.
func (s *ModerationService) complete(ctx context.Context, completer Completer, purpose string, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	req.Temperature = llm.DefaultTemperature

	start := time.Now()
	resp, err := completer.CompleteText(ctx, req)
	tokens := 0
	if resp != nil {
		tokens = resp.TokensUsed
	}
	s.metrics.RecordLLMRequest(completer.Model(), purpose, tokens, time.Since(start), err)

	if err != nil {
		if apperrors.TypeOf(err) == "internal_error" {
			return nil, apperrors.NewUpstreamError(err.Error(), 0, err)
		}
		return nil, err
	}
	return resp, nil
}

func buildAssessPrompt(text string, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Comment: %s\n", text)
	fmt.Fprintf(&b, "Toxicity threshold: %g\n", threshold)
	b.WriteString("Return only valid JSON with this shape:\n")
	b.WriteString(`{ "toxicity": number, "rewrittenText": string }` + "\n")
	b.WriteString("If toxicity is below the threshold, return rewrittenText as an empty string. ")
	b.WriteString("If the comment is only an insult with no feedback, set rewrittenText to ")
	b.WriteString(`"Non-constructive criticism."`)
	return b.String()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
