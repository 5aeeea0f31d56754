// internal/models/analysis.go
package models

// DefaultThreshold is applied when an analysis request omits its threshold.
const DefaultThreshold = 0.7

// AnalysisRequest is the body of POST /analyze.
type AnalysisRequest struct {
	Text       string   `json:"text"`                 // comment text, required
	Threshold  *float64 `json:"threshold,omitempty"`  // toxicity threshold, 0.7 when absent
	LLMBaseURL string   `json:"llmBaseUrl,omitempty"` // per-request override of LLM_BASE_URL
	LLMModel   string   `json:"llmModel,omitempty"`   // per-request override of LLM_MODEL
	LLMAPIKey  string   `json:"llmApiKey,omitempty"`  // per-request override of LLM_API_KEY
	Rewrite    bool     `json:"rewrite,omitempty"`    // always produce a rewrite, even below threshold
}

// ThresholdOrDefault returns the requested threshold or DefaultThreshold.
func (r *AnalysisRequest) ThresholdOrDefault() float64 {
	if r.Threshold == nil {
		return DefaultThreshold
	}
	return *r.Threshold
}

// AnalysisResult is the normalized verdict returned by the gateway.
// RewrittenText is empty when the comment is below threshold and no rewrite was requested.
type AnalysisResult struct {
	Toxicity      float64 `json:"toxicity"`
	RewrittenText string  `json:"rewrittenText"`
}

// ErrorResponse is the single failure envelope of the gateway.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LLMOverrides carries the optional upstream overrides a client forwards with each request.
type LLMOverrides struct {
	BaseURL string `json:"llmBaseUrl,omitempty"`
	Model   string `json:"llmModel,omitempty"`
	APIKey  string `json:"llmApiKey,omitempty"`
}
