// internal/triage/gateway_client.go
package triage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/Corphon/Diplomat/internal/errors"
	"github.com/Corphon/Diplomat/internal/models"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"
)

// GatewayClient calls POST /analyze on a moderation gateway.
type GatewayClient struct {
	baseURL string
	client  *http.Client
}

// NewGatewayClient creates a client for backendURL. timeout bounds each call; zero means none.
func NewGatewayClient(backendURL string, timeout time.Duration) *GatewayClient {
	return &GatewayClient{
		baseURL: strings.TrimRight(strings.TrimSpace(backendURL), "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Analyze submits req. Transport failures, non-2xx answers and payloads without a numeric
// toxicity are all errors.
func (g *GatewayClient) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode analysis request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/analyze", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Request-ID", uuid.New().String())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, apperrors.NewUpstreamError(err.Error(), 0, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.NewUpstreamError(err.Error(), resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := "Analysis failed"
		if gjson.ValidBytes(payload) {
			if msg := gjson.GetBytes(payload, "error").String(); msg != "" {
				message = msg
			}
		}
		return nil, apperrors.NewUpstreamError(message, resp.StatusCode, nil)
	}

	if !gjson.ValidBytes(payload) {
		return nil, apperrors.NewParseError("gateway response was not valid JSON", nil)
	}
	toxicity := gjson.GetBytes(payload, "toxicity")
	if toxicity.Type != gjson.Number {
		return nil, apperrors.NewParseError("gateway response missing toxicity score", nil)
	}

	return &models.AnalysisResult{
		Toxicity:      toxicity.Num,
		RewrittenText: gjson.GetBytes(payload, "rewrittenText").String(),
	}, nil
}
