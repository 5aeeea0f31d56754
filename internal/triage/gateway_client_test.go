package triage

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/Corphon/Diplomat/internal/errors"
	"github.com/Corphon/Diplomat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatewayClient_Success(t *testing.T) {
	var got models.AnalysisRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/analyze", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"toxicity":0.83,"rewrittenText":"Please reconsider."}`))
	}))
	defer srv.Close()

	threshold := 0.6
	client := NewGatewayClient(srv.URL+"/", time.Second)
	result, err := client.Analyze(context.Background(), models.AnalysisRequest{
		Text:      "some comment text",
		Threshold: &threshold,
		LLMModel:  "m",
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.83, result.Toxicity, 1e-9)
	assert.Equal(t, "Please reconsider.", result.RewrittenText)

	assert.Equal(t, "some comment text", got.Text)
	require.NotNil(t, got.Threshold)
	assert.InDelta(t, 0.6, *got.Threshold, 1e-9)
	assert.Equal(t, "m", got.LLMModel)
}

func TestGatewayClient_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
		check   func(error) bool
	}{
		{"error envelope", http.StatusInternalServerError, `{"error":"Missing LLM_MODEL"}`, "Missing LLM_MODEL", apperrors.IsUpstreamError},
		{"non-json error", http.StatusBadGateway, `<html>bad gateway</html>`, "Analysis failed", apperrors.IsUpstreamError},
		{"malformed success", http.StatusOK, `not json`, "gateway response was not valid JSON", apperrors.IsParseError},
		{"missing toxicity", http.StatusOK, `{"rewrittenText":""}`, "gateway response missing toxicity score", apperrors.IsParseError},
		{"string toxicity", http.StatusOK, `{"toxicity":"high"}`, "gateway response missing toxicity score", apperrors.IsParseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewGatewayClient(srv.URL, time.Second).Analyze(context.Background(), models.AnalysisRequest{Text: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.message, err.Error())
			assert.True(t, tt.check(err))
		})
	}
}

func TestGatewayClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewGatewayClient(url, time.Second).Analyze(context.Background(), models.AnalysisRequest{Text: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUpstreamError(err))
}
