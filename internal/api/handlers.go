// internal/api/handlers.go
package api

import (
	"context"
	"errors"
	"io"

	"github.com/Corphon/Diplomat/internal/models"
	"github.com/gin-gonic/gin"
)

// Analyzer produces a verdict for one analysis request.
type Analyzer interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.AnalysisResult, error)
}

// Handler 处理API请求
type Handler struct {
	analyzer Analyzer
	response *ResponseHelper
}

// NewHandler 创建API处理器
func NewHandler(analyzer Analyzer) *Handler {
	return &Handler{
		analyzer: analyzer,
		response: NewResponseHelper(),
	}
}

// Analyze handles POST /analyze.
//
// The toxicity score is reported by the configured chat model itself. An empty body counts as {}
// and a malformed one is a 500 carrying the decoder message.
func (h *Handler) Analyze(c *gin.Context) {
	var req models.AnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.response.ErrorMessage(c, StatusForError(err), err.Error())
		return
	}

	result, err := h.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		h.response.Error(c, err)
		return
	}

	h.response.Analysis(c, result)
}

// NotFound handles every other method and path.
func (h *Handler) NotFound(c *gin.Context) {
	h.response.NotFound(c)
}
