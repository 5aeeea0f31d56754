// internal/api/response_helpers.go
package api

import (
	"net/http"

	apperrors "github.com/Corphon/Diplomat/internal/errors"
	"github.com/Corphon/Diplomat/internal/models"
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/gin-gonic/gin"
)

// ResponseHelper 响应助手类
type ResponseHelper struct {
	logger *utils.Logger
}

// NewResponseHelper 创建响应助手
func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{logger: utils.GetLogger()}
}

// Analysis writes a verdict.
func (rh *ResponseHelper) Analysis(c *gin.Context, result *models.AnalysisResult) {
	c.JSON(http.StatusOK, result)
}

// Error writes the {error} envelope for err and logs its cause.
func (rh *ResponseHelper) Error(c *gin.Context, err error) {
	status := StatusForError(err)
	message := err.Error()
	if message == "" {
		message = MessageServerError
	}

	detail := message
	if appErr, ok := err.(*apperrors.AppError); ok {
		detail = appErr.Detail()
	}

	fields := map[string]interface{}{
		"request_id": getRequestID(c),
		"status":     status,
		"type":       apperrors.TypeOf(err),
		"error":      detail,
	}
	if status >= http.StatusInternalServerError {
		rh.logger.Error("analysis failed", fields)
	} else {
		rh.logger.Info("analysis rejected", fields)
	}

	rh.ErrorMessage(c, status, message)
}

// ErrorMessage writes {error: message} with the given status.
func (rh *ResponseHelper) ErrorMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, models.ErrorResponse{Error: message})
}

// NotFound 资源不存在
func (rh *ResponseHelper) NotFound(c *gin.Context) {
	rh.ErrorMessage(c, http.StatusNotFound, MessageNotFound)
}
