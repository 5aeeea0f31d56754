// internal/api/router.go
package api

import (
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/gin-gonic/gin"
)

// SetupRouter 配置HTTP路由
func SetupRouter(analyzer Analyzer, metrics *utils.APIMetrics) *gin.Engine {
	if metrics == nil {
		metrics = utils.NewAPIMetrics()
	}
	handler := NewHandler(analyzer)

	r := gin.New()
	// /analyze/ is a different path, not a redirect
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.HandleMethodNotAllowed = true

	r.Use(requestIDMiddleware())
	r.Use(loggerMiddleware(metrics))
	r.Use(recoveryMiddleware(handler.response))

	// 启用CORS
	r.Use(browserCORS())
	r.Use(corsMiddleware())

	r.POST("/analyze", handler.Analyze)

	r.NoRoute(handler.NotFound)
	r.NoMethod(handler.NotFound)

	return r
}
