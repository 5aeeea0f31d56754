// cmd/server/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Corphon/Diplomat/internal/api"
	"github.com/Corphon/Diplomat/internal/config"
	"github.com/Corphon/Diplomat/internal/services"
	"github.com/Corphon/Diplomat/internal/utils"
	"github.com/gin-gonic/gin"
)

func main() {
	log.Println("🚀 启动 Diplomat 网关...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 2. 初始化日志
	logger := utils.GetLogger()
	logger.SetLogLevel(utils.ParseLogLevel(cfg.LogLevel))
	if err := utils.InitLogger(filepath.Join(cfg.LogDir, "gateway.log")); err != nil {
		log.Printf("⚠️ 日志文件不可用，仅输出到控制台: %v", err)
	}
	defer utils.CloseLogger()

	if cfg.DebugMode {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// 3. 组装服务
	metrics := utils.NewAPIMetrics()
	moderation := services.NewModerationService(cfg, metrics)
	router := api.SetupRouter(moderation, metrics)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	metrics.StartMetricsCollection(ctx, 5*time.Minute)

	logger.Info("gateway configured", map[string]interface{}{
		"port":        cfg.Port,
		"llm_model":   cfg.LLMModel,
		"llm_base":    cfg.LLMBaseURL,
		"llm_timeout": cfg.LLMTimeout.String(),
		"debug":       cfg.DebugMode,
	})
	log.Printf("🌐 Diplomat backend running on http://localhost:%s", cfg.Port)

	setupGracefulShutdown(router, cfg.Port)

	stop()
	logger.Info("final metrics", map[string]interface{}{
		"metrics": metrics.Collector().GetMetrics(),
	})
}

// 优雅关闭函数
func setupGracefulShutdown(router *gin.Engine, port string) {
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 在新的 goroutine 中启动服务器
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ 启动服务器失败: %v", err)
		}
	}()

	// 等待中断信号以进行优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ 服务器强制关闭: %v", err)
		return
	}

	log.Println("✅ 服务器优雅关闭完成")
}
