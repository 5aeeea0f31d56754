// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config 存储网关配置
// LLM values are defaults only: a request may override each of them, and a missing value
// fails the request that needs it rather than startup.
type Config struct {
	Port       string
	LLMBaseURL string
	LLMModel   string
	LLMAPIKey  string
	LLMTimeout time.Duration
	LogDir     string
	LogLevel   string
	DebugMode  bool
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// .env is optional
	godotenv.Load()

	config := &Config{
		Port:       getEnv("PORT", "8787"),
		LLMBaseURL: NormalizeBaseURL(getEnv("LLM_BASE_URL", "")),
		LLMModel:   strings.TrimSpace(getEnv("LLM_MODEL", "")),
		LLMAPIKey:  strings.TrimSpace(getEnv("LLM_API_KEY", "")),
		LLMTimeout: getEnvDuration("LLM_API_TIMEOUT", 30*time.Second),
		LogDir:     getEnv("LOG_DIR", "logs"),
		LogLevel:   getEnv("LOG_LEVEL", "INFO"),
		DebugMode:  getEnvBool("DEBUG_MODE", false),
	}

	if config.LLMBaseURL == "" || config.LLMModel == "" {
		// 只记录警告，不返回错误
		log.Println("warning: LLM_BASE_URL or LLM_MODEL not set, requests must supply llmBaseUrl/llmModel")
	}

	return config, nil
}

// NormalizeBaseURL trims whitespace and trailing slashes.
func NormalizeBaseURL(baseURL string) string {
	return strings.TrimRight(strings.TrimSpace(baseURL), "/")
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvDuration parses a Go duration, keeping the default on error
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		log.Printf("warning: invalid %s=%q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
