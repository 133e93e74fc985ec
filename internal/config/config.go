// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// LINE WORKS
	DomainID         string
	WorksAPIBaseURL  string
	WorksAuthBaseURL string

	// IFTTT
	IFTTTBaseURL string

	// Poller
	PollInterval time.Duration
	PollWindow   time.Duration

	// HTTP
	HTTPTimeout time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitSubmit  int

	// Server
	ServerPort string
}

const (
	defaultWorksAPIBaseURL  = "https://www.worksapis.com/v1.0"
	defaultWorksAuthBaseURL = "https://auth.worksmobile.com/oauth2/v2.0"
	defaultIFTTTBaseURL     = "https://maker.ifttt.com"
)

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.DomainID = os.Getenv("DOMAIN_ID")
	if cfg.DomainID == "" {
		missing = append(missing, "DOMAIN_ID")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.WorksAPIBaseURL = getEnvString("WORKS_API_BASE_URL", defaultWorksAPIBaseURL)
	cfg.WorksAuthBaseURL = getEnvString("WORKS_AUTH_BASE_URL", defaultWorksAuthBaseURL)
	cfg.IFTTTBaseURL = getEnvString("IFTTT_BASE_URL", defaultIFTTTBaseURL)
	cfg.PollInterval = getEnvDuration("POLL_INTERVAL", 5*time.Minute)
	cfg.PollWindow = getEnvDuration("POLL_WINDOW", 5*time.Minute)
	cfg.HTTPTimeout = getEnvDuration("HTTP_TIMEOUT", 10*time.Second)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSubmit = getEnvInt("RATE_LIMIT_SUBMIT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
