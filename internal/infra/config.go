package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv         string
	Port           string
	DatabaseURL    string
	StoragePath    string
	StorageBaseURL string

	FFmpegBin      string
	ComposeTimeout time.Duration

	VeoAPIKey  string
	VeoBaseURL string
	VeoModel   string

	KlingAPIKey  string
	KlingBaseURL string

	DashScopeAPIKey  string
	DashScopeBaseURL string
	DashScopeModel   string

	VideoPollInterval time.Duration
	VideoPollAttempts int
	VideoDuration     float64

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		StoragePath:    getEnv("STORAGE_PATH", "./storage"),
		StorageBaseURL: os.Getenv("STORAGE_BASE_URL"),

		FFmpegBin:      getEnv("FFMPEG_BIN", "ffmpeg"),
		ComposeTimeout: time.Second * time.Duration(getEnvInt("COMPOSE_TIMEOUT_SECONDS", 120)),

		VeoAPIKey:  os.Getenv("VEO_API_KEY"),
		VeoBaseURL: getEnv("VEO_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		VeoModel:   getEnv("VEO_MODEL", "veo-2.0-generate-001"),

		KlingAPIKey:  os.Getenv("KLING_API_KEY"),
		KlingBaseURL: getEnv("KLING_BASE_URL", "https://api.klingai.com"),

		DashScopeAPIKey:  os.Getenv("DASHSCOPE_API_KEY"),
		DashScopeBaseURL: getEnv("DASHSCOPE_BASE_URL", "https://dashscope.aliyuncs.com/api/v1"),
		DashScopeModel:   getEnv("DASHSCOPE_MODEL", "wanx2.1-t2i-turbo"),

		VideoPollInterval: time.Second * time.Duration(getEnvInt("VIDEO_POLL_INTERVAL_SECONDS", 3)),
		VideoPollAttempts: getEnvInt("VIDEO_POLL_MAX_ATTEMPTS", 40),
		VideoDuration:     getEnvFloat("VIDEO_DEFAULT_DURATION_SECONDS", 4),

		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 180)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.StorageBaseURL == "" {
		cfg.StorageBaseURL = fmt.Sprintf("http://localhost:%s/static", cfg.Port)
	}

	if cfg.VideoPollAttempts <= 0 {
		return nil, fmt.Errorf("VIDEO_POLL_MAX_ATTEMPTS must be positive")
	}

	if cfg.VideoDuration <= 0 {
		return nil, fmt.Errorf("VIDEO_DEFAULT_DURATION_SECONDS must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
