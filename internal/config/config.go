package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings.
type Config struct {
	Port        string
	Environment string

	// OpenAIAPIKey empty means mock mode for transcription and analysis.
	OpenAIAPIKey         string
	OpenAIBaseURL        string
	TranscriptionModel   string
	AnalysisModel        string
	TranscriptionTimeout time.Duration
	AnalysisTimeout      time.Duration

	DatabasePath string
	UploadDir    string

	MaxUploadBytes   int64
	UploadRatePerSec float64
	UploadBurst      int
	CORSAllowOrigins []string
	ShutdownTimeout  time.Duration
}

// Load reads configuration from environment and optional .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:                 getenv("PORT", "8000"),
		Environment:          getenv("ENVIRONMENT", "local"),
		OpenAIAPIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:        os.Getenv("OPENAI_BASE_URL"),
		TranscriptionModel:   getenv("TRANSCRIPTION_MODEL", "whisper-1"),
		AnalysisModel:        getenv("ANALYSIS_MODEL", "gpt-3.5-turbo"),
		TranscriptionTimeout: getenvDuration("TRANSCRIPTION_TIMEOUT", 120*time.Second),
		AnalysisTimeout:      getenvDuration("ANALYSIS_TIMEOUT", 60*time.Second),
		DatabasePath:         databasePath(getenv("DATABASE_URL", "./data/calls.db")),
		UploadDir:            getenv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:       getenvInt64("MAX_UPLOAD_BYTES", 100<<20),
		UploadRatePerSec:     getenvFloat("UPLOAD_RATE_PER_SEC", 2),
		UploadBurst:          int(getenvInt64("UPLOAD_BURST", 5)),
		CORSAllowOrigins:     splitList(getenv("CORS_ALLOW_ORIGINS", "*")),
		ShutdownTimeout:      getenvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

// MockMode reports whether external AI calls are replaced by fixed outputs.
func (c Config) MockMode() bool { return c.OpenAIAPIKey == "" }

// databasePath accepts a bare path or a sqlite:// URL.
func databasePath(v string) string {
	for _, prefix := range []string{"sqlite:///", "sqlite://"} {
		if strings.HasPrefix(v, prefix) {
			return strings.TrimPrefix(v, prefix)
		}
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt64(key string, def int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func getenvFloat(key string, def float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return def
	}
	return f
}

// getenvDuration accepts "90s"-style durations or bare seconds.
func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
