// Package config loads runtime configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime settings for Chronoface.
type Config struct {
	Host string
	Port int

	OutputDir string // rendered collages, one subdir per run
	CacheDir  string // per-run cache manifests
	StaticDir string // thumbnails and static collage copies served over HTTP

	ThumbQuality int // JPEG quality for thumbnails

	Detect DetectConfig
	OpenAI OpenAIConfig
	Gemini GeminiConfig
}

// DetectConfig points at the face inference HTTP service.
type DetectConfig struct {
	URL string // defaults to http://localhost:8000
}

// OpenAIConfig carries the optional OpenAI credentials for name suggestions.
type OpenAIConfig struct {
	Token string
}

// GeminiConfig carries the optional Gemini credentials for name suggestions.
type GeminiConfig struct {
	APIKey string
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envStr reads an environment variable with a fallback default.
func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Load reads configuration from the environment.
func Load() *Config {
	return &Config{
		Host:         envStr("CHRONOFACE_HOST", "127.0.0.1"),
		Port:         envInt("CHRONOFACE_PORT", 8080),
		OutputDir:    envStr("CHRONOFACE_OUTPUT_DIR", "output"),
		CacheDir:     envStr("CHRONOFACE_CACHE_DIR", ".chronoface_cache"),
		StaticDir:    envStr("CHRONOFACE_STATIC_DIR", "output/static"),
		ThumbQuality: envInt("CHRONOFACE_THUMB_QUALITY", 90),
		Detect: DetectConfig{
			URL: envStr("DETECT_URL", "http://localhost:8000"),
		},
		OpenAI: OpenAIConfig{
			Token: os.Getenv("OPENAI_TOKEN"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
		},
	}
}

// EnsureDirs creates the output, cache and static directories.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.OutputDir, c.CacheDir, c.StaticDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ThumbDir is where photo thumbnails are written.
func (c *Config) ThumbDir() string {
	return c.StaticDir + "/thumbs"
}

// FaceThumbDir is where face-crop thumbnails are written.
func (c *Config) FaceThumbDir() string {
	return c.StaticDir + "/faces"
}

// CollageDir is where static collage copies are written.
func (c *Config) CollageDir() string {
	return c.StaticDir + "/collages"
}
