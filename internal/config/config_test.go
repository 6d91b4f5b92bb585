package config

import (
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q; want 127.0.0.1", cfg.Host)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d; want 8080", cfg.Port)
	}
	if cfg.ThumbQuality != 90 {
		t.Errorf("ThumbQuality = %d; want 90", cfg.ThumbQuality)
	}
	if cfg.Detect.URL != "http://localhost:8000" {
		t.Errorf("Detect.URL = %q", cfg.Detect.URL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("CHRONOFACE_PORT", "9999")
	t.Setenv("CHRONOFACE_HOST", "0.0.0.0")
	t.Setenv("DETECT_URL", "http://inference:8000")

	cfg := Load()
	if cfg.Port != 9999 {
		t.Errorf("Port = %d; want 9999", cfg.Port)
	}
	if cfg.Host != "0.0.0.0" {
		t.Errorf("Host = %q; want 0.0.0.0", cfg.Host)
	}
	if cfg.Detect.URL != "http://inference:8000" {
		t.Errorf("Detect.URL = %q", cfg.Detect.URL)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  int
	}{
		{"empty", "", 42},
		{"garbage", "abc", 42},
		{"negative", "-3", 42},
		{"valid", "7", 7},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("CHRONOFACE_TEST_INT", tc.value)
			if got := envInt("CHRONOFACE_TEST_INT", 42); got != tc.want {
				t.Errorf("envInt = %d; want %d", got, tc.want)
			}
		})
	}
}

func TestEnsureDirs(t *testing.T) {
	base := t.TempDir()
	cfg := &Config{
		OutputDir: filepath.Join(base, "out"),
		CacheDir:  filepath.Join(base, "cache"),
		StaticDir: filepath.Join(base, "out", "static"),
	}
	if err := cfg.EnsureDirs(); err != nil {
		t.Fatalf("EnsureDirs failed: %v", err)
	}
}
