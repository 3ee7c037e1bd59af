package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	require.Equal(t, 300*time.Millisecond, cfg.Stability.Interval)
	require.Equal(t, 25.0, cfg.Resolver.MinThreshold)
	require.Equal(t, 30, cfg.History.MaxAgeDays)
	require.True(t, cfg.Automation.Headless)
}

func TestLoadOverlaysFileOverDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "llm:\n  model: gemini-2.5-pro\nstability:\n  consecutive_stable: 5\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini-2.5-pro", cfg.LLM.Model)
	require.Equal(t, 5, cfg.Stability.Consecutive)
	// Untouched sections keep their defaults.
	require.Equal(t, "http://127.0.0.1:8871", cfg.Perception.OCRBaseURL)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [oops"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DESKPILOT_MODEL", "gemini-2.0-flash")
	t.Setenv("DESKPILOT_OCR_MIN_CONFIDENCE", "0.6")
	t.Setenv("DESKPILOT_HEADLESS", "false")
	t.Setenv("GEMINI_API_KEY", "fallback-key")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "gemini-2.0-flash", cfg.LLM.Model)
	require.Equal(t, 0.6, cfg.Perception.OCRMinConfidence)
	require.False(t, cfg.Automation.Headless)
	require.Equal(t, "fallback-key", cfg.LLM.APIKey)
}

func TestExplicitKeyBeatsGeminiFallback(t *testing.T) {
	t.Setenv("DESKPILOT_API_KEY", "primary")
	t.Setenv("GEMINI_API_KEY", "fallback")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "primary", cfg.LLM.APIKey)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.LLM.Model = "gemini-custom"
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini-custom", got.LLM.Model)
	require.Equal(t, cfg.Stability.Threshold, got.Stability.Threshold)
}
