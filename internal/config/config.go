// Package config loads the deskpilot YAML configuration with defaults and
// environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	LLM        LLMConfig        `yaml:"llm"`
	Perception PerceptionConfig `yaml:"perception"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Stability  StabilityConfig  `yaml:"stability"`
	Screenshot ScreenshotConfig `yaml:"screenshots"`
	History    HistoryConfig    `yaml:"history"`
	Automation AutomationConfig `yaml:"automation"`
}

// LoggingConfig controls the category file loggers.
type LoggingConfig struct {
	Dir   string `yaml:"dir"`
	Level string `yaml:"level"` // debug | info | warn | error
}

// LLMConfig configures the Gemini client used for target extraction,
// captioning and the fallback planner.
type LLMConfig struct {
	APIKey         string        `yaml:"api_key"`
	Model          string        `yaml:"model"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// PerceptionConfig configures the OCR/detector endpoints and the gate.
type PerceptionConfig struct {
	OCRBaseURL       string        `yaml:"ocr_base_url"`
	DetectorBaseURL  string        `yaml:"detector_base_url"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	OCRMinConfidence float64       `yaml:"ocr_min_confidence"`
	CaptionEnabled   bool          `yaml:"caption_enabled"`
}

// ResolverConfig tunes target resolution.
type ResolverConfig struct {
	MinThreshold   float64 `yaml:"min_threshold"`
	RunnerUpMargin float64 `yaml:"runner_up_margin"`
}

// StabilityConfig tunes the screen-stability wait.
type StabilityConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Consecutive int           `yaml:"consecutive_stable"`
	Threshold   float64       `yaml:"similarity_threshold"`
	Timeout     time.Duration `yaml:"timeout"`
}

// ScreenshotConfig controls the screenshot store.
type ScreenshotConfig struct {
	Dir      string        `yaml:"dir"`
	MaxAge   time.Duration `yaml:"max_age"`
	MaxCount int           `yaml:"max_count"`
}

// HistoryConfig controls the command history file.
type HistoryConfig struct {
	Path       string `yaml:"path"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxCount   int    `yaml:"max_count"`
}

// AutomationConfig configures the browser-backed driver.
type AutomationConfig struct {
	Headless       bool   `yaml:"headless"`
	StartURL       string `yaml:"start_url"`
	ViewportWidth  int    `yaml:"viewport_width"`
	ViewportHeight int    `yaml:"viewport_height"`
}

// DefaultConfig returns the documented defaults, anchored under the user's
// home directory.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".deskpilot")
	return &Config{
		Logging: LoggingConfig{
			Dir:   filepath.Join(base, "logs"),
			Level: "info",
		},
		LLM: LLMConfig{
			Model:          "gemini-2.5-flash",
			RequestTimeout: 15 * time.Second,
		},
		Perception: PerceptionConfig{
			OCRBaseURL:       "http://127.0.0.1:8871",
			DetectorBaseURL:  "http://127.0.0.1:8872",
			RequestTimeout:   30 * time.Second,
			OCRMinConfidence: 0.4,
			CaptionEnabled:   false,
		},
		Resolver: ResolverConfig{
			MinThreshold:   25,
			RunnerUpMargin: 10,
		},
		Stability: StabilityConfig{
			Interval:    300 * time.Millisecond,
			Consecutive: 3,
			Threshold:   0.985,
			Timeout:     10 * time.Second,
		},
		Screenshot: ScreenshotConfig{
			Dir:      filepath.Join(base, "screenshots"),
			MaxAge:   24 * time.Hour,
			MaxCount: 10,
		},
		History: HistoryConfig{
			Path:       filepath.Join(base, "history.csv"),
			MaxAgeDays: 30,
			MaxCount:   1000,
		},
		Automation: AutomationConfig{
			Headless:       true,
			ViewportWidth:  1920,
			ViewportHeight: 1080,
		},
	}
}

// Load reads the YAML file over the defaults and applies env overrides.
// A missing file is not an error; the defaults plus env apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// Save writes the config back as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// applyEnv overlays DESKPILOT_* environment variables onto the config.
func (c *Config) applyEnv() {
	envString("DESKPILOT_LOG_DIR", &c.Logging.Dir)
	envString("DESKPILOT_LOG_LEVEL", &c.Logging.Level)
	envString("DESKPILOT_API_KEY", &c.LLM.APIKey)
	envString("DESKPILOT_MODEL", &c.LLM.Model)
	envString("DESKPILOT_OCR_URL", &c.Perception.OCRBaseURL)
	envString("DESKPILOT_DETECTOR_URL", &c.Perception.DetectorBaseURL)
	envFloat("DESKPILOT_OCR_MIN_CONFIDENCE", &c.Perception.OCRMinConfidence)
	envBool("DESKPILOT_CAPTION_ENABLED", &c.Perception.CaptionEnabled)
	envString("DESKPILOT_SCREENSHOT_DIR", &c.Screenshot.Dir)
	envString("DESKPILOT_HISTORY_PATH", &c.History.Path)
	envBool("DESKPILOT_HEADLESS", &c.Automation.Headless)
	envString("DESKPILOT_START_URL", &c.Automation.StartURL)

	// GEMINI_API_KEY is honored as the conventional fallback for the key.
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

func envString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func envFloat(name string, dst *float64) {
	if v := os.Getenv(name); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(name string, dst *bool) {
	if v := os.Getenv(name); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
