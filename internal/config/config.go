// Package config loads and validates the visaflow configuration file.
// YAML and JSON are both accepted; format is detected by extension or content.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Browser controls the Chrome session.
type Browser struct {
	Headless        bool   `yaml:"headless" json:"headless"`
	WindowWidth     int    `yaml:"window_width" json:"window_width"`
	WindowHeight    int    `yaml:"window_height" json:"window_height"`
	ChromePath      string `yaml:"chrome_path,omitempty" json:"chrome_path,omitempty"`
	PageLoadTimeout float64 `yaml:"page_load_timeout" json:"page_load_timeout"`
	ElementWait     float64 `yaml:"element_wait" json:"element_wait"`
}

// Wait carries the timeout budgets for the guarded submission, in seconds.
// The orchestrator owns the clock; these are the only knobs.
type Wait struct {
	NetworkIdleTimeout  float64 `yaml:"network_idle_timeout" json:"network_idle_timeout"`
	ArtifactWaitTimeout float64 `yaml:"artifact_wait_timeout" json:"artifact_wait_timeout"`
	PollInterval        float64 `yaml:"poll_interval" json:"poll_interval"`
	SettleDelay         float64 `yaml:"settle_delay" json:"settle_delay"`
	FallbackDelay       float64 `yaml:"fallback_delay" json:"fallback_delay"`
	MaxMissedReads      int     `yaml:"max_missed_reads" json:"max_missed_reads"`
}

// Output directories for generated artifacts.
type Output struct {
	PDFDir        string `yaml:"pdf_directory" json:"pdf_directory"`
	ScreenshotDir string `yaml:"screenshot_directory" json:"screenshot_directory"`
	LogDir        string `yaml:"log_directory" json:"log_directory"`
}

// Config is the root configuration.
type Config struct {
	URL     string  `yaml:"url" json:"url"`
	Browser Browser `yaml:"browser" json:"browser"`
	Wait    Wait    `yaml:"wait" json:"wait"`
	Output  Output  `yaml:"output" json:"output"`

	// QRSelector locates the artifact whose regeneration confirms submission.
	QRSelector string `yaml:"qr_selector" json:"qr_selector"`

	// FormSelectors maps logical field names to CSS selectors.
	FormSelectors map[string]string `yaml:"form_selectors" json:"form_selectors"`

	// Value mappings from canonical data values to the form's visible option text.
	SexMapping           map[string]string `yaml:"sex_mapping" json:"sex_mapping"`
	MaritalStatusMapping map[string]string `yaml:"marital_status_mapping" json:"marital_status_mapping"`
	VisaTypeMapping      map[string]string `yaml:"visa_type_mapping" json:"visa_type_mapping"`

	VerificationEnabled bool `yaml:"verification_enabled" json:"verification_enabled"`

	// MaxRetries re-runs the whole submission (navigate through capture) when
	// the artifact change was not confirmed. 0 disables retries.
	MaxRetries         int  `yaml:"max_retries" json:"max_retries"`
	RetryOnUnconfirmed bool `yaml:"retry_on_unconfirmed" json:"retry_on_unconfirmed"`

	StorePath string `yaml:"store_path" json:"store_path"`
}

// Default returns a config with the stock timeout budgets.
func Default() *Config {
	return &Config{
		Browser: Browser{
			Headless:        true,
			WindowWidth:     1280,
			WindowHeight:    1697,
			PageLoadTimeout: 60,
			ElementWait:     10,
		},
		Wait: Wait{
			NetworkIdleTimeout:  15,
			ArtifactWaitTimeout: 30,
			PollInterval:        1.5,
			SettleDelay:         3,
			FallbackDelay:       5,
			MaxMissedReads:      3,
		},
		Output: Output{
			PDFDir:        "output",
			ScreenshotDir: "screenshots",
			LogDir:        "logs",
		},
		QRSelector:          "img[src*='qr']",
		VerificationEnabled: true,
		MaxRetries:          3,
		StorePath:           filepath.Join(".visaflow", "history.db"),
	}
}

// LoadFromPath reads a config file (YAML or JSON) and validates it.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses config from bytes. ext is the file extension for format hint;
// empty = detect from content.
func Load(data []byte, ext string) (*Config, error) {
	cfg := Default()
	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}

	var parse func([]byte, any) error
	switch {
	case ext == ".yaml":
		parse = func(b []byte, v any) error { return yaml.Unmarshal(b, v) }
	case ext == ".json":
		parse = json.Unmarshal
	case strings.HasPrefix(strings.TrimSpace(string(data)), "{"):
		parse = json.Unmarshal
	default:
		parse = func(b []byte, v any) error { return yaml.Unmarshal(b, v) }
	}

	if err := parse(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the constraints the wait engine assumes: non-negative
// budgets and a poll interval strictly below both wait timeouts. Validation
// happens here at load time, never inside the detectors.
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("config: url is required")
	}
	w := c.Wait
	for _, f := range []struct {
		name string
		val  float64
	}{
		{"network_idle_timeout", w.NetworkIdleTimeout},
		{"artifact_wait_timeout", w.ArtifactWaitTimeout},
		{"poll_interval", w.PollInterval},
		{"settle_delay", w.SettleDelay},
		{"fallback_delay", w.FallbackDelay},
	} {
		if f.val < 0 {
			return fmt.Errorf("config: wait.%s must be >= 0, got %v", f.name, f.val)
		}
	}
	if w.PollInterval >= w.NetworkIdleTimeout {
		return fmt.Errorf("config: wait.poll_interval (%v) must be strictly less than network_idle_timeout (%v)",
			w.PollInterval, w.NetworkIdleTimeout)
	}
	if w.PollInterval >= w.ArtifactWaitTimeout {
		return fmt.Errorf("config: wait.poll_interval (%v) must be strictly less than artifact_wait_timeout (%v)",
			w.PollInterval, w.ArtifactWaitTimeout)
	}
	if w.MaxMissedReads < 1 {
		return fmt.Errorf("config: wait.max_missed_reads must be >= 1, got %d", w.MaxMissedReads)
	}
	if c.QRSelector == "" {
		return fmt.Errorf("config: qr_selector is required")
	}
	return nil
}

// Seconds converts a float seconds value to a time.Duration.
func Seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
