package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/image-features-mcp/internal/match"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.MaxImageDimension != 1024 {
		t.Errorf("Expected max dimension 1024, got %d", cfg.MaxImageDimension)
	}
	if cfg.Match.Ratio != 0.75 || cfg.Match.Metric != match.MetricAuto {
		t.Errorf("Unexpected match defaults: %+v", cfg.Match)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"logging": {"level": "debug"},
		"points": {"max_features": 200},
		"lines": {"min_length": 30},
		"match": {"metric": "hamming", "ratio": 0, "cross_check": true}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	file, err := LoadJSON(path)
	if err != nil {
		t.Fatalf("LoadJSON failed: %v", err)
	}
	cfg := Merge(Defaults(), file)
	if err := Validate(cfg); err != nil {
		t.Fatalf("merged config does not validate: %v", err)
	}

	if cfg.Logging.Level != LevelDebug {
		t.Errorf("Expected debug level, got %q", cfg.Logging.Level)
	}
	if cfg.Points.MaxFeatures != 200 || cfg.Points.FastThreshold != 20 {
		t.Errorf("Unexpected points options: %+v", cfg.Points)
	}
	if cfg.Lines.MinLength != 30 || cfg.Lines.MaxGap != 5 {
		t.Errorf("Unexpected lines options: %+v", cfg.Lines)
	}
	// An explicit 0 disables the ratio test instead of keeping the default.
	if cfg.Match.Ratio != 0 {
		t.Errorf("Expected ratio 0, got %v", cfg.Match.Ratio)
	}
	if !cfg.Match.CrossCheck || cfg.Match.Metric != match.MetricHamming {
		t.Errorf("Unexpected match options: %+v", cfg.Match)
	}
}

func TestLoadJSONUnknownField(t *testing.T) {
	if _, err := ParseJSON([]byte(`{"unknown": 1}`)); err == nil {
		t.Fatal("Expected error for unknown field")
	}
	if _, err := ParseJSON([]byte(`{"points": {"octaves": 3}}`)); err == nil {
		t.Fatal("Expected error for unknown nested field")
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	if _, err := LoadJSON(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestEnvOverlay(t *testing.T) {
	env := []string{
		"IMAGE_FEATURES_LOG_LEVEL=WARN",
		"IMAGE_FEATURES_MAX_IMAGE_DIMENSION=0",
		"IMAGE_FEATURES_MAX_FEATURES=64",
		"IMAGE_FEATURES_MATCH_RATIO=0.8",
		"IMAGE_FEATURES_MATCH_METRIC=l2",
		"IMAGE_FEATURES_CROSS_CHECK=true",
		"IMAGE_FEATURES_UNKNOWN=1",
		"PATH=/usr/bin",
	}
	over, err := EnvOverlay(env)
	if err != nil {
		t.Fatalf("EnvOverlay failed: %v", err)
	}
	cfg := Merge(Defaults(), over)
	if err := Validate(cfg); err != nil {
		t.Fatalf("merged config does not validate: %v", err)
	}

	if cfg.Logging.Level != LevelWarn {
		t.Errorf("Expected warn level, got %q", cfg.Logging.Level)
	}
	if cfg.MaxImageDimension != 0 {
		t.Errorf("Expected explicit 0 max dimension, got %d", cfg.MaxImageDimension)
	}
	if cfg.Points.MaxFeatures != 64 {
		t.Errorf("Expected 64 max features, got %d", cfg.Points.MaxFeatures)
	}
	if cfg.Match.Ratio != 0.8 || cfg.Match.Metric != match.MetricL2 || !cfg.Match.CrossCheck {
		t.Errorf("Unexpected match options: %+v", cfg.Match)
	}
}

func TestEnvOverlayCrossCheckFalse(t *testing.T) {
	base := Defaults()
	base.Match.CrossCheck = true

	over, err := EnvOverlay([]string{"IMAGE_FEATURES_CROSS_CHECK=false"})
	if err != nil {
		t.Fatalf("EnvOverlay failed: %v", err)
	}
	if cfg := Merge(base, over); cfg.Match.CrossCheck {
		t.Error("Expected explicit false to override")
	}
}

func TestEnvOverlayInvalid(t *testing.T) {
	tests := []string{
		"IMAGE_FEATURES_MAX_FEATURES=many",
		"IMAGE_FEATURES_MATCH_RATIO=high",
		"IMAGE_FEATURES_MATCH_METRIC=cosine",
		"IMAGE_FEATURES_CROSS_CHECK=maybe",
	}
	for _, kv := range tests {
		if _, err := EnvOverlay([]string{kv}); err == nil {
			t.Errorf("Expected error for %s", kv)
		}
	}
}

func TestMergeKeepsBase(t *testing.T) {
	cfg := Merge(Defaults(), Config{})
	if cfg != Defaults() {
		t.Errorf("Merging an empty overlay changed the config: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"negative dimension", func(c *Config) { c.MaxImageDimension = -1 }},
		{"backend", func(c *Config) { c.Points.Backend = "sift" }},
		{"max features", func(c *Config) { c.Points.MaxFeatures = 0 }},
		{"fast threshold", func(c *Config) { c.Points.FastThreshold = 300 }},
		{"levels", func(c *Config) { c.Points.Levels = 0 }},
		{"scale factor", func(c *Config) { c.Points.ScaleFactor = 1 }},
		{"min length", func(c *Config) { c.Lines.MinLength = 0 }},
		{"canny order", func(c *Config) { c.Lines.CannyLow = 200; c.Lines.CannyHigh = 100 }},
		{"metric", func(c *Config) { c.Match.Metric = "cosine" }},
		{"ratio", func(c *Config) { c.Match.Ratio = 1.5 }},
		{"max distance", func(c *Config) { c.Match.MaxDistance = -1 }},
		{"color", func(c *Config) { c.Render.FeatureColor = "#12" }},
		{"thickness", func(c *Config) { c.Render.LineThickness = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := Validate(cfg); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"points": {"max_features": 10}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, []string{"IMAGE_FEATURES_MAX_FEATURES=20"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Points.MaxFeatures != 20 {
		t.Errorf("Expected environment to win, got %d", cfg.Points.MaxFeatures)
	}

	if _, err := Load("", []string{"IMAGE_FEATURES_FAST_THRESHOLD=0"}); err != nil {
		t.Errorf("Expected zero threshold to be ignored, got %v", err)
	}
}
