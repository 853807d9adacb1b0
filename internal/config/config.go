// Package config assembles the server configuration from defaults, an optional
// JSON file and IMAGE_FEATURES_* environment variables, in that order of
// increasing priority.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ironsheep/image-features-mcp/internal/detection"
	"github.com/ironsheep/image-features-mcp/internal/imaging"
	"github.com/ironsheep/image-features-mcp/internal/match"
	"github.com/ironsheep/image-features-mcp/internal/render"
)

// EnvPrefix is the prefix of every environment variable read by EnvOverlay.
const EnvPrefix = "IMAGE_FEATURES_"

// Log levels accepted in Logging.Level.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config is the complete server configuration.
type Config struct {
	Logging Logging `json:"logging"`

	// MaxImageDimension downscales larger images before detection. 0 disables.
	MaxImageDimension int `json:"max_image_dimension"`

	Points detection.PointOptions `json:"points"`
	Lines  detection.LineOptions  `json:"lines"`
	Match  match.Options          `json:"match"`
	Render render.Style           `json:"render"`

	// explicit records zero values that were set on purpose and must survive Merge.
	explicit explicitFields
}

// Logging configures the server log.
type Logging struct {
	Level string `json:"level"`
}

type explicitFields struct {
	maxImageDimension bool
	ratio             bool
	maxDistance       bool
	crossCheck        bool
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Logging:           Logging{Level: LevelInfo},
		MaxImageDimension: 1024,
		Points:            detection.DefaultPointOptions(),
		Lines:             detection.DefaultLineOptions(),
		Match:             match.DefaultOptions(),
		Render:            render.DefaultStyle(),
	}
}

// LoadJSON reads a configuration file. Unknown fields are rejected.
func LoadJSON(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return ParseJSON(raw)
}

// ParseJSON decodes a configuration document. Unknown fields are rejected.
func ParseJSON(raw []byte) (Config, error) {
	var cfg Config
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	// Second pass to tell "absent" from "set to zero".
	var probe struct {
		MaxImageDimension *int `json:"max_image_dimension"`
		Match             struct {
			Ratio       *float64 `json:"ratio"`
			MaxDistance *float64 `json:"max_distance"`
			CrossCheck  *bool    `json:"cross_check"`
		} `json:"match"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.explicit = explicitFields{
		maxImageDimension: probe.MaxImageDimension != nil,
		ratio:             probe.Match.Ratio != nil,
		maxDistance:       probe.Match.MaxDistance != nil,
		crossCheck:        probe.Match.CrossCheck != nil,
	}
	return cfg, nil
}

// Merge overlays over onto base. Empty strings and zero numbers in over leave
// base unchanged unless they were set explicitly.
func Merge(base, over Config) Config {
	out := base

	if v := strings.TrimSpace(over.Logging.Level); v != "" {
		out.Logging.Level = strings.ToLower(v)
	}
	if over.MaxImageDimension != 0 || over.explicit.maxImageDimension {
		out.MaxImageDimension = over.MaxImageDimension
	}

	// Points
	if over.Points.Backend != "" {
		out.Points.Backend = over.Points.Backend
	}
	if over.Points.MaxFeatures != 0 {
		out.Points.MaxFeatures = over.Points.MaxFeatures
	}
	if over.Points.FastThreshold != 0 {
		out.Points.FastThreshold = over.Points.FastThreshold
	}
	if over.Points.Levels != 0 {
		out.Points.Levels = over.Points.Levels
	}
	if over.Points.ScaleFactor != 0 {
		out.Points.ScaleFactor = over.Points.ScaleFactor
	}
	if over.Points.BlurRadius != 0 {
		out.Points.BlurRadius = over.Points.BlurRadius
	}

	// Lines
	if over.Lines.MinLength != 0 {
		out.Lines.MinLength = over.Lines.MinLength
	}
	if over.Lines.MaxGap != 0 {
		out.Lines.MaxGap = over.Lines.MaxGap
	}
	if over.Lines.MaxLines != 0 {
		out.Lines.MaxLines = over.Lines.MaxLines
	}
	if over.Lines.CannyLow != 0 {
		out.Lines.CannyLow = over.Lines.CannyLow
	}
	if over.Lines.CannyHigh != 0 {
		out.Lines.CannyHigh = over.Lines.CannyHigh
	}
	if over.Lines.BlurRadius != 0 {
		out.Lines.BlurRadius = over.Lines.BlurRadius
	}

	// Match
	if over.Match.Metric != "" {
		out.Match.Metric = over.Match.Metric
	}
	if over.Match.Ratio != 0 || over.explicit.ratio {
		out.Match.Ratio = over.Match.Ratio
	}
	if over.Match.MaxDistance != 0 || over.explicit.maxDistance {
		out.Match.MaxDistance = over.Match.MaxDistance
	}
	if over.Match.CrossCheck || over.explicit.crossCheck {
		out.Match.CrossCheck = over.Match.CrossCheck
	}

	// Render
	if over.Render.FeatureColor != "" {
		out.Render.FeatureColor = over.Render.FeatureColor
	}
	if over.Render.LineThickness != 0 {
		out.Render.LineThickness = over.Render.LineThickness
	}

	out.explicit = explicitFields{}
	return out
}

// EnvOverlay builds an overlay from environment entries ("KEY=value").
// Only IMAGE_FEATURES_* keys are read; unknown keys with the prefix are ignored.
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := strings.TrimSpace(kv[eq+1:])
		if val == "" {
			continue
		}

		var err error
		switch key {
		case "LOG_LEVEL":
			over.Logging.Level = val
		case "MAX_IMAGE_DIMENSION":
			over.MaxImageDimension, err = strconv.Atoi(val)
			over.explicit.maxImageDimension = true
		case "POINT_BACKEND":
			over.Points.Backend = val
		case "MAX_FEATURES":
			over.Points.MaxFeatures, err = strconv.Atoi(val)
		case "FAST_THRESHOLD":
			over.Points.FastThreshold, err = strconv.Atoi(val)
		case "MIN_LINE_LENGTH":
			over.Lines.MinLength, err = strconv.Atoi(val)
		case "MAX_LINES":
			over.Lines.MaxLines, err = strconv.Atoi(val)
		case "MATCH_RATIO":
			over.Match.Ratio, err = strconv.ParseFloat(val, 64)
			over.explicit.ratio = true
		case "MATCH_MAX_DISTANCE":
			over.Match.MaxDistance, err = strconv.ParseFloat(val, 64)
			over.explicit.maxDistance = true
		case "MATCH_METRIC":
			over.Match.Metric, err = match.ParseMetric(val)
		case "CROSS_CHECK":
			over.Match.CrossCheck, err = strconv.ParseBool(val)
			over.explicit.crossCheck = true
		case "RENDER_FEATURE_COLOR":
			over.Render.FeatureColor = val
		default:
			continue
		}
		if err != nil {
			return Config{}, fmt.Errorf("config: %s%s: %w", EnvPrefix, key, err)
		}
	}
	return over, nil
}

// Load assembles defaults, the optional file at path and the environment.
func Load(path string, environ []string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		file, err := LoadJSON(path)
		if err != nil {
			return Config{}, err
		}
		cfg = Merge(cfg, file)
	}
	env, err := EnvOverlay(environ)
	if err != nil {
		return Config{}, err
	}
	cfg = Merge(cfg, env)
	return cfg, Validate(cfg)
}

// Validate checks that every value is usable.
func Validate(cfg Config) error {
	switch cfg.Logging.Level {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
	default:
		return fmt.Errorf("config: unknown log level %q", cfg.Logging.Level)
	}
	if cfg.MaxImageDimension < 0 {
		return errors.New("config: max_image_dimension must be >= 0")
	}

	p := cfg.Points
	if _, err := detection.NewPointDetector(p); err != nil {
		return fmt.Errorf("config: points.backend: %w", err)
	}
	if p.MaxFeatures < 1 {
		return errors.New("config: points.max_features must be >= 1")
	}
	if p.FastThreshold < 1 || p.FastThreshold > 255 {
		return errors.New("config: points.fast_threshold must be in [1,255]")
	}
	if p.Levels < 1 || p.Levels > 8 {
		return errors.New("config: points.levels must be in [1,8]")
	}
	if p.ScaleFactor <= 1 {
		return errors.New("config: points.scale_factor must be > 1")
	}
	if p.BlurRadius < 0 {
		return errors.New("config: points.blur_radius must be >= 0")
	}

	l := cfg.Lines
	if l.MinLength < 1 {
		return errors.New("config: lines.min_length must be >= 1")
	}
	if l.MaxGap < 0 {
		return errors.New("config: lines.max_gap must be >= 0")
	}
	if l.MaxLines < 1 {
		return errors.New("config: lines.max_lines must be >= 1")
	}
	if l.CannyLow < 1 || l.CannyLow > l.CannyHigh || l.CannyHigh > 255 {
		return fmt.Errorf("config: lines canny thresholds must satisfy 1 <= low <= high <= 255 (got %d, %d)", l.CannyLow, l.CannyHigh)
	}
	if l.BlurRadius < 0 {
		return errors.New("config: lines.blur_radius must be >= 0")
	}

	m := cfg.Match
	if _, err := match.ParseMetric(string(m.Metric)); err != nil {
		return fmt.Errorf("config: match.metric: %w", err)
	}
	if m.Ratio < 0 || m.Ratio > 1 {
		return errors.New("config: match.ratio must be in [0,1]")
	}
	if m.MaxDistance < 0 {
		return errors.New("config: match.max_distance must be >= 0")
	}

	if _, err := imaging.ParseHexColor(cfg.Render.FeatureColor); err != nil {
		return fmt.Errorf("config: render.feature_color: %w", err)
	}
	if cfg.Render.LineThickness < 1 {
		return errors.New("config: render.line_thickness must be >= 1")
	}
	return nil
}
