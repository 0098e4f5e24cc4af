// Package config loads the pantomime JSON configuration file. Every field
// is optional; the Get* accessors supply defaults for anything omitted.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/pantomime/internal/gesture"
)

const maxFileSize = 1 * 1024 * 1024

// Library sources.
const (
	SourceStore = "store"
	SourceDir   = "dir"
)

// Interpreters.
const (
	InterpreterEcho   = "echo"
	InterpreterGemini = "gemini"
	InterpreterPlugin = "plugin"
)

// Config is the root configuration.
type Config struct {
	// Quantization and matching
	Window               *string `json:"window,omitempty"` // duration string like "6s"
	MinSamples           *int    `json:"min_samples,omitempty"`
	Metric               *string `json:"metric,omitempty"`
	QueueSize            *int    `json:"queue_size,omitempty"`
	FallbackOnDegenerate *bool   `json:"fallback_on_degenerate,omitempty"`
	StatsInterval        *string `json:"stats_interval,omitempty"`

	// Camera and pose estimation
	CameraDevice    *int     `json:"camera_device,omitempty"`
	IdleFPS         *int     `json:"idle_fps,omitempty"`
	ActiveFPS       *int     `json:"active_fps,omitempty"`
	IdleTimeout     *string  `json:"idle_timeout,omitempty"`
	MotionThreshold *float64 `json:"motion_threshold,omitempty"`
	ModelComplexity *int     `json:"model_complexity,omitempty"`
	PythonPath      *string  `json:"python_path,omitempty"`
	Smoothing       *bool    `json:"smoothing,omitempty"`

	// Library
	LibrarySource  *string           `json:"library_source,omitempty"`
	ReferenceDir   *string           `json:"reference_dir,omitempty"`
	DBPath         *string           `json:"db_path,omitempty"`
	DefaultGesture *string           `json:"default_gesture,omitempty"`
	Clips          map[string]string `json:"clips,omitempty"` // gesture name -> clip length

	// Interpretation
	Interpreter      *string         `json:"interpreter,omitempty"`
	InterpretTimeout *string         `json:"interpret_timeout,omitempty"`
	GeminiModel      *string         `json:"gemini_model,omitempty"`
	GeminiKeyEnv     *string         `json:"gemini_key_env,omitempty"`
	PluginDir        *string         `json:"plugin_dir,omitempty"`
	Plugin           *string         `json:"plugin,omitempty"`
	PluginConfig     json.RawMessage `json:"plugin_config,omitempty"`

	// Presentation
	DefaultHold *string `json:"default_hold,omitempty"`
	MaxHold     *string `json:"max_hold,omitempty"`

	// Control surface
	Listen    *string `json:"listen,omitempty"`
	StaticDir *string `json:"static_dir,omitempty"`
	Tray      *bool   `json:"tray,omitempty"`
}

// Empty returns a Config with every field unset.
func Empty() *Config {
	return &Config{}
}

// Load reads a Config from a .json file of at most 1MB and validates it.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Empty()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the fields that are set.
func (c *Config) Validate() error {
	durations := map[string]*string{
		"window":            c.Window,
		"stats_interval":    c.StatsInterval,
		"idle_timeout":      c.IdleTimeout,
		"interpret_timeout": c.InterpretTimeout,
		"default_hold":      c.DefaultHold,
		"max_hold":          c.MaxHold,
	}
	for name, v := range durations {
		if v == nil || *v == "" {
			continue
		}
		d, err := time.ParseDuration(*v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, d)
		}
	}
	for name, v := range c.Clips {
		if _, err := gesture.ParseName(name); err != nil {
			return fmt.Errorf("clips: %w", err)
		}
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid clip length for %s '%s': %w", name, v, err)
		}
	}

	if c.MinSamples != nil && *c.MinSamples < 1 {
		return fmt.Errorf("min_samples must be at least 1, got %d", *c.MinSamples)
	}
	if c.QueueSize != nil && *c.QueueSize < 1 {
		return fmt.Errorf("queue_size must be at least 1, got %d", *c.QueueSize)
	}
	if c.Metric != nil {
		if _, err := gesture.ParseMetric(*c.Metric); err != nil {
			return err
		}
	}
	if c.DefaultGesture != nil {
		if _, err := gesture.ParseName(*c.DefaultGesture); err != nil {
			return fmt.Errorf("default_gesture: %w", err)
		}
	}
	if c.ModelComplexity != nil && (*c.ModelComplexity < 0 || *c.ModelComplexity > 2) {
		return fmt.Errorf("model_complexity must be 0, 1 or 2, got %d", *c.ModelComplexity)
	}
	if c.MotionThreshold != nil && (*c.MotionThreshold <= 0 || *c.MotionThreshold > 100) {
		return fmt.Errorf("motion_threshold must be in (0, 100], got %f", *c.MotionThreshold)
	}

	switch src := c.GetLibrarySource(); src {
	case SourceStore:
	case SourceDir:
		if c.GetReferenceDir() == "" {
			return fmt.Errorf("library_source %q needs reference_dir", src)
		}
	default:
		return fmt.Errorf("unknown library_source %q", src)
	}

	switch in := c.GetInterpreter(); in {
	case InterpreterEcho, InterpreterGemini:
	case InterpreterPlugin:
		if c.GetPlugin() == "" {
			return fmt.Errorf("interpreter %q needs plugin", in)
		}
	default:
		return fmt.Errorf("unknown interpreter %q", in)
	}

	if len(c.PluginConfig) > 0 && !json.Valid(c.PluginConfig) {
		return fmt.Errorf("plugin_config is not valid JSON")
	}
	return nil
}

func durationOr(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def
	}
	return d
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func intOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func (c *Config) GetWindow() time.Duration        { return durationOr(c.Window, 6*time.Second) }
func (c *Config) GetMinSamples() int              { return intOr(c.MinSamples, 1) }
func (c *Config) GetQueueSize() int               { return intOr(c.QueueSize, 10) }
func (c *Config) GetFallbackOnDegenerate() bool   { return boolOr(c.FallbackOnDegenerate, false) }
func (c *Config) GetStatsInterval() time.Duration { return durationOr(c.StatsInterval, time.Minute) }

// GetMetric returns the configured metric, defaulting to cosine.
func (c *Config) GetMetric() gesture.Metric {
	m, err := gesture.ParseMetric(stringOr(c.Metric, "cosine"))
	if err != nil {
		return gesture.MetricCosine
	}
	return m
}

func (c *Config) GetCameraDevice() int          { return intOr(c.CameraDevice, 0) }
func (c *Config) GetIdleFPS() int               { return intOr(c.IdleFPS, 5) }
func (c *Config) GetActiveFPS() int             { return intOr(c.ActiveFPS, 15) }
func (c *Config) GetIdleTimeout() time.Duration { return durationOr(c.IdleTimeout, 2*time.Second) }
func (c *Config) GetModelComplexity() int       { return intOr(c.ModelComplexity, 1) }
func (c *Config) GetPythonPath() string         { return stringOr(c.PythonPath, "") }
func (c *Config) GetSmoothing() bool            { return boolOr(c.Smoothing, false) }

// GetMotionThreshold returns the percentage of changed pixels that counts
// as motion.
func (c *Config) GetMotionThreshold() float64 {
	if c.MotionThreshold == nil {
		return 1.0
	}
	return *c.MotionThreshold
}

func (c *Config) GetLibrarySource() string { return stringOr(c.LibrarySource, SourceStore) }
func (c *Config) GetReferenceDir() string  { return stringOr(c.ReferenceDir, "") }
func (c *Config) GetDBPath() string        { return stringOr(c.DBPath, "") }

// GetDefaultGesture returns the resting gesture name.
func (c *Config) GetDefaultGesture() gesture.Name {
	n, err := gesture.ParseName(stringOr(c.DefaultGesture, gesture.DefaultName.String()))
	if err != nil {
		return gesture.DefaultName
	}
	return n
}

// GetClips returns the configured clip lengths. Invalid entries are
// skipped; Validate reports them.
func (c *Config) GetClips() map[gesture.Name]time.Duration {
	clips := make(map[gesture.Name]time.Duration, len(c.Clips))
	for name, v := range c.Clips {
		n, err := gesture.ParseName(name)
		if err != nil {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			continue
		}
		clips[n] = d
	}
	return clips
}

func (c *Config) GetInterpreter() string { return stringOr(c.Interpreter, InterpreterEcho) }
func (c *Config) GetInterpretTimeout() time.Duration {
	return durationOr(c.InterpretTimeout, 10*time.Second)
}
func (c *Config) GetGeminiModel() string  { return stringOr(c.GeminiModel, "gemini-2.0-flash") }
func (c *Config) GetGeminiKeyEnv() string { return stringOr(c.GeminiKeyEnv, "GEMINI_API_KEY") }
func (c *Config) GetPluginDir() string    { return stringOr(c.PluginDir, "plugins") }
func (c *Config) GetPlugin() string       { return stringOr(c.Plugin, "") }

func (c *Config) GetDefaultHold() time.Duration { return durationOr(c.DefaultHold, 2*time.Second) }
func (c *Config) GetMaxHold() time.Duration     { return durationOr(c.MaxHold, 8*time.Second) }

func (c *Config) GetListen() string    { return stringOr(c.Listen, ":8080") }
func (c *Config) GetStaticDir() string { return stringOr(c.StaticDir, "") }
func (c *Config) GetTray() bool        { return boolOr(c.Tray, false) }
