// Package config loads the camwatch application configuration from a
// YAML file with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Camera  CameraConfig  `yaml:"camera"`
	Model   ModelConfig   `yaml:"model"`
	Loop    LoopConfig    `yaml:"loop"`
	Web     WebConfig     `yaml:"web"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// CameraConfig selects and configures the video source.
type CameraConfig struct {
	// Source is "local" (gocv device) or "remote" (WebRTC ingest).
	Source   string `yaml:"source"`
	DeviceID int    `yaml:"device_id"`
	// SignallingURL is the remote camera's signalling endpoint and
	// ProducerName the stream to subscribe to, used only when Source
	// is "remote".
	SignallingURL string `yaml:"signalling_url"`
	ProducerName  string `yaml:"producer_name"`

	Preset     string `yaml:"preset"` // named resolution preset, overrides width/height
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Framerate  int    `yaml:"framerate"`
	FacingMode string `yaml:"facing_mode"` // user or environment
}

// ModelConfig describes the detection model and its I/O conventions.
type ModelConfig struct {
	Path       string `yaml:"path"`        // ONNX / frozen graph file
	ConfigPath string `yaml:"config_path"` // optional graph config (e.g. .pbtxt)
	InputSize  int    `yaml:"input_size"`  // square input edge in pixels

	// OutputNames lists the graph's output layers in the order the
	// index mapping below expects. Empty means the net's single
	// combined detection output, which decodes without the mapping.
	OutputNames []string `yaml:"output_names"`

	// Output tensor index mapping for multi-output graphs (requires
	// output_names). A TFJS-style SSD export returns its class tensor
	// at 0, boxes at 1 and scores at 4; other exports must override
	// these.
	OutputClasses int `yaml:"output_classes"`
	OutputBoxes   int `yaml:"output_boxes"`
	OutputScores  int `yaml:"output_scores"`

	// Preprocessing. Scale 1.0 keeps integer-range channels, which is
	// what the reference SSD export expects.
	Scale  float64 `yaml:"scale"`
	SwapRB bool    `yaml:"swap_rb"`
}

// LoopConfig controls the inference loop cadence.
type LoopConfig struct {
	// Scheduling is "fixed-interval" or "display-synced".
	Scheduling string  `yaml:"scheduling"`
	IntervalMs int     `yaml:"interval_ms"` // fixed-interval period
	RefreshHz  float64 `yaml:"refresh_hz"`  // display-synced refresh rate

	Threshold     float64 `yaml:"threshold"` // confidence cutoff
	MaxDetections int     `yaml:"max_detections"`
}

// WebConfig controls the dashboard server.
type WebConfig struct {
	Port      string `yaml:"port"`
	StaticDir string `yaml:"static_dir"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the recommended configuration.
func Default() Config {
	return Config{
		Log: LogConfig{
			Level: "info",
		},
		Camera: CameraConfig{
			Source:       "local",
			DeviceID:     0,
			ProducerName: "camera",
			Width:        640,
			Height:       480,
			Framerate:    30,
			FacingMode:   "user",
		},
		Model: ModelConfig{
			Path:          "models/ssd_mobilenet.onnx",
			InputSize:     300,
			OutputClasses: 0,
			OutputBoxes:   1,
			OutputScores:  4,
			Scale:         1.0,
			SwapRB:        true,
		},
		Loop: LoopConfig{
			Scheduling:    "fixed-interval",
			IntervalMs:    100,
			RefreshHz:     60,
			Threshold:     0.7,
			MaxDetections: 20,
		},
		Web: WebConfig{
			Port:      "8089",
			StaticDir: "./web",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9091",
		},
	}
}

// Load reads the config file at path, falling back to defaults for any
// unset field, then applies environment overrides. An empty path returns
// defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(&cfg)

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config: %v", errs)
	}

	return cfg, nil
}

// applyEnv overlays CAMWATCH_* environment variables onto the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("CAMWATCH_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CAMWATCH_DEVICE_ID"); v != "" {
		if id, err := strconv.Atoi(v); err == nil {
			cfg.Camera.DeviceID = id
		}
	}
	if v := os.Getenv("CAMWATCH_MODEL_PATH"); v != "" {
		cfg.Model.Path = v
	}
	if v := os.Getenv("CAMWATCH_SIGNALLING_URL"); v != "" {
		cfg.Camera.SignallingURL = v
		cfg.Camera.Source = "remote"
	}
	if v := os.Getenv("CAMWATCH_WEB_PORT"); v != "" {
		cfg.Web.Port = v
	}
	if v := os.Getenv("CAMWATCH_THRESHOLD"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Loop.Threshold = t
		}
	}
}

// Validate checks the config values. Returns a list of validation
// errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	switch c.Camera.Source {
	case "local", "remote":
	default:
		errs = append(errs, "camera.source must be local or remote")
	}
	if c.Camera.Source == "remote" && c.Camera.SignallingURL == "" {
		errs = append(errs, "camera.signalling_url is required for remote source")
	}

	if c.Model.InputSize <= 0 {
		errs = append(errs, "model.input_size must be positive")
	}
	if c.Model.OutputClasses < 0 || c.Model.OutputBoxes < 0 || c.Model.OutputScores < 0 {
		errs = append(errs, "model output indices must be non-negative")
	}

	switch c.Loop.Scheduling {
	case "fixed-interval", "display-synced":
	default:
		errs = append(errs, "loop.scheduling must be fixed-interval or display-synced")
	}
	if c.Loop.IntervalMs <= 0 {
		errs = append(errs, "loop.interval_ms must be positive")
	}
	if c.Loop.RefreshHz <= 0 {
		errs = append(errs, "loop.refresh_hz must be positive")
	}
	if c.Loop.Threshold < 0 || c.Loop.Threshold > 1 {
		errs = append(errs, "loop.threshold must be between 0 and 1")
	}
	if c.Loop.MaxDetections <= 0 {
		errs = append(errs, "loop.max_detections must be positive")
	}

	return errs
}
