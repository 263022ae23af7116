package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) > 0 {
		t.Fatalf("default config invalid: %v", errs)
	}
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model.InputSize != 300 {
		t.Errorf("input size = %d, want 300", cfg.Model.InputSize)
	}
	if cfg.Loop.Scheduling != "fixed-interval" {
		t.Errorf("scheduling = %q, want fixed-interval", cfg.Loop.Scheduling)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "camwatch.yaml")

	yaml := `
camera:
  device_id: 2
  width: 1280
  height: 720
loop:
  scheduling: display-synced
  refresh_hz: 30
  threshold: 0.5
web:
  port: "9000"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Camera.DeviceID != 2 {
		t.Errorf("device_id = %d, want 2", cfg.Camera.DeviceID)
	}
	if cfg.Camera.Width != 1280 || cfg.Camera.Height != 720 {
		t.Errorf("camera = %dx%d, want 1280x720", cfg.Camera.Width, cfg.Camera.Height)
	}
	if cfg.Loop.Scheduling != "display-synced" || cfg.Loop.RefreshHz != 30 {
		t.Errorf("loop = %+v, want display-synced at 30hz", cfg.Loop)
	}
	if cfg.Web.Port != "9000" {
		t.Errorf("port = %q, want 9000", cfg.Web.Port)
	}

	// Untouched sections keep their defaults.
	if cfg.Model.OutputScores != 4 {
		t.Errorf("output_scores = %d, want default 4", cfg.Model.OutputScores)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/camwatch.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CAMWATCH_LOG_LEVEL", "debug")
	t.Setenv("CAMWATCH_DEVICE_ID", "3")
	t.Setenv("CAMWATCH_THRESHOLD", "0.4")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Camera.DeviceID != 3 {
		t.Errorf("device_id = %d, want 3", cfg.Camera.DeviceID)
	}
	if cfg.Loop.Threshold != 0.4 {
		t.Errorf("threshold = %v, want 0.4", cfg.Loop.Threshold)
	}
}

func TestSignallingEnvSwitchesToRemote(t *testing.T) {
	t.Setenv("CAMWATCH_SIGNALLING_URL", "ws://camera.local:8443")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Source != "remote" {
		t.Errorf("source = %q, want remote", cfg.Camera.Source)
	}
	if cfg.Camera.SignallingURL != "ws://camera.local:8443" {
		t.Errorf("signalling_url = %q", cfg.Camera.SignallingURL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"bad source", func(c *Config) { c.Camera.Source = "satellite" }, true},
		{"remote without url", func(c *Config) { c.Camera.Source = "remote"; c.Camera.SignallingURL = "" }, true},
		{"remote with url", func(c *Config) { c.Camera.Source = "remote"; c.Camera.SignallingURL = "ws://x" }, false},
		{"zero input size", func(c *Config) { c.Model.InputSize = 0 }, true},
		{"negative output index", func(c *Config) { c.Model.OutputBoxes = -1 }, true},
		{"bad scheduling", func(c *Config) { c.Loop.Scheduling = "vsync" }, true},
		{"display-synced", func(c *Config) { c.Loop.Scheduling = "display-synced" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}
