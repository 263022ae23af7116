package capture

import "testing"

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default", func(*Config) {}, false},
		{"width too small", func(c *Config) { c.Width = 100 }, true},
		{"width too large", func(c *Config) { c.Width = 7680 }, true},
		{"height too small", func(c *Config) { c.Height = 60 }, true},
		{"zero framerate", func(c *Config) { c.Framerate = 0 }, true},
		{"framerate too high", func(c *Config) { c.Framerate = 240 }, true},
		{"zero quality", func(c *Config) { c.Quality = 0 }, true},
		{"environment facing", func(c *Config) { c.FacingMode = "environment" }, false},
		{"bogus facing", func(c *Config) { c.FacingMode = "sideways" }, true},
		{"empty facing", func(c *Config) { c.FacingMode = "" }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			errs := cfg.Validate()
			if (len(errs) > 0) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", errs, tt.wantErr)
			}
		})
	}
}

func TestGetPreset(t *testing.T) {
	for _, name := range PresetNames() {
		if GetPreset(name) == nil {
			t.Errorf("preset %q missing", name)
		}
	}
	if GetPreset("8k") != nil {
		t.Error("unknown preset returned a config")
	}
	if GetPreset("") != nil {
		t.Error("empty preset name returned a config")
	}
}

func TestPresetsAreValid(t *testing.T) {
	for name, cfg := range Presets() {
		if errs := cfg.Validate(); len(errs) > 0 {
			t.Errorf("preset %q invalid: %v", name, errs)
		}
	}
}

func TestFallbackLadder(t *testing.T) {
	req := HD1080Config()
	req.Framerate = 24
	req.FacingMode = "environment"

	ladder := FallbackLadder(req)

	if ladder[0] != req {
		t.Fatalf("ladder[0] = %+v, want the request itself", ladder[0])
	}

	last := ladder[len(ladder)-1]
	if last.Width != 320 || last.Height != 240 {
		t.Errorf("ladder ends at %dx%d, want the QVGA anchor", last.Width, last.Height)
	}

	for i := 1; i < len(ladder); i++ {
		rung := ladder[i]
		if rung.Width >= req.Width && rung.Height >= req.Height {
			t.Errorf("rung %d (%dx%d) is not smaller than the request", i, rung.Width, rung.Height)
		}
		if rung.Framerate != req.Framerate {
			t.Errorf("rung %d framerate = %d, want the request's %d", i, rung.Framerate, req.Framerate)
		}
		if rung.FacingMode != req.FacingMode {
			t.Errorf("rung %d facing = %q, want %q", i, rung.FacingMode, req.FacingMode)
		}
	}

	for i := 2; i < len(ladder); i++ {
		if ladder[i].Width > ladder[i-1].Width {
			t.Errorf("ladder not descending at rung %d", i)
		}
	}
}

func TestFallbackLadderFromQVGA(t *testing.T) {
	ladder := FallbackLadder(QVGAConfig())
	if len(ladder) != 1 {
		t.Fatalf("ladder for the smallest preset has %d rungs, want 1", len(ladder))
	}
}

func TestSettingsMatches(t *testing.T) {
	req := DefaultConfig()

	exact := Settings{Width: 640, Height: 480, Framerate: 30}
	if !exact.Matches(req) {
		t.Error("exact settings do not match")
	}

	rounded := Settings{Width: 640, Height: 480, Framerate: 29.97}
	if !rounded.Matches(req) {
		t.Error("framerate rounding failed the match; framerate is advisory")
	}

	clamped := Settings{Width: 320, Height: 240, Framerate: 30}
	if clamped.Matches(req) {
		t.Error("clamped resolution matched the request")
	}
}
