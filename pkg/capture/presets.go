package capture

// Preset names for common resolutions.
const (
	PresetQVGA   = "qvga"
	PresetVGA    = "vga"
	Preset720p   = "720p"
	Preset1080p  = "1080p"
	Preset4K     = "4k"
	PresetLowFPS = "lowfps"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetQVGA:   QVGAConfig(),
		PresetVGA:    DefaultConfig(),
		Preset720p:   HD720Config(),
		Preset1080p:  HD1080Config(),
		Preset4K:     UHD4KConfig(),
		PresetLowFPS: LowFPSConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetQVGA,
		PresetVGA,
		Preset720p,
		Preset1080p,
		Preset4K,
		PresetLowFPS,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// QVGAConfig returns the smallest supported configuration.
// Every webcam driver accepts this, so it anchors the fallback ladder.
func QVGAConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 320
	cfg.Height = 240
	return cfg
}

// HD720Config returns 720p HD configuration.
func HD720Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// HD1080Config returns 1080p Full HD configuration.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// UHD4KConfig returns 4K UHD configuration.
// Lower framerate keeps USB bandwidth manageable.
func UHD4KConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 3840
	cfg.Height = 2160
	cfg.Framerate = 15
	return cfg
}

// LowFPSConfig trades framerate for reliability on constrained hosts.
func LowFPSConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 10
	return cfg
}

// FallbackLadder returns the negotiation order for a requested config:
// the request itself first, then every preset strictly smaller than the
// request in descending size. The ladder always ends at QVGA so
// negotiation degrades instead of failing outright when the device
// rejects the requested constraints.
func FallbackLadder(req Config) []Config {
	ladder := []Config{req}

	ordered := []Config{UHD4KConfig(), HD1080Config(), HD720Config(), DefaultConfig(), QVGAConfig()}
	for _, p := range ordered {
		if p.Width >= req.Width && p.Height >= req.Height {
			continue
		}
		// Carry the requested framerate and facing mode down the ladder.
		p.Framerate = req.Framerate
		p.FacingMode = req.FacingMode
		p.Quality = req.Quality
		ladder = append(ladder, p)
	}

	last := ladder[len(ladder)-1]
	if last.Width != 320 || last.Height != 240 {
		anchor := QVGAConfig()
		anchor.Framerate = req.Framerate
		anchor.FacingMode = req.FacingMode
		anchor.Quality = req.Quality
		ladder = append(ladder, anchor)
	}

	return ladder
}
