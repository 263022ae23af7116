// Package capture acquires a camera stream at a requested resolution
// with graceful constraint fallback and republishes the negotiated
// settings. It owns at most one active stream session at a time.
package capture

// Config holds the requested stream constraints.
type Config struct {
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Target FPS

	// FacingMode selects between front ("user") and rear
	// ("environment") cameras on devices that have both.
	FacingMode string `json:"facing_mode"`

	// Quality is the JPEG quality (1-100) used when frames are
	// republished to dashboard clients.
	Quality int `json:"quality"`
}

// Reasonable driver limits for USB cameras.
const (
	MinWidth  = 160
	MinHeight = 120
	MaxWidth  = 3840
	MaxHeight = 2160
)

// DefaultConfig returns the recommended stream configuration.
// 640x480 keeps the capture-to-inference path cheap; higher presets are
// available for display quality.
func DefaultConfig() Config {
	return Config{
		Width:      640,
		Height:     480,
		Framerate:  30,
		FacingMode: "user",
		Quality:    85,
	}
}

// Validate checks the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Width < MinWidth || c.Width > MaxWidth {
		errs = append(errs, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errs = append(errs, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > 120 {
		errs = append(errs, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, "quality must be between 1 and 100")
	}

	validFacing := map[string]bool{"": true, "user": true, "environment": true}
	if !validFacing[c.FacingMode] {
		errs = append(errs, "facing_mode must be user or environment")
	}

	return errs
}
