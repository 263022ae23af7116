package capture

import (
	"errors"

	"gocv.io/x/gocv"
)

// Sentinel errors callers branch on.
var (
	// ErrNoDevice is returned when the platform camera cannot be opened.
	ErrNoDevice = errors.New("capture: no camera device available")
	// ErrNoSession is returned by frame operations when no stream
	// session is active.
	ErrNoSession = errors.New("capture: no active stream session")
	// ErrFrameRead is returned when the device fails to decode a frame.
	ErrFrameRead = errors.New("capture: frame read failed")
)

// Settings are the stream parameters a device actually negotiated,
// which may differ from the requested Config.
type Settings struct {
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Framerate  float64 `json:"framerate"`
	FacingMode string  `json:"facing_mode"`
}

// Matches reports whether the negotiated resolution equals the request.
// Framerate is advisory: drivers routinely round it, so it never fails
// a negotiation rung.
func (s Settings) Matches(req Config) bool {
	return s.Width == req.Width && s.Height == req.Height
}

// Device abstracts the platform camera so session negotiation is
// testable without hardware.
type Device interface {
	// Open configures the device for cfg and reports the settings it
	// actually negotiated. Drivers may clamp the request to what the
	// hardware supports; the reported settings are authoritative.
	Open(cfg Config) (Settings, error)

	// ReadInto decodes the current frame scaled to size x size pixels
	// into dst, which must be a pre-allocated buffer.
	ReadInto(dst *gocv.Mat, size int) error

	// Ready reports whether the device has at least one decodable frame.
	Ready() bool

	Close() error
}
