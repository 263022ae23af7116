package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/camwatch/go-camwatch/internal/log"
)

// Session is an opaque handle to one active camera stream.
type Session struct {
	ID        string    `json:"id"`
	Settings  Settings  `json:"settings"`
	StartedAt time.Time `json:"started_at"`
}

// Controller negotiates stream sessions against a Device and enforces
// the single-active-session invariant: starting a session replaces any
// previous one (stop-then-restart), and only an explicit Stop or a new
// Start destroys a session.
type Controller struct {
	device Device

	mu     sync.RWMutex
	active *Session

	// OnSettings is invoked with the negotiated settings whenever a
	// session starts or is replaced. Consumers use it to resize their
	// display surfaces; it never restarts capture.
	OnSettings func(Settings)
}

// NewController creates a controller around the given device.
func NewController(device Device) *Controller {
	return &Controller{device: device}
}

// Start negotiates a stream at the requested resolution, walking the
// fallback ladder until the device accepts a rung exactly. If every
// rung is clamped by the driver, the final rung's reported settings are
// accepted as-is so capture degrades instead of failing.
func (c *Controller) Start(cfg Config) (Session, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return Session{}, fmt.Errorf("capture: invalid config: %v", errs)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Replace any active session.
	if c.active != nil {
		c.device.Close()
		c.active = nil
	}

	ladder := FallbackLadder(cfg)

	var (
		settings Settings
		lastErr  error
		accepted bool
	)
	for i, rung := range ladder {
		s, err := c.device.Open(rung)
		if err != nil {
			lastErr = err
			continue
		}
		if s.Matches(rung) || i == len(ladder)-1 {
			settings = s
			accepted = true
			if !s.Matches(rung) {
				log.Warn("camera clamped final rung",
					"requested_width", rung.Width, "requested_height", rung.Height,
					"got_width", s.Width, "got_height", s.Height)
			}
			break
		}
		// Driver clamped this rung; fall back to a smaller one.
		log.Debug("camera rejected constraints",
			"width", rung.Width, "height", rung.Height)
		c.device.Close()
	}
	if !accepted {
		if lastErr == nil {
			lastErr = ErrNoDevice
		}
		return Session{}, fmt.Errorf("capture: negotiation failed: %w", lastErr)
	}

	sess := &Session{
		ID:        uuid.NewString(),
		Settings:  settings,
		StartedAt: time.Now(),
	}
	c.active = sess
	callback := c.OnSettings

	log.Info("stream session started",
		"session", sess.ID,
		"width", settings.Width, "height", settings.Height,
		"framerate", settings.Framerate)

	if callback != nil {
		callback(settings)
	}

	return *sess, nil
}

// Stop destroys the active session, if any. Idempotent.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active == nil {
		return
	}
	log.Info("stream session stopped", "session", c.active.ID)
	c.device.Close()
	c.active = nil
}

// Session returns the active session, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return Session{}, false
	}
	return *c.active, true
}

// Settings returns the negotiated settings of the active session.
func (c *Controller) Settings() (Settings, bool) {
	sess, ok := c.Session()
	return sess.Settings, ok
}

// FrameReady reports whether the active session has a decodable frame.
// It is the inference loop's per-tick precondition.
func (c *Controller) FrameReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active != nil && c.device.Ready()
}

// CaptureInto snapshots the current frame scaled to size x size pixels
// into dst.
func (c *Controller) CaptureInto(dst *gocv.Mat, size int) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.active == nil {
		return ErrNoSession
	}
	return c.device.ReadInto(dst, size)
}
