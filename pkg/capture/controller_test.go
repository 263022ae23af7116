package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

// scriptedDevice negotiates according to a fixed accept table.
type scriptedDevice struct {
	// accepts maps "WxH" requests to the settings the driver reports.
	// Requests not in the table are clamped to the clamp settings.
	accepts map[[2]int]Settings
	clamp   Settings
	openErr error

	opens  int
	closes int
	ready  bool
}

func (d *scriptedDevice) Open(cfg Config) (Settings, error) {
	d.opens++
	if d.openErr != nil {
		return Settings{}, d.openErr
	}
	if s, ok := d.accepts[[2]int{cfg.Width, cfg.Height}]; ok {
		return s, nil
	}
	return d.clamp, nil
}

func (d *scriptedDevice) ReadInto(dst *gocv.Mat, size int) error { return nil }
func (d *scriptedDevice) Ready() bool                            { return d.ready }

func (d *scriptedDevice) Close() error {
	d.closes++
	return nil
}

func TestStartAcceptsExactMatch(t *testing.T) {
	device := &scriptedDevice{
		accepts: map[[2]int]Settings{
			{1280, 720}: {Width: 1280, Height: 720, Framerate: 30},
		},
	}
	c := NewController(device)

	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720

	sess, err := c.Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.ID == "" {
		t.Error("session has no id")
	}
	if sess.Settings.Width != 1280 || sess.Settings.Height != 720 {
		t.Errorf("settings = %+v, want 1280x720", sess.Settings)
	}
	if device.opens != 1 {
		t.Errorf("opens = %d, want 1 (first rung matched)", device.opens)
	}
}

func TestStartFallsBackToSmallerPreset(t *testing.T) {
	// Driver clamps everything above VGA.
	device := &scriptedDevice{
		accepts: map[[2]int]Settings{
			{640, 480}: {Width: 640, Height: 480, Framerate: 30},
			{320, 240}: {Width: 320, Height: 240, Framerate: 30},
		},
		clamp: Settings{Width: 640, Height: 480},
	}
	c := NewController(device)

	var published Settings
	c.OnSettings = func(s Settings) { published = s }

	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080

	sess, err := c.Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Settings.Width != 640 || sess.Settings.Height != 480 {
		t.Errorf("negotiated %+v, want the first accepted smaller preset 640x480", sess.Settings)
	}
	if published != sess.Settings {
		t.Errorf("OnSettings got %+v, want %+v", published, sess.Settings)
	}
	// Each clamped rung is closed before trying the next.
	if device.closes == 0 {
		t.Error("clamped rungs were never closed")
	}
}

func TestStartAcceptsClampedFinalRung(t *testing.T) {
	// Driver clamps every request to 160x120.
	device := &scriptedDevice{
		clamp: Settings{Width: 160, Height: 120, Framerate: 30},
	}
	c := NewController(device)

	sess, err := c.Start(DefaultConfig())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if sess.Settings.Width != 160 || sess.Settings.Height != 120 {
		t.Errorf("settings = %+v, want clamped 160x120 from the final rung", sess.Settings)
	}
}

func TestStartFailsWhenDeviceUnavailable(t *testing.T) {
	device := &scriptedDevice{openErr: errors.New("no such device")}
	c := NewController(device)

	if _, err := c.Start(DefaultConfig()); err == nil {
		t.Fatal("expected error when every rung fails to open")
	}
	if _, ok := c.Session(); ok {
		t.Error("failed Start left an active session")
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	device := &scriptedDevice{}
	c := NewController(device)

	cfg := DefaultConfig()
	cfg.Width = 0

	if _, err := c.Start(cfg); err == nil {
		t.Fatal("expected validation error")
	}
	if device.opens != 0 {
		t.Errorf("device opened %d times for an invalid config", device.opens)
	}
}

func TestStartReplacesActiveSession(t *testing.T) {
	device := &scriptedDevice{
		accepts: map[[2]int]Settings{
			{640, 480}: {Width: 640, Height: 480},
			{320, 240}: {Width: 320, Height: 240},
		},
	}
	c := NewController(device)

	first, err := c.Start(DefaultConfig())
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	second, err := c.Start(QVGAConfig())
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}

	if first.ID == second.ID {
		t.Error("replacement session reused the old id")
	}
	if device.closes == 0 {
		t.Error("old session's device was never closed")
	}
	if got, _ := c.Settings(); got.Width != 320 {
		t.Errorf("active settings = %+v, want the replacement's", got)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	device := &scriptedDevice{
		accepts: map[[2]int]Settings{{640, 480}: {Width: 640, Height: 480}},
	}
	c := NewController(device)

	if _, err := c.Start(DefaultConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	c.Stop()
	c.Stop()

	if _, ok := c.Session(); ok {
		t.Error("session survived Stop")
	}
	if device.closes != 1 {
		t.Errorf("closes = %d, want 1", device.closes)
	}
}

func TestFrameReadyRequiresSessionAndDevice(t *testing.T) {
	device := &scriptedDevice{
		accepts: map[[2]int]Settings{{640, 480}: {Width: 640, Height: 480}},
	}
	c := NewController(device)

	if c.FrameReady() {
		t.Error("FrameReady true without a session")
	}

	if _, err := c.Start(DefaultConfig()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if c.FrameReady() {
		t.Error("FrameReady true while the device has no frame")
	}

	device.ready = true
	if !c.FrameReady() {
		t.Error("FrameReady false with a session and a decodable frame")
	}
}

func TestCaptureIntoWithoutSession(t *testing.T) {
	c := NewController(&scriptedDevice{})

	var dst gocv.Mat
	if err := c.CaptureInto(&dst, 300); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}
