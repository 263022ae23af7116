package capture

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Webcam is the gocv-backed Device for local USB/CSI cameras.
// It keeps one reusable full-resolution Mat so per-frame reads do not
// allocate.
type Webcam struct {
	id       int
	cap      *gocv.VideoCapture
	frame    gocv.Mat
	gotFrame bool
}

// NewWebcam creates a device wrapper for the given V4L2 device index.
func NewWebcam(id int) *Webcam {
	return &Webcam{
		id:    id,
		frame: gocv.NewMat(),
	}
}

// Open opens the device and applies the requested constraints. The
// driver clamps unsupported resolutions, so the reported settings are
// read back rather than assumed.
func (w *Webcam) Open(cfg Config) (Settings, error) {
	if w.cap != nil {
		w.cap.Close()
		w.cap = nil
	}

	cap, err := gocv.OpenVideoCapture(w.id)
	if err != nil {
		return Settings{}, fmt.Errorf("%w: device %d: %v", ErrNoDevice, w.id, err)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))

	w.cap = cap
	w.gotFrame = false

	return Settings{
		Width:      int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(cap.Get(gocv.VideoCaptureFrameHeight)),
		Framerate:  cap.Get(gocv.VideoCaptureFPS),
		FacingMode: cfg.FacingMode,
	}, nil
}

// ReadInto decodes the next frame and scales it into dst.
func (w *Webcam) ReadInto(dst *gocv.Mat, size int) error {
	if w.cap == nil {
		return ErrNoSession
	}
	if !w.cap.Read(&w.frame) || w.frame.Empty() {
		return ErrFrameRead
	}
	w.gotFrame = true

	gocv.Resize(w.frame, dst, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)
	return nil
}

// Ready reports whether the device has delivered at least one frame.
// The first call probes the device with a read, since V4L2 cameras need
// a frame or two to start streaming.
func (w *Webcam) Ready() bool {
	if w.cap == nil {
		return false
	}
	if !w.gotFrame {
		if w.cap.Read(&w.frame) && !w.frame.Empty() {
			w.gotFrame = true
		}
	}
	return w.gotFrame
}

// Close releases the device and its frame buffer. The device can be
// reopened afterwards, so a fresh buffer is armed on the way out.
func (w *Webcam) Close() error {
	if w.cap != nil {
		w.cap.Close()
		w.cap = nil
	}
	w.gotFrame = false
	err := w.frame.Close()
	w.frame = gocv.NewMat()
	return err
}
