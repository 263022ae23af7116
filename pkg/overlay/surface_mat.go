package overlay

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

const (
	matFont      = gocv.FontHersheySimplex
	matFontScale = 0.5
	matFontLine  = 1
)

// MatSurface renders onto a gocv Mat. With a background set, Clear
// repaints the current video frame under the overlay, which is how the
// live dashboard composes annotations over the camera feed.
type MatSurface struct {
	mat        *gocv.Mat
	background *gocv.Mat
}

// NewMatSurface wraps an existing Mat. The caller retains ownership of
// the Mat's lifetime.
func NewMatSurface(mat *gocv.Mat) *MatSurface {
	return &MatSurface{mat: mat}
}

// SetBackground sets the frame Clear repaints before each batch.
// Pass nil to clear to black instead.
func (s *MatSurface) SetBackground(bg *gocv.Mat) {
	s.background = bg
}

// Mat exposes the underlying Mat, e.g. for JPEG encoding.
func (s *MatSurface) Mat() *gocv.Mat {
	return s.mat
}

// Size returns the surface's pixel dimensions.
func (s *MatSurface) Size() (int, int) {
	return s.mat.Cols(), s.mat.Rows()
}

// Clear repaints the background frame, or black without one.
func (s *MatSurface) Clear() {
	if s.background != nil && !s.background.Empty() {
		s.background.CopyTo(s.mat)
		return
	}
	s.mat.SetTo(gocv.NewScalar(0, 0, 0, 0))
}

// StrokeRect draws a rectangle outline.
func (s *MatSurface) StrokeRect(r image.Rectangle, c color.RGBA, thickness int) {
	gocv.Rectangle(s.mat, r, c, thickness)
}

// FillRect draws a filled rectangle.
func (s *MatSurface) FillRect(r image.Rectangle, c color.RGBA) {
	gocv.Rectangle(s.mat, r, c, -1)
}

// DrawText renders text with its baseline-left at origin.
func (s *MatSurface) DrawText(text string, origin image.Point, c color.RGBA) {
	gocv.PutText(s.mat, text, origin, matFont, matFontScale, c, matFontLine)
}

// MeasureText returns the rendered extent of text.
func (s *MatSurface) MeasureText(text string) (int, int) {
	sz := gocv.GetTextSize(text, matFont, matFontScale, matFontLine)
	return sz.X, sz.Y
}
