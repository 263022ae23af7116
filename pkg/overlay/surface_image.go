package overlay

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSurface renders onto a plain Go image with a fixed-width bitmap
// font. It needs no native dependencies, which makes it the surface of
// choice for headless snapshot rendering and tests.
type ImageSurface struct {
	img  *image.RGBA
	face font.Face
	bg   color.RGBA
}

// NewImageSurface creates a surface of the given dimensions, cleared
// to transparent.
func NewImageSurface(width, height int) *ImageSurface {
	return &ImageSurface{
		img:  image.NewRGBA(image.Rect(0, 0, width, height)),
		face: basicfont.Face7x13,
	}
}

// Image exposes the underlying image, e.g. for PNG/JPEG encoding.
func (s *ImageSurface) Image() *image.RGBA {
	return s.img
}

// Size returns the surface's pixel dimensions.
func (s *ImageSurface) Size() (int, int) {
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Clear fills the whole surface with the background color.
func (s *ImageSurface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(s.bg), image.Point{}, draw.Src)
}

// StrokeRect draws a rectangle outline as four filled edges.
func (s *ImageSurface) StrokeRect(r image.Rectangle, c color.RGBA, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness), c) // top
	s.FillRect(image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y), c) // bottom
	s.FillRect(image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y), c) // left
	s.FillRect(image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y), c) // right
}

// FillRect draws a filled rectangle clipped to the surface.
func (s *ImageSurface) FillRect(r image.Rectangle, c color.RGBA) {
	draw.Draw(s.img, r.Intersect(s.img.Bounds()), image.NewUniform(c), image.Point{}, draw.Src)
}

// DrawText renders text with its baseline-left at origin.
func (s *ImageSurface) DrawText(text string, origin image.Point, c color.RGBA) {
	d := font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: s.face,
		Dot:  fixed.P(origin.X, origin.Y),
	}
	d.DrawString(text)
}

// MeasureText returns the rendered extent of text.
func (s *ImageSurface) MeasureText(text string) (int, int) {
	d := font.Drawer{Face: s.face}
	w := d.MeasureString(text).Ceil()
	h := s.face.Metrics().Height.Ceil()
	return w, h
}
