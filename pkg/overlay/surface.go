// Package overlay draws decoded detections onto a render surface as
// rectangle outlines with labelled confidence scores.
package overlay

import (
	"image"
	"image/color"
)

// Surface is the 2D render target the renderer draws on. Implementations
// wrap a gocv Mat (MatSurface) or a plain Go image (ImageSurface).
type Surface interface {
	// Size returns the surface's current pixel dimensions.
	Size() (width, height int)

	// Clear erases the previous batch. Overlay content never
	// accumulates across ticks.
	Clear()

	StrokeRect(r image.Rectangle, c color.RGBA, thickness int)
	FillRect(r image.Rectangle, c color.RGBA)

	// DrawText renders text with its baseline-left at origin.
	DrawText(text string, origin image.Point, c color.RGBA)

	// MeasureText returns the rendered extent of text.
	MeasureText(text string) (width, height int)
}
