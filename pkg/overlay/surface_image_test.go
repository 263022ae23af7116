package overlay

import (
	"image"
	"image/color"
	"testing"

	"github.com/camwatch/go-camwatch/pkg/detect"
)

func TestImageSurfaceStrokeRect(t *testing.T) {
	s := NewImageSurface(100, 100)
	green := color.RGBA{G: 255, A: 255}

	s.StrokeRect(image.Rect(10, 10, 50, 50), green, 2)

	img := s.Image()
	if got := img.RGBAAt(10, 10); got != green {
		t.Errorf("corner pixel = %v, want %v", got, green)
	}
	if got := img.RGBAAt(30, 11); got != green {
		t.Errorf("top edge pixel = %v, want %v", got, green)
	}
	if got := img.RGBAAt(30, 30); got == green {
		t.Error("interior pixel is filled; outline must be hollow")
	}
}

func TestImageSurfaceClearResets(t *testing.T) {
	s := NewImageSurface(40, 40)
	red := color.RGBA{R: 255, A: 255}

	s.FillRect(image.Rect(0, 0, 40, 40), red)
	s.Clear()

	if got := s.Image().RGBAAt(20, 20); got == red {
		t.Error("pixel survived Clear")
	}
}

func TestImageSurfaceFillRectClips(t *testing.T) {
	s := NewImageSurface(20, 20)
	blue := color.RGBA{B: 255, A: 255}

	// Partially off-surface rectangles must not panic and must fill
	// the visible intersection.
	s.FillRect(image.Rect(-10, -10, 5, 5), blue)
	if got := s.Image().RGBAAt(2, 2); got != blue {
		t.Errorf("clipped fill pixel = %v, want %v", got, blue)
	}
}

func TestImageSurfaceMeasureText(t *testing.T) {
	s := NewImageSurface(10, 10)
	w, h := s.MeasureText("Class 3: 95.0%")
	if w <= 0 || h <= 0 {
		t.Errorf("MeasureText = (%d, %d), want positive extents", w, h)
	}

	w2, _ := s.MeasureText("Class 3: 95.0% and more")
	if w2 <= w {
		t.Errorf("longer text measured narrower: %d <= %d", w2, w)
	}
}

func TestRendererOnImageSurface(t *testing.T) {
	s := NewImageSurface(300, 300)
	r := NewRenderer(0.5)

	dets := []detect.Detection{
		{Box: detect.Box{YMin: 0.2, XMin: 0.2, YMax: 0.8, XMax: 0.8}, Score: 0.9, ClassID: 2},
	}
	if drawn := r.Draw(s, dets); drawn != 1 {
		t.Fatalf("drawn = %d, want 1", drawn)
	}

	// Box edge at x=60..66 (0.2*300 plus thickness), y=60.
	box := DefaultStyle().Box
	if got := s.Image().RGBAAt(60, 60); got != box {
		t.Errorf("box edge pixel = %v, want %v", got, box)
	}
}
