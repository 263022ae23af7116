package overlay

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/camwatch/go-camwatch/pkg/detect"
)

// recordSurface captures draw calls for assertions.
type recordSurface struct {
	width, height int

	clears  int
	strokes []image.Rectangle
	fills   []image.Rectangle
	texts   []string
	origins []image.Point
}

func (s *recordSurface) Size() (int, int) { return s.width, s.height }
func (s *recordSurface) Clear()           { s.clears++ }

func (s *recordSurface) StrokeRect(r image.Rectangle, _ color.RGBA, _ int) {
	s.strokes = append(s.strokes, r)
}

func (s *recordSurface) FillRect(r image.Rectangle, _ color.RGBA) {
	s.fills = append(s.fills, r)
}

func (s *recordSurface) DrawText(text string, origin image.Point, _ color.RGBA) {
	s.texts = append(s.texts, text)
	s.origins = append(s.origins, origin)
}

func (s *recordSurface) MeasureText(text string) (int, int) {
	return len(text) * 7, 13
}

func TestDrawAboveThreshold(t *testing.T) {
	s := &recordSurface{width: 640, height: 480}
	r := NewRenderer(0.7)

	dets := []detect.Detection{
		{
			Box:     detect.Box{YMin: 0.1, XMin: 0.2, YMax: 0.5, XMax: 0.6},
			Score:   0.95,
			ClassID: 3,
		},
	}

	drawn := r.Draw(s, dets)
	if drawn != 1 {
		t.Fatalf("drawn = %d, want 1", drawn)
	}
	if s.clears != 1 {
		t.Errorf("clears = %d, want 1", s.clears)
	}
	if len(s.strokes) != 1 {
		t.Fatalf("strokes = %d, want 1", len(s.strokes))
	}

	want := image.Rect(128, 48, 384, 240)
	if s.strokes[0] != want {
		t.Errorf("box rect = %v, want %v", s.strokes[0], want)
	}

	if len(s.texts) != 1 {
		t.Fatalf("texts = %d, want 1", len(s.texts))
	}
	label := s.texts[0]
	if !strings.Contains(label, "Class 3") || !strings.Contains(label, "95.0%") {
		t.Errorf("label = %q, want class id and percent score", label)
	}
}

func TestDrawBelowThresholdClearsOnly(t *testing.T) {
	s := &recordSurface{width: 640, height: 480}
	r := NewRenderer(0.7)

	dets := []detect.Detection{
		{Box: detect.Box{YMax: 0.5, XMax: 0.5}, Score: 0.5, ClassID: 1},
	}

	drawn := r.Draw(s, dets)
	if drawn != 0 {
		t.Fatalf("drawn = %d, want 0", drawn)
	}
	if s.clears != 1 {
		t.Errorf("clears = %d, want 1: stale annotations must not persist", s.clears)
	}
	if len(s.strokes) != 0 || len(s.fills) != 0 || len(s.texts) != 0 {
		t.Errorf("surface received draws for a sub-threshold detection")
	}
}

func TestDrawEmptyBatchClears(t *testing.T) {
	s := &recordSurface{width: 300, height: 300}
	r := NewRenderer(0.7)

	if drawn := r.Draw(s, nil); drawn != 0 {
		t.Fatalf("drawn = %d, want 0", drawn)
	}
	if s.clears != 1 {
		t.Errorf("clears = %d, want 1", s.clears)
	}
}

func TestDrawLabelStaysOnSurface(t *testing.T) {
	s := &recordSurface{width: 640, height: 480}
	r := NewRenderer(0.5)

	// Box touching the top edge: the label background must be shifted
	// down instead of rendering at negative y.
	dets := []detect.Detection{
		{Box: detect.Box{YMin: 0, XMin: 0.1, YMax: 0.3, XMax: 0.4}, Score: 0.9},
	}
	r.Draw(s, dets)

	if len(s.fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(s.fills))
	}
	if s.fills[0].Min.Y < 0 {
		t.Errorf("label background extends above the surface: %v", s.fills[0])
	}
}

func TestDrawMixedBatch(t *testing.T) {
	s := &recordSurface{width: 640, height: 480}
	r := NewRenderer(0.7)

	dets := []detect.Detection{
		{Box: detect.Box{YMin: 0.1, XMin: 0.1, YMax: 0.2, XMax: 0.2}, Score: 0.9},
		{Box: detect.Box{YMin: 0.3, XMin: 0.3, YMax: 0.4, XMax: 0.4}, Score: 0.2},
		{Box: detect.Box{YMin: 0.5, XMin: 0.5, YMax: 0.6, XMax: 0.6}, Score: 0.7},
	}

	if drawn := r.Draw(s, dets); drawn != 2 {
		t.Errorf("drawn = %d, want 2 (threshold is inclusive)", drawn)
	}
}

func TestSetThresholdClamps(t *testing.T) {
	tests := []struct {
		name string
		in   float32
		want float32
	}{
		{"in range", 0.5, 0.5},
		{"below zero", -1, 0},
		{"above one", 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRenderer(0.7)
			r.SetThreshold(tt.in)
			if got := r.Threshold(); got != tt.want {
				t.Errorf("Threshold() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestThresholdChangeAppliesNextDraw(t *testing.T) {
	s := &recordSurface{width: 640, height: 480}
	r := NewRenderer(0.7)

	dets := []detect.Detection{
		{Box: detect.Box{YMax: 0.5, XMax: 0.5}, Score: 0.6},
	}
	if drawn := r.Draw(s, dets); drawn != 0 {
		t.Fatalf("drawn = %d before lowering threshold, want 0", drawn)
	}

	r.SetThreshold(0.5)
	if drawn := r.Draw(s, dets); drawn != 1 {
		t.Errorf("drawn = %d after lowering threshold, want 1", drawn)
	}
}
