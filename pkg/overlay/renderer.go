package overlay

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/camwatch/go-camwatch/pkg/detect"
)

// Style controls overlay colors and line weight.
type Style struct {
	Box       color.RGBA
	LabelBg   color.RGBA
	LabelText color.RGBA
	Thickness int
	TextPad   int
}

// DefaultStyle returns the dashboard's green-box overlay style.
func DefaultStyle() Style {
	green := color.RGBA{R: 0, G: 220, B: 80, A: 255}
	return Style{
		Box:       green,
		LabelBg:   green,
		LabelText: color.RGBA{A: 255},
		Thickness: 2,
		TextPad:   2,
	}
}

// DefaultThreshold is the confidence cutoff applied when none is
// configured.
const DefaultThreshold = 0.7

// Renderer draws one detection batch per call. It is a pure function
// of the batch, the threshold and the surface's current size; the only
// mutable state is the runtime-tunable threshold.
type Renderer struct {
	mu        sync.RWMutex
	threshold float32
	style     Style
}

// NewRenderer creates a renderer with the given confidence threshold.
func NewRenderer(threshold float32) *Renderer {
	return &Renderer{threshold: threshold, style: DefaultStyle()}
}

// Threshold returns the current confidence cutoff.
func (r *Renderer) Threshold() float32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.threshold
}

// SetThreshold adjusts the confidence cutoff at runtime. Values are
// clamped to [0, 1].
func (r *Renderer) SetThreshold(t float32) {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	r.mu.Lock()
	r.threshold = t
	r.mu.Unlock()
}

// Draw clears the surface and draws every detection at or above the
// threshold: a rectangle outline plus a filled label background with
// the class id and score. Returns the number of detections drawn.
func (r *Renderer) Draw(s Surface, dets []detect.Detection) int {
	threshold := r.Threshold()
	style := r.style

	width, height := s.Size()
	s.Clear()

	drawn := 0
	for _, d := range dets {
		if d.Score < threshold {
			continue
		}

		rect := d.Box.Rect(width, height)
		s.StrokeRect(rect, style.Box, style.Thickness)

		label := fmt.Sprintf("Class %d: %.1f%%", d.ClassID, float64(d.Score)*100)
		tw, th := s.MeasureText(label)

		pad := style.TextPad
		bg := image.Rect(
			rect.Min.X,
			rect.Min.Y-th-2*pad,
			rect.Min.X+tw+2*pad,
			rect.Min.Y,
		)
		// Keep the label on-surface when the box touches the top edge.
		if bg.Min.Y < 0 {
			bg = bg.Add(image.Pt(0, th+2*pad))
		}

		s.FillRect(bg, style.LabelBg)
		s.DrawText(label, image.Pt(bg.Min.X+pad, bg.Max.Y-pad), style.LabelText)
		drawn++
	}
	return drawn
}
