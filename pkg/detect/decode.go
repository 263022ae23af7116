package detect

import (
	"fmt"
	"image"
)

// Box is a detection bounding box with normalized edges, each a
// fraction (0-1) of frame height or width.
type Box struct {
	YMin float32 `json:"ymin"`
	XMin float32 `json:"xmin"`
	YMax float32 `json:"ymax"`
	XMax float32 `json:"xmax"`
}

// Rect converts the normalized box to pixel space for a surface of the
// given dimensions.
func (b Box) Rect(width, height int) image.Rectangle {
	x0 := int(b.XMin * float32(width))
	y0 := int(b.YMin * float32(height))
	x1 := int(b.XMax * float32(width))
	y1 := int(b.YMax * float32(height))
	return image.Rect(x0, y0, x1, y1)
}

// Detection is one decoded detection record. Batches are ephemeral:
// they exist only between decode and draw within a single tick.
type Detection struct {
	Box     Box     `json:"box"`
	Score   float32 `json:"score"`
	ClassID int     `json:"class_id"`
}

// OutputMap locates boxes, scores and class ids inside a model's
// ordered output collection. The mapping is specific to one exported
// graph and must be configured per model, never hardcoded.
type OutputMap struct {
	Classes int `json:"classes"`
	Boxes   int `json:"boxes"`
	Scores  int `json:"scores"`
}

// DefaultSSDOutputMap returns the mapping used by the bundled SSD
// export: class ids at 0, boxes at 1, scores at 4.
func DefaultSSDOutputMap() OutputMap {
	return OutputMap{Classes: 0, Boxes: 1, Scores: 4}
}

// Validate checks the mapping fits a collection of n outputs.
func (m OutputMap) Validate(n int) error {
	for _, idx := range []int{m.Classes, m.Boxes, m.Scores} {
		if idx < 0 || idx >= n {
			return fmt.Errorf("detect: output index %d out of range (model returned %d outputs)", idx, n)
		}
	}
	return nil
}

// Decode unpacks the model's output collection into detection records.
// Boxes are flat [ymin,xmin,ymax,xmax] quads; scores and class ids are
// parallel arrays. At most limit records are returned (0 = no limit).
// Decode reads the tensors but does not close them.
func Decode(outputs []Tensor, m OutputMap, limit int) ([]Detection, error) {
	if err := m.Validate(len(outputs)); err != nil {
		return nil, err
	}

	boxes := outputs[m.Boxes].Floats()
	scores := outputs[m.Scores].Floats()
	classes := outputs[m.Classes].Floats()

	n := len(scores)
	if len(classes) < n {
		n = len(classes)
	}
	if len(boxes)/4 < n {
		n = len(boxes) / 4
	}
	if limit > 0 && n > limit {
		n = limit
	}

	dets := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		dets = append(dets, Detection{
			Box: Box{
				YMin: clamp01(boxes[i*4]),
				XMin: clamp01(boxes[i*4+1]),
				YMax: clamp01(boxes[i*4+2]),
				XMax: clamp01(boxes[i*4+3]),
			},
			Score:   scores[i],
			ClassID: int(classes[i]),
		})
	}
	return dets, nil
}

// DecodeCombined unpacks the single-tensor format the OpenCV DNN
// module emits for SSD graphs: one [1,1,N,7] output whose rows are
// [batch, class, score, left, top, right, bottom] with normalized
// corners. At most limit records are returned (0 = no limit). The
// tensor is read but not closed.
func DecodeCombined(t Tensor, limit int) []Detection {
	data := t.Floats()
	n := len(data) / 7
	if limit > 0 && n > limit {
		n = limit
	}

	dets := make([]Detection, 0, n)
	for i := 0; i < n; i++ {
		row := data[i*7 : i*7+7]
		dets = append(dets, Detection{
			Box: Box{
				XMin: clamp01(row[3]),
				YMin: clamp01(row[4]),
				XMax: clamp01(row[5]),
				YMax: clamp01(row[6]),
			},
			Score:   row[2],
			ClassID: int(row[1]),
		})
	}
	return dets
}

func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
