package detect

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Preprocess controls how a captured frame becomes the model's input
// tensor.
type Preprocess struct {
	// Scale multiplies every channel value. 1.0 keeps integer-range
	// channels, which is what the reference SSD export expects;
	// models trained on normalized input use 1/255.
	Scale float64

	// Mean is subtracted per channel before scaling.
	Mean [3]float64

	// SwapRB swaps blue and red channels for models trained on RGB
	// (capture frames are BGR).
	SwapRB bool
}

// DefaultPreprocess returns the integer-channel SSD preprocessing.
func DefaultPreprocess() Preprocess {
	return Preprocess{Scale: 1.0, SwapRB: true}
}

// matTensor wraps a gocv.Mat as a Tensor.
type matTensor struct {
	mat gocv.Mat
}

func (t *matTensor) Shape() []int {
	return t.mat.Size()
}

func (t *matTensor) Floats() []float32 {
	data, err := t.mat.DataPtrFloat32()
	if err != nil {
		return nil
	}
	return data
}

func (t *matTensor) Close() error {
	return t.mat.Close()
}

// FrameTensor converts a square frame buffer into the model's input
// tensor. The caller must close the returned tensor.
func FrameTensor(frame gocv.Mat, size int, pp Preprocess) (Tensor, error) {
	if frame.Empty() {
		return nil, fmt.Errorf("detect: empty frame buffer")
	}

	blob := gocv.BlobFromImage(frame, pp.Scale, image.Pt(size, size),
		gocv.NewScalar(pp.Mean[0], pp.Mean[1], pp.Mean[2], 0), pp.SwapRB, false)
	if blob.Empty() {
		return nil, fmt.Errorf("detect: blob conversion failed")
	}

	return &matTensor{mat: blob}, nil
}

// ValueTensor is a plain in-memory tensor. It backs decoded model
// outputs in tests and tracks its own release for leak assertions.
type ValueTensor struct {
	shape  []int
	data   []float32
	closed bool
}

// NewValueTensor creates a tensor over the given data.
func NewValueTensor(shape []int, data []float32) *ValueTensor {
	return &ValueTensor{shape: shape, data: data}
}

// Shape returns the tensor dimensions.
func (t *ValueTensor) Shape() []int { return t.shape }

// Floats returns the element data, or nil once closed.
func (t *ValueTensor) Floats() []float32 {
	if t.closed {
		return nil
	}
	return t.data
}

// Close releases the tensor. Safe to call more than once.
func (t *ValueTensor) Close() error {
	t.closed = true
	return nil
}

// Closed reports whether the tensor has been released.
func (t *ValueTensor) Closed() bool { return t.closed }
