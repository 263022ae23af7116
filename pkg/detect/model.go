// Package detect provides the object-detection model boundary: tensor
// buffers with explicit release, an asynchronous execute contract, and
// decoding of fixed-format detection outputs.
package detect

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	// ErrModelClosed is returned by Execute after Close.
	ErrModelClosed = errors.New("detect: model closed")
	// ErrBadInput is returned when the input tensor is not usable by
	// the model implementation.
	ErrBadInput = errors.New("detect: unsupported input tensor")
)

// Tensor is a numeric buffer matching a model input or output shape.
// Tensors hold native resources; every tensor must be closed on every
// exit path, success or failure.
type Tensor interface {
	// Shape returns the tensor dimensions, e.g. [1, 300, 300, 3].
	Shape() []int
	// Floats returns the flattened element data.
	Floats() []float32
	Close() error
}

// Model executes object detection over a square input frame tensor and
// returns an ordered collection of output tensors. The caller owns the
// returned tensors and must close each of them.
//
// Which output index carries boxes, scores and class ids is a property
// of the exported graph, not of this interface; see OutputMap.
type Model interface {
	Execute(ctx context.Context, input Tensor) ([]Tensor, error)

	// InputSize is the square input edge in pixels.
	InputSize() int

	Close() error
}

// CloseAll closes every tensor in outputs, keeping the first error.
func CloseAll(outputs []Tensor) error {
	var first error
	for _, t := range outputs {
		if t == nil {
			continue
		}
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
