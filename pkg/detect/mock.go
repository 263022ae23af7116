package detect

import (
	"context"
	"sync"
)

// MockModel is a scripted Model for tests. It hands out ValueTensors
// and remembers them so tests can assert every buffer was released.
type MockModel struct {
	mu        sync.Mutex
	inputSize int
	calls     int
	handed    []*ValueTensor

	// Err, when set, fails every Execute call.
	Err error

	// OutputsFn builds the output collection for one call. Nil means
	// an empty SSD-shaped batch.
	OutputsFn func() []Tensor
}

// NewMockModel creates a mock with the given input size.
func NewMockModel(inputSize int) *MockModel {
	return &MockModel{inputSize: inputSize}
}

// Execute returns the scripted outputs or error.
func (m *MockModel) Execute(ctx context.Context, input Tensor) ([]Tensor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.Err != nil {
		return nil, m.Err
	}

	var outputs []Tensor
	if m.OutputsFn != nil {
		outputs = m.OutputsFn()
	} else {
		outputs = StaticOutputs(nil, nil, nil)
	}

	for _, t := range outputs {
		if vt, ok := t.(*ValueTensor); ok {
			m.handed = append(m.handed, vt)
		}
	}
	return outputs, nil
}

// InputSize returns the configured input size.
func (m *MockModel) InputSize() int { return m.inputSize }

// Close is a no-op.
func (m *MockModel) Close() error { return nil }

// Calls returns how many times Execute was invoked.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Unreleased counts handed-out tensors that were never closed.
func (m *MockModel) Unreleased() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.handed {
		if !t.Closed() {
			n++
		}
	}
	return n
}

// StaticOutputs builds an SSD-ordered output collection (class ids at
// index 0, boxes at 1, scores at 4) for the given detections, matching
// DefaultSSDOutputMap.
func StaticOutputs(boxes [][4]float32, scores []float32, classes []int) []Tensor {
	n := len(scores)

	flatBoxes := make([]float32, 0, n*4)
	for _, b := range boxes {
		flatBoxes = append(flatBoxes, b[0], b[1], b[2], b[3])
	}
	floatClasses := make([]float32, 0, n)
	for _, c := range classes {
		floatClasses = append(floatClasses, float32(c))
	}

	return []Tensor{
		NewValueTensor([]int{1, n}, floatClasses),
		NewValueTensor([]int{1, n, 4}, flatBoxes),
		NewValueTensor([]int{1}, nil),
		NewValueTensor([]int{1}, nil),
		NewValueTensor([]int{1, n}, scores),
		NewValueTensor([]int{1}, nil),
	}
}
