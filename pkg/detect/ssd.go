package detect

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// SSDConfig holds the SSD detector configuration.
type SSDConfig struct {
	ModelPath  string // ONNX or frozen graph file
	ConfigPath string // optional graph config (e.g. .pbtxt), "" for none
	InputSize  int
	Preprocess Preprocess

	// OutputNames orders the graph's output layers; Execute returns
	// tensors in this order. Empty means the net's single default
	// output.
	OutputNames []string
}

// DefaultSSDConfig returns production defaults for SSD MobileNet.
func DefaultSSDConfig() SSDConfig {
	return SSDConfig{
		ModelPath:  "models/ssd_mobilenet.onnx",
		InputSize:  300,
		Preprocess: DefaultPreprocess(),
	}
}

// SSDModel runs a single-shot detector through the gocv DNN module.
type SSDModel struct {
	net    gocv.Net
	cfg    SSDConfig
	mu     sync.Mutex
	closed bool
}

// NewSSD loads the detector graph.
func NewSSD(cfg SSDConfig) (*SSDModel, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("detect: model file not found: %s", cfg.ModelPath)
	}
	if cfg.InputSize <= 0 {
		cfg.InputSize = 300
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("detect: failed to load model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &SSDModel{net: net, cfg: cfg}, nil
}

// InputSize returns the square input edge in pixels.
func (m *SSDModel) InputSize() int {
	return m.cfg.InputSize
}

// Execute runs a forward pass over the input tensor, which must come
// from FrameTensor. The caller owns and must close the returned
// tensors.
func (m *SSDModel) Execute(ctx context.Context, input Tensor) ([]Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mt, ok := input.(*matTensor)
	if !ok {
		return nil, ErrBadInput
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrModelClosed
	}

	m.net.SetInput(mt.mat, "")

	if len(m.cfg.OutputNames) == 0 {
		out := m.net.Forward("")
		if out.Empty() {
			out.Close()
			return nil, fmt.Errorf("detect: forward pass produced no output")
		}
		return []Tensor{&matTensor{mat: out}}, nil
	}

	mats := m.net.ForwardLayers(m.cfg.OutputNames)
	outputs := make([]Tensor, 0, len(mats))
	for i := range mats {
		outputs = append(outputs, &matTensor{mat: mats[i]})
	}
	return outputs, nil
}

// Close releases the network. Execute fails afterwards.
func (m *SSDModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.net.Close()
}
