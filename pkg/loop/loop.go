// Package loop runs bounded-lifetime periodic inference: on a cadence
// it snapshots the current video frame into a reused offscreen buffer,
// submits it to the detection model, decodes the results and draws
// annotations onto a render surface.
//
// Ticks are strictly sequential. The next tick is scheduled only after
// the current tick's full body, including buffer cleanup, completes, so
// exactly one model execution is outstanding at any time. Any failure
// inside a tick degrades to a skipped frame; only Stop ends the loop.
package loop

import (
	"context"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/camwatch/go-camwatch/internal/log"
	"github.com/camwatch/go-camwatch/internal/metrics"
	"github.com/camwatch/go-camwatch/pkg/detect"
	"github.com/camwatch/go-camwatch/pkg/overlay"
)

// Mode selects the tick scheduling strategy.
type Mode string

const (
	// FixedInterval fires every configured number of milliseconds.
	FixedInterval Mode = "fixed-interval"
	// DisplaySynced fires once per display refresh.
	DisplaySynced Mode = "display-synced"
)

// FrameSource supplies video frames to the loop.
type FrameSource interface {
	// FrameReady reports whether at least one decoded frame is
	// available. An unready source skips inference for the tick but
	// never stops the loop.
	FrameReady() bool

	// CaptureInto snapshots the current frame scaled to size x size
	// pixels into dst.
	CaptureInto(dst *gocv.Mat, size int) error
}

// Config holds the loop's construction-time configuration.
type Config struct {
	// InputSize is the square model input edge in pixels.
	InputSize int

	// Scheduling selects the tick strategy.
	Scheduling Mode
	// Interval is the tick period for FixedInterval scheduling.
	Interval time.Duration
	// RefreshHz is the display refresh rate for DisplaySynced
	// scheduling.
	RefreshHz float64

	MaxDetections int
	OutputMap     detect.OutputMap
	Preprocess    detect.Preprocess
}

// DefaultConfig returns the recommended loop configuration.
func DefaultConfig() Config {
	return Config{
		InputSize:     300,
		Scheduling:    FixedInterval,
		Interval:      100 * time.Millisecond,
		RefreshHz:     60,
		MaxDetections: 20,
		OutputMap:     detect.DefaultSSDOutputMap(),
		Preprocess:    detect.DefaultPreprocess(),
	}
}

// NewScheduler builds the scheduling strategy the config selects.
func NewScheduler(cfg Config) Scheduler {
	if cfg.Scheduling == DisplaySynced {
		return NewRefreshScheduler(cfg.RefreshHz)
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return NewIntervalScheduler(interval)
}

// Loop is the periodic inference loop. Start and Stop are safe to call
// from any goroutine; the tick body only ever runs on one timer
// callback at a time.
type Loop struct {
	cfg      Config
	source   FrameSource
	model    detect.Model
	renderer *overlay.Renderer
	surface  overlay.Surface
	sched    Scheduler

	mu      sync.Mutex
	running bool
	pending Handle

	// tickMu is held for the whole tick body so Close can wait out an
	// in-flight tick before freeing the frame buffer.
	tickMu    sync.Mutex
	closeOnce sync.Once

	// buf is the fixed-size offscreen frame buffer, owned exclusively
	// by the loop and overwritten each tick.
	buf gocv.Mat

	// frameTensor converts the buffer to the model input; swapped in
	// tests.
	frameTensor func(gocv.Mat, int, detect.Preprocess) (detect.Tensor, error)

	// OnTick, when set, receives each tick's captured frame, decoded
	// batch and drawn count after annotations are rendered. It runs
	// inside the tick, so it must not block or retain frame.
	OnTick func(frame *gocv.Mat, dets []detect.Detection, drawn int)

	stats *metrics.Metrics
}

// New creates an inference loop. The scheduler strategy is fixed at
// construction from cfg.Scheduling.
func New(cfg Config, source FrameSource, model detect.Model, renderer *overlay.Renderer, surface overlay.Surface) *Loop {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 300
	}
	return &Loop{
		cfg:         cfg,
		source:      source,
		model:       model,
		renderer:    renderer,
		surface:     surface,
		sched:       NewScheduler(cfg),
		buf:         gocv.NewMatWithSize(cfg.InputSize, cfg.InputSize, gocv.MatTypeCV8UC3),
		frameTensor: detect.FrameTensor,
	}
}

// SetMetrics attaches a metrics sink. Optional.
func (l *Loop) SetMetrics(m *metrics.Metrics) {
	l.stats = m
}

// FrameBuffer returns the loop's capture buffer. A Mat-backed surface
// can use it as its Clear background so each batch is drawn over the
// frame it was decoded from. The buffer is only safe to read inside
// the tick (renderer and OnTick).
func (l *Loop) FrameBuffer() *gocv.Mat {
	return &l.buf
}

// Running reports whether the loop is started.
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Start begins ticking. Idempotent: calling Start on a running loop
// schedules nothing new.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.pending = l.sched.Schedule(l.tick)
	log.Info("inference loop started", "scheduling", string(l.cfg.Scheduling), "input_size", l.cfg.InputSize)
}

// Stop halts ticking. Idempotent. A tick already past its running
// check finishes its model call and cleanup but will not reschedule;
// cancellation is bounded, not instantaneous.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	l.running = false
	if l.pending != nil {
		l.pending.Cancel()
		l.pending = nil
	}
	log.Info("inference loop stopped")
}

// Close stops the loop and releases the frame buffer, waiting for an
// in-flight tick to finish first so the buffer is never freed under a
// native read.
func (l *Loop) Close() error {
	l.Stop()
	l.tickMu.Lock()
	defer l.tickMu.Unlock()
	var err error
	l.closeOnce.Do(func() { err = l.buf.Close() })
	return err
}

// tick runs one capture-infer-draw pass, then re-arms the scheduler.
// A late timer fire after Stop is a no-op.
func (l *Loop) tick() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.pending = nil
	l.mu.Unlock()

	l.tickMu.Lock()
	l.runOnce(context.Background())
	l.tickMu.Unlock()

	// Re-arm only if no other tick is pending: a Stop/Start cycle while
	// this tick was executing already armed the next one, and arming a
	// second would fork the tick chain.
	l.mu.Lock()
	if l.running && l.pending == nil {
		l.pending = l.sched.Schedule(l.tick)
	}
	l.mu.Unlock()
}

// runOnce executes the tick body. Every failure is logged and treated
// as a skipped frame; nothing propagates.
func (l *Loop) runOnce(ctx context.Context) {
	if l.stats != nil {
		l.stats.TicksTotal.Add(1)
	}

	if !l.source.FrameReady() {
		if l.stats != nil {
			l.stats.TicksSkipped.Add(1)
		}
		log.Debug("tick skipped: no frame ready")
		return
	}

	if err := l.source.CaptureInto(&l.buf, l.cfg.InputSize); err != nil {
		if l.stats != nil {
			l.stats.CaptureErrors.Add(1)
		}
		log.Warn("frame capture failed", "err", err)
		return
	}

	input, err := l.frameTensor(l.buf, l.cfg.InputSize, l.cfg.Preprocess)
	if err != nil {
		log.Warn("frame conversion failed", "err", err)
		return
	}
	defer input.Close()

	start := time.Now()
	outputs, err := l.model.Execute(ctx, input)
	if err != nil {
		if l.stats != nil {
			l.stats.InferenceFailures.Add(1)
		}
		log.Warn("model execution failed", "err", err)
		return
	}
	defer detect.CloseAll(outputs)

	if l.stats != nil {
		l.stats.ObserveInferenceLatency(time.Since(start))
	}

	// A single output is the DNN module's combined detection tensor;
	// multi-output graphs go through the configured index mapping.
	var dets []detect.Detection
	if len(outputs) == 1 {
		dets = detect.DecodeCombined(outputs[0], l.cfg.MaxDetections)
	} else {
		dets, err = detect.Decode(outputs, l.cfg.OutputMap, l.cfg.MaxDetections)
		if err != nil {
			if l.stats != nil {
				l.stats.InferenceFailures.Add(1)
			}
			log.Warn("output decode failed", "err", err)
			return
		}
	}

	drawn := l.renderer.Draw(l.surface, dets)
	if l.stats != nil {
		l.stats.DetectionsDrawn.Add(uint64(drawn))
	}

	if l.OnTick != nil {
		l.OnTick(&l.buf, dets, drawn)
	}
}
