// Camwatch - periodic object detection over a live camera feed
//
// Captures frames from a local webcam or a remote WebRTC producer,
// runs an SSD detector on a fixed cadence and serves the annotated
// results over a websocket dashboard.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gocv.io/x/gocv"

	"github.com/camwatch/go-camwatch/internal/config"
	"github.com/camwatch/go-camwatch/internal/log"
	"github.com/camwatch/go-camwatch/internal/metrics"
	"github.com/camwatch/go-camwatch/pkg/capture"
	"github.com/camwatch/go-camwatch/pkg/detect"
	"github.com/camwatch/go-camwatch/pkg/loop"
	"github.com/camwatch/go-camwatch/pkg/overlay"
	"github.com/camwatch/go-camwatch/pkg/remote"
	"github.com/camwatch/go-camwatch/pkg/web"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config (defaults apply when empty)")
	logLevel := flag.String("log-level", "", "Override log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config error: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	log.Init(cfg.Log.Level, cfg.Log.JSON)

	fmt.Println("📷 Camwatch")
	fmt.Printf("   Source: %s\n", cfg.Camera.Source)
	fmt.Printf("   Model:  %s\n", cfg.Model.Path)
	fmt.Printf("   Web:    http://localhost:%s\n", cfg.Web.Port)
	fmt.Println()

	stats := metrics.New()
	if cfg.Metrics.Enabled {
		stats.Serve(cfg.Metrics.Addr)
	}

	model, err := detect.NewSSD(detect.SSDConfig{
		ModelPath:   cfg.Model.Path,
		ConfigPath:  cfg.Model.ConfigPath,
		InputSize:   cfg.Model.InputSize,
		OutputNames: cfg.Model.OutputNames,
		Preprocess: detect.Preprocess{
			Scale:  cfg.Model.Scale,
			SwapRB: cfg.Model.SwapRB,
		},
	})
	if err != nil {
		log.Error("model load failed", "path", cfg.Model.Path, "err", err)
		os.Exit(1)
	}
	defer model.Close()

	source, controller, cleanup, err := openSource(cfg.Camera, stats)
	if err != nil {
		log.Error("camera setup failed", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	renderer := overlay.NewRenderer(float32(cfg.Loop.Threshold))
	display := gocv.NewMatWithSize(cfg.Model.InputSize, cfg.Model.InputSize, gocv.MatTypeCV8UC3)
	defer display.Close()
	surface := overlay.NewMatSurface(&display)

	l := loop.New(loop.Config{
		InputSize:     cfg.Model.InputSize,
		Scheduling:    loop.Mode(cfg.Loop.Scheduling),
		Interval:      time.Duration(cfg.Loop.IntervalMs) * time.Millisecond,
		RefreshHz:     cfg.Loop.RefreshHz,
		MaxDetections: cfg.Loop.MaxDetections,
		OutputMap: detect.OutputMap{
			Classes: cfg.Model.OutputClasses,
			Boxes:   cfg.Model.OutputBoxes,
			Scores:  cfg.Model.OutputScores,
		},
		Preprocess: detect.Preprocess{
			Scale:  cfg.Model.Scale,
			SwapRB: cfg.Model.SwapRB,
		},
	}, source, model, renderer, surface)
	l.SetMetrics(stats)
	defer l.Close()

	// Draw each batch over the frame it came from, so the dashboard
	// feed carries annotated frames rather than bare overlay.
	surface.SetBackground(l.FrameBuffer())

	server := web.NewServer(cfg.Web.Port, cfg.Web.StaticDir, controller, l, renderer)
	server.SetMetrics(stats)

	l.OnTick = func(_ *gocv.Mat, dets []detect.Detection, drawn int) {
		server.PublishDetections(dets)

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, *surface.Mat())
		if err != nil {
			log.Debug("frame encode failed", "err", err)
			return
		}
		server.PublishFrame(buf.GetBytes())
		buf.Close()
	}

	server.StartAsync()
	l.Start()
	log.Info("camwatch running",
		"scheduling", cfg.Loop.Scheduling,
		"interval_ms", cfg.Loop.IntervalMs,
		"threshold", cfg.Loop.Threshold)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	fmt.Println("\n👋 Shutting down...")

	l.Stop()
	server.Shutdown()
}

// openSource builds the frame source the config selects. Local capture
// goes through the controller so the dashboard can renegotiate it;
// remote capture is fixed by the producer and returns a nil controller.
func openSource(cam config.CameraConfig, stats *metrics.Metrics) (loop.FrameSource, *capture.Controller, func(), error) {
	if cam.Source == "remote" {
		camera := remote.NewCamera(cam.SignallingURL, cam.ProducerName)
		if err := camera.Connect(15 * time.Second); err != nil {
			return nil, nil, nil, err
		}
		stats.SessionsStarted.Add(1)
		return camera, nil, func() { camera.Close() }, nil
	}

	device := capture.NewWebcam(cam.DeviceID)
	controller := capture.NewController(device)
	controller.OnSettings = func(capture.Settings) {
		stats.SessionsStarted.Add(1)
	}

	capCfg := capture.DefaultConfig()
	if preset := capture.GetPreset(cam.Preset); preset != nil {
		capCfg = *preset
	}
	if cam.Width > 0 {
		capCfg.Width = cam.Width
	}
	if cam.Height > 0 {
		capCfg.Height = cam.Height
	}
	if cam.Framerate > 0 {
		capCfg.Framerate = cam.Framerate
	}
	if cam.FacingMode != "" {
		capCfg.FacingMode = cam.FacingMode
	}

	sess, err := controller.Start(capCfg)
	if err != nil {
		device.Close()
		return nil, nil, nil, err
	}
	log.Info("camera session started",
		"session", sess.ID,
		"width", sess.Settings.Width,
		"height", sess.Settings.Height,
		"framerate", sess.Settings.Framerate)

	cleanup := func() {
		controller.Stop()
		device.Close()
	}
	return controller, controller, cleanup, nil
}
