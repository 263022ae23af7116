// Package web provides the real-time detection dashboard: REST control
// over the stream session and inference loop, plus websocket feeds for
// annotated frames, detection batches and status.
package web

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/camwatch/go-camwatch/internal/log"
	"github.com/camwatch/go-camwatch/internal/metrics"
	"github.com/camwatch/go-camwatch/pkg/capture"
	"github.com/camwatch/go-camwatch/pkg/detect"
	"github.com/camwatch/go-camwatch/pkg/hub"
	"github.com/camwatch/go-camwatch/pkg/loop"
	"github.com/camwatch/go-camwatch/pkg/overlay"
)

// Status is the dashboard's status payload.
type Status struct {
	LoopRunning      bool              `json:"loop_running"`
	Session          *capture.Session  `json:"session,omitempty"`
	Settings         *capture.Settings `json:"settings,omitempty"`
	Threshold        float32           `json:"threshold"`
	FrameClients     int               `json:"frame_clients"`
	DetectionClients int               `json:"detection_clients"`
}

// DetectionBatch is one tick's decoded detections as sent to clients.
type DetectionBatch struct {
	Time       string            `json:"time"`
	Count      int               `json:"count"`
	Detections []DetectionRecord `json:"detections"`
}

// DetectionRecord is one detection with its class name resolved.
type DetectionRecord struct {
	Box     detect.Box `json:"box"`
	Score   float32    `json:"score"`
	ClassID int        `json:"class_id"`
	Class   string     `json:"class"`
}

// Server is the dashboard server.
type Server struct {
	app       *fiber.App
	port      string
	staticDir string

	controller *capture.Controller
	loop       *loop.Loop
	renderer   *overlay.Renderer
	stats      *metrics.Metrics

	frameHub     *hub.Hub
	detectionHub *hub.Hub
	statusHub    *hub.Hub

	hubsOnce sync.Once
}

// NewServer creates the dashboard server around the capture controller,
// inference loop and renderer it controls.
func NewServer(port, staticDir string, controller *capture.Controller, l *loop.Loop, renderer *overlay.Renderer) *Server {
	s := &Server{
		port:         port,
		staticDir:    staticDir,
		controller:   controller,
		loop:         l,
		renderer:     renderer,
		frameHub:     hub.New("frames"),
		detectionHub: hub.New("detections"),
		statusHub:    hub.New("status"),
	}

	app := fiber.New(fiber.Config{
		AppName:               "camwatch",
		DisableStartupMessage: true,
	})

	// CORS for local development
	app.Use(cors.New())

	if staticDir != "" {
		app.Static("/", staticDir)
	}

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/camera", s.handleGetCamera)
	api.Post("/camera", s.handleSetCamera)
	api.Post("/loop/start", s.handleLoopStart)
	api.Post("/loop/stop", s.handleLoopStop)
	api.Get("/tuning", s.handleGetTuning)
	api.Post("/tuning", s.handleSetTuning)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFeedWS(s.frameHub)))
	app.Get("/ws/detections", websocket.New(s.handleFeedWS(s.detectionHub)))
	app.Get("/ws/status", websocket.New(s.handleFeedWS(s.statusHub)))

	s.app = app
	return s
}

// SetMetrics attaches a metrics sink. Optional.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.stats = m
}

// Start runs the server. Blocks.
func (s *Server) Start() error {
	s.startHubs()
	log.Info("dashboard listening", "url", "http://localhost:"+s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			log.Error("dashboard server failed", "err", err)
		}
	}()
}

func (s *Server) startHubs() {
	s.hubsOnce.Do(func() {
		go s.frameHub.Run()
		go s.detectionHub.Run()
		go s.statusHub.Run()
	})
}

// Shutdown stops the server and disconnects every feed client.
func (s *Server) Shutdown() error {
	s.frameHub.Stop()
	s.detectionHub.Stop()
	s.statusHub.Stop()
	return s.app.Shutdown()
}

// PublishFrame broadcasts an annotated JPEG frame to feed clients.
func (s *Server) PublishFrame(jpeg []byte) {
	s.frameHub.BroadcastBinary(jpeg)
	if s.stats != nil {
		s.stats.FramesPublished.Add(1)
	}
}

// PublishDetections broadcasts one tick's decoded batch.
func (s *Server) PublishDetections(dets []detect.Detection) {
	batch := DetectionBatch{
		Time:       time.Now().Format("15:04:05.000"),
		Count:      len(dets),
		Detections: make([]DetectionRecord, 0, len(dets)),
	}
	for _, d := range dets {
		batch.Detections = append(batch.Detections, DetectionRecord{
			Box:     d.Box,
			Score:   d.Score,
			ClassID: d.ClassID,
			Class:   detect.ClassName(d.ClassID),
		})
	}
	s.detectionHub.BroadcastJSON(batch)
}

// PublishStatus broadcasts the current status snapshot.
func (s *Server) PublishStatus() {
	s.statusHub.BroadcastJSON(s.status())
}

func (s *Server) status() Status {
	st := Status{
		LoopRunning:      s.loop.Running(),
		Threshold:        s.renderer.Threshold(),
		FrameClients:     s.frameHub.ClientCount(),
		DetectionClients: s.detectionHub.ClientCount(),
	}
	if s.controller != nil {
		if sess, ok := s.controller.Session(); ok {
			st.Session = &sess
			st.Settings = &sess.Settings
		}
	}
	return st
}
