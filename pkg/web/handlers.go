package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/camwatch/go-camwatch/pkg/capture"
	"github.com/camwatch/go-camwatch/pkg/hub"
)

// handleStatus returns the current status snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.status())
}

// handleGetCamera returns the active session and available presets.
func (s *Server) handleGetCamera(c *fiber.Ctx) error {
	resp := fiber.Map{
		"presets": capture.PresetNames(),
	}
	if s.controller != nil {
		if sess, ok := s.controller.Session(); ok {
			resp["session"] = sess
		}
	}
	return c.JSON(resp)
}

// CameraRequest selects a preset or explicit constraints for a new
// stream session. Setting any field restarts capture with the merged
// config; the old session is replaced.
type CameraRequest struct {
	Preset    string `json:"preset"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Framerate int    `json:"framerate"`
}

// handleSetCamera restarts the stream session with new constraints.
func (s *Server) handleSetCamera(c *fiber.Ctx) error {
	if s.controller == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "camera is managed by the remote producer"})
	}

	var req CameraRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	cfg := capture.DefaultConfig()
	if settings, ok := s.controller.Settings(); ok {
		cfg.Width = settings.Width
		cfg.Height = settings.Height
		cfg.FacingMode = settings.FacingMode
	}
	if req.Preset != "" {
		preset := capture.GetPreset(req.Preset)
		if preset == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown preset: " + req.Preset})
		}
		cfg = *preset
	}
	if req.Width > 0 {
		cfg.Width = req.Width
	}
	if req.Height > 0 {
		cfg.Height = req.Height
	}
	if req.Framerate > 0 {
		cfg.Framerate = req.Framerate
	}

	sess, err := s.controller.Start(cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	s.PublishStatus()
	return c.JSON(sess)
}

// handleLoopStart starts the inference loop. Idempotent.
func (s *Server) handleLoopStart(c *fiber.Ctx) error {
	s.loop.Start()
	s.PublishStatus()
	return c.JSON(fiber.Map{"running": true})
}

// handleLoopStop stops the inference loop. Idempotent.
func (s *Server) handleLoopStop(c *fiber.Ctx) error {
	s.loop.Stop()
	s.PublishStatus()
	return c.JSON(fiber.Map{"running": false})
}

// TuningRequest adjusts runtime-tunable parameters.
type TuningRequest struct {
	Threshold *float32 `json:"threshold"`
}

// handleGetTuning returns the tunable parameters.
func (s *Server) handleGetTuning(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"threshold": s.renderer.Threshold()})
}

// handleSetTuning updates tunable parameters; only set fields apply.
func (s *Server) handleSetTuning(c *fiber.Ctx) error {
	var req TuningRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Threshold != nil {
		s.renderer.SetThreshold(*req.Threshold)
	}
	s.PublishStatus()
	return c.JSON(fiber.Map{"threshold": s.renderer.Threshold()})
}

// handleFeedWS registers a websocket connection on a feed hub and
// blocks until it disconnects.
func (s *Server) handleFeedWS(h *hub.Hub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		client := hub.NewClient(h, c)
		client.Run()
	}
}
