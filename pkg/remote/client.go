// Package remote ingests video from a remote camera over WebRTC and
// exposes it through the same frame-source contract as local capture.
// Signalling follows the gst-webrtc websocket protocol
// (welcome / list / startSession / peer).
package remote

import (
	"encoding/json"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
	"gocv.io/x/gocv"

	"github.com/camwatch/go-camwatch/internal/log"
	"github.com/camwatch/go-camwatch/pkg/capture"
)

// Camera is a WebRTC-backed frame source. It negotiates a recvonly
// video session with a named producer, depacketizes the H264 track and
// keeps the most recently decoded frame for the inference loop.
type Camera struct {
	signallingURL string
	producerName  string

	ws   *websocket.Conn
	wsMu sync.Mutex
	pc   *webrtc.PeerConnection

	peerID     string
	producerID string
	sessionID  string

	decoder *Decoder

	firstFrame chan struct{}
	closed     atomic.Bool
}

// NewCamera creates a client for the producer named name behind the
// given signalling endpoint.
func NewCamera(signallingURL, name string) *Camera {
	return &Camera{
		signallingURL: signallingURL,
		producerName:  name,
		decoder:       NewDecoder(),
		firstFrame:    make(chan struct{}, 1),
	}
}

// Connect establishes signalling, the peer connection and the decoder,
// then waits for the first decoded frame. On failure everything
// acquired so far is torn down; the camera is not reusable afterwards.
func (c *Camera) Connect(timeout time.Duration) (err error) {
	defer func() {
		if err != nil {
			c.Close()
		}
	}()

	if err := c.decoder.Start(); err != nil {
		return fmt.Errorf("remote: decoder start: %w", err)
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.Dial(c.signallingURL, nil)
	if err != nil {
		return fmt.Errorf("remote: signalling connect: %w", err)
	}
	c.ws = ws

	if err := c.waitForWelcome(); err != nil {
		return fmt.Errorf("remote: welcome: %w", err)
	}
	if err := c.findProducer(); err != nil {
		return fmt.Errorf("remote: find producer: %w", err)
	}
	if err := c.createPeerConnection(); err != nil {
		return fmt.Errorf("remote: peer connection: %w", err)
	}
	if err := c.startSession(); err != nil {
		return fmt.Errorf("remote: start session: %w", err)
	}

	go c.handleSignalling()

	select {
	case <-c.firstFrame:
		log.Info("remote camera connected", "producer", c.producerName)
	case <-time.After(timeout):
		return fmt.Errorf("remote: timeout waiting for video")
	}
	return nil
}

func (c *Camera) waitForWelcome() error {
	c.ws.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, msg, err := c.ws.ReadMessage()
	c.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var welcome struct {
		Type   string `json:"type"`
		PeerID string `json:"peerId"`
	}
	if err := json.Unmarshal(msg, &welcome); err != nil {
		return err
	}
	if welcome.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", welcome.Type)
	}
	c.peerID = welcome.PeerID
	return nil
}

func (c *Camera) findProducer() error {
	if err := c.writeJSON(map[string]string{"type": "list"}); err != nil {
		return err
	}

	c.ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := c.ws.ReadMessage()
	c.ws.SetReadDeadline(time.Time{})
	if err != nil {
		return err
	}

	var resp struct {
		Type      string `json:"type"`
		Producers []struct {
			ID   string            `json:"id"`
			Meta map[string]string `json:"meta"`
		} `json:"producers"`
	}
	if err := json.Unmarshal(msg, &resp); err != nil {
		return err
	}

	for _, p := range resp.Producers {
		if p.Meta["name"] == c.producerName {
			c.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("producer %q not found among %d producers", c.producerName, len(resp.Producers))
}

func (c *Camera) createPeerConnection() error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	c.pc = pc

	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		log.Info("remote track", "kind", track.Kind().String(), "codec", track.Codec().MimeType)
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.consumeTrack(track)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			c.sendICECandidate(candidate)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Debug("remote connection state", "state", state.String())
	})

	return nil
}

func (c *Camera) startSession() error {
	return c.writeJSON(map[string]string{
		"type":   "startSession",
		"peerId": c.producerID,
	})
}

func (c *Camera) handleSignalling() {
	for !c.closed.Load() {
		_, msg, err := c.ws.ReadMessage()
		if err != nil {
			if !c.closed.Load() {
				log.Warn("remote signalling read failed", "err", err)
			}
			return
		}

		var base struct {
			Type      string `json:"type"`
			SessionID string `json:"sessionId"`
		}
		json.Unmarshal(msg, &base)

		switch base.Type {
		case "sessionStarted":
			c.sessionID = base.SessionID
		case "peer":
			c.handlePeerMessage(msg)
		case "endSession":
			return
		}
	}
}

func (c *Camera) handlePeerMessage(msg []byte) {
	var peer struct {
		SDP *struct {
			Type string `json:"type"`
			SDP  string `json:"sdp"`
		} `json:"sdp"`
		ICE *struct {
			Candidate     string  `json:"candidate"`
			SDPMid        *string `json:"sdpMid"`
			SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
		} `json:"ice"`
	}
	if err := json.Unmarshal(msg, &peer); err != nil {
		return
	}

	if peer.SDP != nil && peer.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{
			Type: webrtc.SDPTypeOffer,
			SDP:  peer.SDP.SDP,
		}
		if err := c.pc.SetRemoteDescription(offer); err != nil {
			log.Warn("remote set offer failed", "err", err)
			return
		}
		answer, err := c.pc.CreateAnswer(nil)
		if err != nil {
			log.Warn("remote create answer failed", "err", err)
			return
		}
		if err := c.pc.SetLocalDescription(answer); err != nil {
			log.Warn("remote set answer failed", "err", err)
			return
		}
		c.sendSDP(answer)
	}

	if peer.ICE != nil {
		c.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     peer.ICE.Candidate,
			SDPMid:        peer.ICE.SDPMid,
			SDPMLineIndex: peer.ICE.SDPMLineIndex,
		})
	}
}

func (c *Camera) sendSDP(sdp webrtc.SessionDescription) {
	c.writeJSON(map[string]interface{}{
		"type":      "peer",
		"sessionId": c.sessionID,
		"sdp": map[string]string{
			"type": sdp.Type.String(),
			"sdp":  sdp.SDP,
		},
	})
}

func (c *Camera) sendICECandidate(candidate *webrtc.ICECandidate) {
	if c.sessionID == "" {
		return
	}
	init := candidate.ToJSON()
	c.writeJSON(map[string]interface{}{
		"type":      "peer",
		"sessionId": c.sessionID,
		"ice": map[string]interface{}{
			"candidate":     init.Candidate,
			"sdpMid":        init.SDPMid,
			"sdpMLineIndex": init.SDPMLineIndex,
		},
	})
}

func (c *Camera) writeJSON(v interface{}) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.ws.WriteJSON(v)
}

// consumeTrack depacketizes the H264 RTP stream into annex-b NAL units
// and feeds them to the decoder.
func (c *Camera) consumeTrack(track *webrtc.TrackRemote) {
	depacketizer := &codecs.H264Packet{}
	signalled := false

	for !c.closed.Load() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		nal, err := depacketizer.Unmarshal(pkt.Payload)
		if err != nil || len(nal) == 0 {
			continue
		}
		c.decoder.Feed(nal)

		if !signalled && c.decoder.Latest() != nil {
			signalled = true
			select {
			case c.firstFrame <- struct{}{}:
			default:
			}
		}
	}
}

// FrameReady reports whether a decoded frame is available.
func (c *Camera) FrameReady() bool {
	return !c.closed.Load() && c.decoder.Latest() != nil
}

// CaptureInto decodes the most recent frame scaled to size x size
// pixels into dst.
func (c *Camera) CaptureInto(dst *gocv.Mat, size int) error {
	latest := c.decoder.Latest()
	if latest == nil {
		return capture.ErrFrameRead
	}

	img, err := gocv.IMDecode(latest, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("remote: frame decode: %w", err)
	}
	defer img.Close()
	if img.Empty() {
		return capture.ErrFrameRead
	}

	gocv.Resize(img, dst, image.Pt(size, size), 0, 0, gocv.InterpolationLinear)
	return nil
}

// Settings reports the remote stream's dimensions from the most recent
// frame. The producer, not this client, chooses the resolution.
func (c *Camera) Settings() (capture.Settings, bool) {
	latest := c.decoder.Latest()
	if latest == nil {
		return capture.Settings{}, false
	}
	img, err := gocv.IMDecode(latest, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return capture.Settings{}, false
	}
	defer img.Close()
	return capture.Settings{Width: img.Cols(), Height: img.Rows()}, true
}

// Close tears down the connection and decoder.
func (c *Camera) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.pc != nil {
		c.pc.Close()
	}
	if c.ws != nil {
		c.ws.Close()
	}
	return c.decoder.Close()
}
