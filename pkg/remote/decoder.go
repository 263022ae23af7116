package remote

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"sync"

	"github.com/camwatch/go-camwatch/internal/log"
)

// Decoder turns an annex-b H264 elementary stream into JPEG frames
// using a single long-lived ffmpeg process. Input NAL units go to
// ffmpeg's stdin, complete JPEGs are scanned off its stdout, and only
// the newest frame is retained.
type Decoder struct {
	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool

	frameMu sync.RWMutex
	latest  []byte
}

var (
	jpegStart = []byte{0xFF, 0xD8}
	jpegEnd   = []byte{0xFF, 0xD9}
)

func NewDecoder() *Decoder {
	return &Decoder{}
}

// Start launches ffmpeg and begins collecting frames from its output.
func (d *Decoder) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		return nil
	}

	cmd := exec.Command("ffmpeg",
		"-hide_banner", "-loglevel", "error",
		"-f", "h264", "-i", "pipe:0",
		"-f", "image2pipe", "-vcodec", "mjpeg", "-q:v", "4",
		"pipe:1",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("decoder stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("decoder stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("decoder launch: %w", err)
	}

	d.cmd = cmd
	d.stdin = stdin
	d.running = true

	go d.collectFrames(stdout)
	return nil
}

// Feed writes one or more annex-b NAL units into the decoder. Writes
// after Close are ignored.
func (d *Decoder) Feed(nal []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}
	if _, err := d.stdin.Write(nal); err != nil {
		log.Warn("decoder feed failed", "err", err)
		d.stopLocked()
	}
}

// collectFrames scans ffmpeg's MJPEG output for complete JPEG images
// delimited by SOI and EOI markers.
func (d *Decoder) collectFrames(r io.Reader) {
	buf := make([]byte, 0, 256*1024)
	chunk := make([]byte, 32*1024)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = d.extractFrames(buf)
		}
		if err != nil {
			return
		}
	}
}

// extractFrames pulls every complete JPEG out of buf, keeps the last
// one as the latest frame and returns the unconsumed remainder.
func (d *Decoder) extractFrames(buf []byte) []byte {
	var newest []byte
	for {
		start := bytes.Index(buf, jpegStart)
		if start < 0 {
			buf = buf[:0]
			break
		}
		end := bytes.Index(buf[start+2:], jpegEnd)
		if end < 0 {
			// Incomplete frame, wait for more data.
			buf = buf[start:]
			break
		}
		frameEnd := start + 2 + end + 2
		newest = buf[start:frameEnd]
		buf = buf[frameEnd:]
	}

	if newest != nil {
		frame := make([]byte, len(newest))
		copy(frame, newest)
		d.frameMu.Lock()
		d.latest = frame
		d.frameMu.Unlock()
	}
	return buf
}

// Latest returns the most recently decoded JPEG, or nil if no frame
// has arrived yet.
func (d *Decoder) Latest() []byte {
	d.frameMu.RLock()
	defer d.frameMu.RUnlock()
	return d.latest
}

// Close shuts the ffmpeg process down.
func (d *Decoder) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	return nil
}

func (d *Decoder) stopLocked() {
	if !d.running {
		return
	}
	d.running = false
	d.stdin.Close()
	if d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.cmd.Wait()
}
