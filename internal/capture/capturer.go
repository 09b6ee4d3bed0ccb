// Package capture provides platform-agnostic screen capture
package capture

import (
	"crypto/md5"
	"os"
)

// hashPrefixSize bounds how much of a frame feeds change detection.
const hashPrefixSize = 4096

// Capturer captures screen frames with cheap change detection.
type Capturer interface {
	// Capture returns encoded PNG bytes, or (nil, false) when the screen
	// is byte-identical to the previous capture.
	Capture() ([]byte, bool)
	// CaptureAlways returns the current frame regardless of change state.
	CaptureAlways() []byte
	Close()
}

// backend implements platform-specific raw capture
type backend interface {
	captureRaw() []byte
	cleanup()
}

// baseCapturer provides shared hash-based change detection
type baseCapturer struct {
	backend
	lastHash [16]byte
	tempDir  string
}

func newBase(b backend, tempDir string) *baseCapturer {
	return &baseCapturer{backend: b, tempDir: tempDir}
}

func (c *baseCapturer) Capture() ([]byte, bool) {
	data := c.captureRaw()
	if data == nil {
		return nil, false
	}
	hash := md5.Sum(data[:min(len(data), hashPrefixSize)])
	if hash == c.lastHash {
		return nil, false
	}
	c.lastHash = hash
	return data, true
}

func (c *baseCapturer) CaptureAlways() []byte {
	data := c.captureRaw()
	if data != nil {
		c.lastHash = md5.Sum(data[:min(len(data), hashPrefixSize)])
	}
	return data
}

func (c *baseCapturer) Close() {
	c.cleanup()
	if c.tempDir != "" {
		os.RemoveAll(c.tempDir)
	}
}
