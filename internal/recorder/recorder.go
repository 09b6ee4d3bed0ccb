// Package recorder persists capture sessions for offline replay
package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/uivision/bot/internal/vision"
)

const (
	framesDirName = "frames"
	metaFileName  = "meta.json"
	eventsName    = "events.jsonl"
)

// Meta describes a recorded run.
type Meta struct {
	RunID      string `json:"run_id"`
	StartTime  string `json:"start_time"`
	IntervalMS int    `json:"interval_ms"`
	Frames     int    `json:"frames"`
}

// Event is one per-region detection outcome tied to a recorded frame.
type Event struct {
	Frame         int                `json:"frame"`
	Region        string             `json:"region"`
	Template      vision.MatchResult `json:"template"`
	OCRValid      bool               `json:"ocr_valid"`
	FinalDecision bool               `json:"final_decision"`
	Confidence    float64            `json:"confidence"`
	Text          string             `json:"text,omitempty"`
}

// Recorder writes frames and detection events into a timestamped run
// directory under a configured root. Safe for use from one goroutine
// per method; WriteFrame and WriteEvents may interleave.
type Recorder struct {
	runDir   string
	runID    string
	started  time.Time
	interval time.Duration

	mu     sync.Mutex
	idx    int
	events *os.File
}

// New creates a run directory debug_runs-style under root and opens it
// for writing
func New(root string, interval time.Duration) (*Recorder, error) {
	ts := time.Now().Format("20060102_150405")
	runDir := filepath.Join(root, "run_"+ts)
	if err := os.MkdirAll(filepath.Join(runDir, framesDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	events, err := os.OpenFile(filepath.Join(runDir, eventsName),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}

	r := &Recorder{
		runDir:   runDir,
		runID:    uuid.NewString(),
		started:  time.Now(),
		interval: interval,
		events:   events,
	}
	if err := r.writeMeta(); err != nil {
		events.Close()
		return nil, err
	}
	slog.Info("recording started", "dir", runDir)
	return r, nil
}

// Dir returns the run directory path.
func (r *Recorder) Dir() string {
	return r.runDir
}

// WriteFrame stores PNG bytes as the next numbered frame and returns
// its index.
func (r *Recorder) WriteFrame(png []byte) (int, error) {
	r.mu.Lock()
	idx := r.idx
	r.idx++
	r.mu.Unlock()

	path := filepath.Join(r.runDir, framesDirName, FrameName(idx))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return 0, fmt.Errorf("write frame %d: %w", idx, err)
	}
	return idx, nil
}

// WriteEvents appends one event line per detection in the analysis.
func (r *Recorder) WriteEvents(frame int, analysis *vision.FrameAnalysis) error {
	if analysis == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	enc := json.NewEncoder(r.events)
	for _, det := range analysis.Detections {
		e := Event{
			Frame:         frame,
			Region:        det.Region,
			Template:      det.Template,
			OCRValid:      det.OCRValid,
			FinalDecision: det.Matched,
			Confidence:    det.Confidence,
			Text:          det.Text,
		}
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}
	return nil
}

// Close finalizes meta.json with the frame count and releases files.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeMetaLocked(); err != nil {
		r.events.Close()
		return err
	}
	slog.Info("recording stopped", "dir", r.runDir, "frames", r.idx)
	return r.events.Close()
}

func (r *Recorder) writeMeta() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeMetaLocked()
}

func (r *Recorder) writeMetaLocked() error {
	meta := Meta{
		RunID:      r.runID,
		StartTime:  r.started.Format(time.RFC3339),
		IntervalMS: int(r.interval.Milliseconds()),
		Frames:     r.idx,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal meta: %w", err)
	}
	if err := os.WriteFile(filepath.Join(r.runDir, metaFileName), data, 0o644); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

// FrameName returns the on-disk file name for a frame index.
func FrameName(idx int) string {
	return fmt.Sprintf("%06d.png", idx)
}
