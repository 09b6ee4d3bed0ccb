// Package replay loads recorded runs for inspection, labeling, and
// training-data export.
package replay

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"sort"

	"github.com/nfnt/resize"

	"github.com/uivision/bot/internal/recorder"
	"github.com/uivision/bot/internal/region"
	"github.com/uivision/bot/internal/vision"
)

// CropScale is the zoom factor applied to region crops in side panels.
const CropScale = 2

// Run is a loaded recording: its metadata, ordered frame files, and
// detection events indexed by frame.
type Run struct {
	Dir    string
	Meta   recorder.Meta
	Frames []string
	Events map[int][]recorder.Event
}

// Load opens a run directory written by the recorder.
func Load(runDir string) (*Run, error) {
	metaData, err := os.ReadFile(filepath.Join(runDir, "meta.json"))
	if err != nil {
		return nil, fmt.Errorf("read meta: %w", err)
	}
	var meta recorder.Meta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("parse meta: %w", err)
	}

	frames, err := filepath.Glob(filepath.Join(runDir, "frames", "*.png"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	sort.Strings(frames)

	events, err := loadEvents(filepath.Join(runDir, "events.jsonl"))
	if err != nil {
		return nil, err
	}

	return &Run{Dir: runDir, Meta: meta, Frames: frames, Events: events}, nil
}

func loadEvents(path string) (map[int][]recorder.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int][]recorder.Event{}, nil
		}
		return nil, fmt.Errorf("open events: %w", err)
	}
	defer f.Close()

	events := make(map[int][]recorder.Event)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e recorder.Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("parse event: %w", err)
		}
		events[e.Frame] = append(events[e.Frame], e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return events, nil
}

// Frame returns the raw PNG bytes of the frame at idx.
func (r *Run) Frame(idx int) ([]byte, error) {
	if idx < 0 || idx >= len(r.Frames) {
		return nil, fmt.Errorf("frame %d out of range [0,%d)", idx, len(r.Frames))
	}
	return os.ReadFile(r.Frames[idx])
}

// JumpDecision finds the nearest frame in the given direction (+1 or -1)
// that carries at least one positive final decision. Returns the current
// index and false when none exists.
func (r *Run) JumpDecision(from, direction int) (int, bool) {
	step := 1
	if direction < 0 {
		step = -1
	}
	for i := from + step; i >= 0 && i < len(r.Frames); i += step {
		for _, e := range r.Events[i] {
			if e.FinalDecision {
				return i, true
			}
		}
	}
	return from, false
}

// Overlay renders the frame at idx with its recorded detections drawn
// the same way the live pipeline draws them.
func (r *Run) Overlay(idx int, regions []region.Region) ([]byte, error) {
	frameData, err := r.Frame(idx)
	if err != nil {
		return nil, err
	}
	return vision.RenderOverlayPNG(frameData, regions, r.analysisAt(idx))
}

// analysisAt rebuilds a FrameAnalysis from recorded events so overlay
// and policy code can run against replayed frames.
func (r *Run) analysisAt(idx int) *vision.FrameAnalysis {
	detections := make(map[string]vision.Detection)
	for _, e := range r.Events[idx] {
		detections[e.Region] = vision.Detection{
			Region:     e.Region,
			Matched:    e.FinalDecision,
			Confidence: e.Confidence,
			OCRValid:   e.OCRValid,
			Text:       e.Text,
			Template:   e.Template,
		}
	}
	return &vision.FrameAnalysis{Detections: detections}
}

// Analysis returns the recorded detections for a frame.
func (r *Run) Analysis(idx int) *vision.FrameAnalysis {
	return r.analysisAt(idx)
}

// RegionCrop cuts a region out of the frame at idx and zooms it by
// CropScale for side-by-side inspection.
func (r *Run) RegionCrop(idx int, reg region.Region) (image.Image, error) {
	frameData, err := r.Frame(idx)
	if err != nil {
		return nil, err
	}
	img, err := png.Decode(bytes.NewReader(frameData))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	rect := reg.Rect().Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %q outside frame bounds", reg.Name)
	}
	sub, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("frame image does not support cropping")
	}
	crop := sub.SubImage(rect)
	return resize.Resize(uint(rect.Dx()*CropScale), uint(rect.Dy()*CropScale),
		crop, resize.Bilinear), nil
}
