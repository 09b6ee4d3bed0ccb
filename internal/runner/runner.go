package runner

import (
	"bytes"
	"context"
	"image"
	_ "image/png" // PNG decoder
	"log/slog"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/uivision/bot/internal/capture"
	"github.com/uivision/bot/internal/config"
	"github.com/uivision/bot/internal/input"
	"github.com/uivision/bot/internal/policy"
	"github.com/uivision/bot/internal/recorder"
	"github.com/uivision/bot/internal/region"
	"github.com/uivision/bot/internal/syncx"
	"github.com/uivision/bot/internal/trace"
	"github.com/uivision/bot/internal/vision"
)

// FrameAnalyzer runs region analysis over encoded frames.
type FrameAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte) (*vision.FrameAnalysis, error)
	Regions() []region.Region
}

// Event is a runner state change streamed to consumers.
type Event struct {
	Type     string                `json:"type"`
	Frame    int                   `json:"frame,omitempty"`
	Analysis *vision.FrameAnalysis `json:"analysis,omitempty"`
	Fire     *policy.Fire          `json:"fire,omitempty"`
	X        int                   `json:"x,omitempty"`
	Y        int                   `json:"y,omitempty"`
}

// State is the latest frame and its analysis.
type State struct {
	Frame    []byte
	Analysis *vision.FrameAnalysis
}

// Manager drives the capture-analyze-act loop
type Manager struct {
	cfg      *config.Config
	capturer capture.Capturer
	analyzer FrameAnalyzer
	policies *policy.Engine
	clicks   *input.Gate

	latest *syncx.RWGuard[State]
	events chan Event

	mu       sync.Mutex
	rec      *recorder.Recorder
	lastHash *goimagehash.ImageHash
	stopCh   chan struct{}
}

// New creates a runner manager
func New(cfg *config.Config, capturer capture.Capturer, analyzer FrameAnalyzer,
	policies *policy.Engine, clicks *input.Gate) *Manager {
	return &Manager{
		cfg:      cfg,
		capturer: capturer,
		analyzer: analyzer,
		policies: policies,
		clicks:   clicks,
		latest:   syncx.NewGuard(State{}),
		events:   make(chan Event, EventChannelBuffer),
		stopCh:   make(chan struct{}),
	}
}

// Events returns the channel of runner events
func (m *Manager) Events() <-chan Event {
	return m.events
}

// Latest returns the most recent frame and analysis
func (m *Manager) Latest() State {
	return m.latest.Get()
}

// SetClicksEnabled enables/disables click execution
func (m *Manager) SetClicksEnabled(enabled bool) {
	m.clicks.SetEnabled(enabled)
}

// ClicksEnabled returns current click execution state
func (m *Manager) ClicksEnabled() bool {
	return m.clicks.IsEnabled()
}

// Policies returns the active policy rules in evaluation order
func (m *Manager) Policies() []policy.Rule {
	return m.policies.Rules()
}

// StartRecording opens a new run directory and begins persisting frames
func (m *Manager) StartRecording() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec != nil {
		return m.rec.Dir(), nil
	}
	rec, err := recorder.New(m.cfg.RunRoot,
		time.Duration(m.cfg.CaptureInterval)*time.Millisecond)
	if err != nil {
		return "", err
	}
	m.rec = rec
	return rec.Dir(), nil
}

// StopRecording finalizes the current run, if any
func (m *Manager) StopRecording() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil
	}
	err := m.rec.Close()
	m.rec = nil
	return err
}

// IsRecording returns whether a run is being persisted
func (m *Manager) IsRecording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec != nil
}

// Start begins the capture loop
func (m *Manager) Start(ctx context.Context) error {
	if m.cfg.RecordingOn {
		if _, err := m.StartRecording(); err != nil {
			return err
		}
	}
	go m.loop(ctx)
	return nil
}

// Stop stops the capture loop and finalizes any active recording
func (m *Manager) Stop() {
	close(m.stopCh)
	_ = m.StopRecording()
	m.capturer.Close()
}

func (m *Manager) loop(ctx context.Context) {
	interval := time.Duration(m.cfg.CaptureInterval) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.step(ctx)
		}
	}
}

func (m *Manager) step(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "runner_step")
	defer span.End()
	log := trace.Logger(ctx)

	frameData, changed := m.capturer.Capture()
	if !changed || frameData == nil {
		return
	}

	// Skip analysis when the frame is perceptually identical to the last
	if m.shouldSkipAnalysis(frameData) {
		m.latest.Write(func(s *State) { s.Frame = frameData })
		return
	}

	analysis, err := m.analyzer.AnalyzeImage(ctx, frameData)
	if err != nil {
		span.SetAttr("error", err.Error())
		log.Error("frame analysis failed", "error", err)
		return
	}

	m.latest.Set(State{Frame: frameData, Analysis: analysis})
	frame := m.record(frameData, analysis)
	m.emit(Event{Type: EventAnalysis, Frame: frame, Analysis: analysis})

	fire := m.policies.Evaluate(analysis)
	if fire == nil {
		return
	}
	m.emit(Event{Type: EventFire, Frame: frame, Fire: fire})

	if fire.Action.Click {
		m.executeClick(ctx, fire, frame)
	}
}

func (m *Manager) executeClick(ctx context.Context, fire *policy.Fire, frame int) {
	log := trace.Logger(ctx)

	var target *region.Region
	for _, r := range m.analyzer.Regions() {
		if r.Name == fire.Region {
			target = &r
			break
		}
	}
	if target == nil {
		log.Warn("policy references unknown region", "policy", fire.Policy, "region", fire.Region)
		return
	}

	pt := target.ClickPoint()
	attempted, err := m.clicks.Click(ctx, pt.X, pt.Y)
	if err != nil {
		log.Error("click failed", "region", fire.Region, "error", err)
		return
	}
	if attempted {
		m.emit(Event{Type: EventClick, Frame: frame, Fire: fire, X: pt.X, Y: pt.Y})
	}
}

// record persists the frame and its events when recording is active.
// Returns the frame index, or -1 when not recording.
func (m *Manager) record(frameData []byte, analysis *vision.FrameAnalysis) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return -1
	}
	idx, err := m.rec.WriteFrame(frameData)
	if err != nil {
		slog.Error("failed to write frame", "error", err)
		return -1
	}
	if err := m.rec.WriteEvents(idx, analysis); err != nil {
		slog.Error("failed to write events", "error", err)
	}
	return idx
}

// shouldSkipAnalysis computes a perceptual hash and skips frames within
// the configured Hamming distance of the previous one.
func (m *Manager) shouldSkipAnalysis(frameData []byte) bool {
	if m.cfg.PHashMaxDist <= 0 {
		return false
	}
	img, _, err := image.Decode(bytes.NewReader(frameData))
	if err != nil {
		return false
	}
	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lastHash == nil {
		m.lastHash = hash
		return false
	}
	dist, err := m.lastHash.Distance(hash)
	if err != nil {
		m.lastHash = hash
		return false
	}
	if dist <= m.cfg.PHashMaxDist {
		return true
	}
	m.lastHash = hash
	return false
}

// emit sends an event without blocking the capture loop. Slow consumers
// lose events rather than stalling analysis.
func (m *Manager) emit(e Event) {
	select {
	case m.events <- e:
	default:
	}
}
