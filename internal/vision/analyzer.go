package vision

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/uivision/bot/internal/ocr"
	"github.com/uivision/bot/internal/region"
	"github.com/uivision/bot/internal/resilience"
)

// Detection is the per-region outcome of one frame analysis.
type Detection struct {
	Region     string      `json:"region"`
	Type       region.Type `json:"type"`
	Matched    bool        `json:"matched"`
	Confidence float64     `json:"confidence"`
	Location   image.Point `json:"location"` // best-match point in frame coordinates
	Text       string      `json:"text,omitempty"`
	Words      []ocr.Word  `json:"-"`
	OCRValid   bool        `json:"ocr_valid"`
	Template   MatchResult `json:"template"`
}

// FrameAnalysis holds all detections for a single frame.
type FrameAnalysis struct {
	Width      int                  `json:"width"`
	Height     int                  `json:"height"`
	Detections map[string]Detection `json:"detections"`
}

// Analyzer evaluates a fixed region set against frames. Template images
// are decoded once and cached for the analyzer's lifetime. OCR calls go
// through a circuit breaker so a broken engine degrades analysis to
// template-only instead of stalling the capture loop.
type Analyzer struct {
	regions   []region.Region
	templates map[string]gocv.Mat
	engine    ocr.Engine
	breaker   *resilience.Breaker
	mode      Aggregation
}

// NewAnalyzer builds an analyzer for regions defined relative to dir.
// Regions referencing unreadable template images are analyzed without
// template matching; the linter reports those separately. engine may be
// nil to skip OCR entirely.
func NewAnalyzer(regions []region.Region, dir string, engine ocr.Engine, mode Aggregation) (*Analyzer, error) {
	if mode == "" {
		mode = AggregateMin
	}
	if _, err := AggregateConfidence([]float64{1}, mode); err != nil {
		return nil, err
	}

	templates := make(map[string]gocv.Mat)
	for _, r := range regions {
		if !r.Type.UsesTemplate() || r.Template == nil || r.Template.File == "" {
			continue
		}
		if _, ok := templates[r.Template.File]; ok {
			continue
		}
		mat := gocv.IMRead(filepath.Join(dir, r.Template.File), gocv.IMReadColor)
		if mat.Empty() {
			slog.Warn("template image unreadable, matching disabled for it",
				"region", r.Name, "file", r.Template.File)
			mat.Close()
			continue
		}
		templates[r.Template.File] = mat
	}

	return &Analyzer{
		regions:   regions,
		templates: templates,
		engine:    engine,
		breaker:   resilience.New(resilience.DefaultConfig()),
		mode:      mode,
	}, nil
}

// Regions returns the analyzer's region set.
func (a *Analyzer) Regions() []region.Region { return a.regions }

// Close releases cached template mats and the OCR engine.
func (a *Analyzer) Close() error {
	for _, mat := range a.templates {
		mat.Close()
	}
	a.templates = nil
	if a.engine != nil {
		return a.engine.Close()
	}
	return nil
}

// AnalyzeImage decodes encoded image bytes and analyzes them.
func (a *Analyzer) AnalyzeImage(ctx context.Context, data []byte) (*FrameAnalysis, error) {
	frame, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer frame.Close()
	if frame.Empty() {
		return nil, errors.New("decode frame: empty image")
	}
	return a.AnalyzeFrame(ctx, frame)
}

// AnalyzeFrame runs every region's detectors against frame and returns
// the per-region detections. It never issues input events; acting on the
// result is the caller's business. Regions that fall outside the frame
// come back unmatched rather than failing the whole frame.
func (a *Analyzer) AnalyzeFrame(ctx context.Context, frame gocv.Mat) (*FrameAnalysis, error) {
	if frame.Empty() {
		return nil, errors.New("analyze: empty frame")
	}

	analysis := &FrameAnalysis{
		Width:      frame.Cols(),
		Height:     frame.Rows(),
		Detections: make(map[string]Detection, len(a.regions)),
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	for _, r := range a.regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		analysis.Detections[r.Name] = a.analyzeRegion(ctx, frame, bounds, r)
	}
	return analysis, nil
}

func (a *Analyzer) analyzeRegion(ctx context.Context, frame gocv.Mat, bounds image.Rectangle, r region.Region) Detection {
	det := Detection{Region: r.Name, Type: r.Type}

	rect := r.Rect().Intersect(bounds)
	if rect.Empty() {
		return det
	}

	roi := frame.Region(rect)
	defer roi.Close()

	var confidences []float64

	if r.Type.UsesTemplate() {
		if tmpl, ok := a.template(r); ok {
			det.Template = MatchTemplate(roi, tmpl, r.MatchThreshold())
			det.Template.Location = det.Template.Location.Add(rect.Min)
			det.Location = det.Template.Location
			confidences = append(confidences, det.Template.Confidence)
		}
	}

	if r.Type.UsesOCR() && a.engine != nil {
		words, err := a.recognize(ctx, roi)
		if err != nil {
			slog.Debug("ocr skipped", "region", r.Name, "error", err)
		} else {
			for i := range words {
				words[i].Box = words[i].Box.Add(rect.Min)
			}
			det.Words = words
			det.Text = ocr.JoinText(words)

			var expected []string
			if r.OCR != nil {
				expected = r.OCR.Expected
			}
			ok, word := ValidateOCR(words, expected, r.OCRThreshold())
			det.OCRValid = ok
			if ok {
				confidences = append(confidences, word.Confidence)
			}
		}
	}

	switch r.Type {
	case region.TypeTemplate:
		det.Matched = det.Template.Found
		det.Confidence = det.Template.Confidence
	case region.TypeOCR:
		det.Matched = det.OCRValid
		det.Confidence, _ = AggregateConfidence(confidences, a.mode)
	case region.TypeHybrid:
		det.Matched = Fuse(det.Template, det.OCRValid)
		det.Confidence, _ = AggregateConfidence(confidences, a.mode)
	}

	return det
}

func (a *Analyzer) template(r region.Region) (gocv.Mat, bool) {
	if r.Template == nil {
		return gocv.Mat{}, false
	}
	tmpl, ok := a.templates[r.Template.File]
	return tmpl, ok
}

// recognize converts the ROI to a Go image and calls the OCR engine under
// retry and breaker protection.
func (a *Analyzer) recognize(ctx context.Context, roi gocv.Mat) ([]ocr.Word, error) {
	img, err := roi.ToImage()
	if err != nil {
		return nil, fmt.Errorf("roi to image: %w", err)
	}

	var words []ocr.Word
	err = a.breaker.Execute(func() error {
		return resilience.Retry(ctx, resilience.OCRRetryConfig(), func() error {
			var rerr error
			words, rerr = a.engine.Recognize(ctx, img)
			return rerr
		})
	})
	return words, err
}
