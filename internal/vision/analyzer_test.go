package vision

import (
	"context"
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/uivision/bot/internal/ocr"
	"github.com/uivision/bot/internal/region"
)

type fakeEngine struct {
	words []ocr.Word
	err   error
	calls int
}

func (f *fakeEngine) Recognize(_ context.Context, _ image.Image) ([]ocr.Word, error) {
	f.calls++
	return f.words, f.err
}

func (f *fakeEngine) Close() error { return nil }

// testFrame returns a dark frame with a white square at (20,20)-(40,40).
func testFrame(t *testing.T) gocv.Mat {
	t.Helper()
	frame := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&frame, image.Rect(20, 20, 40, 40), color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)
	t.Cleanup(func() { frame.Close() })
	return frame
}

func writeTemplate(t *testing.T, frame gocv.Mat, rect image.Rectangle, dir, name string) {
	t.Helper()
	roi := frame.Region(rect)
	defer roi.Close()
	tmpl := roi.Clone()
	defer tmpl.Close()
	require.True(t, gocv.IMWrite(filepath.Join(dir, name), tmpl))
}

func TestMatchTemplateFindsExactCrop(t *testing.T) {
	frame := testFrame(t)
	tmpl := frame.Region(image.Rect(18, 18, 42, 42))
	defer tmpl.Close()

	m := MatchTemplate(frame, tmpl, 0.8)
	require.True(t, m.Found)
	require.Greater(t, m.Confidence, 0.95)
	require.Equal(t, image.Pt(18, 18), m.Location)
}

func TestMatchTemplateOversizedTemplate(t *testing.T) {
	frame := testFrame(t)
	big := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer big.Close()

	m := MatchTemplate(frame, big, 0.8)
	require.False(t, m.Found)
	require.Zero(t, m.Confidence)
}

func TestAnalyzeFrameTemplateRegion(t *testing.T) {
	dir := t.TempDir()
	frame := testFrame(t)
	writeTemplate(t, frame, image.Rect(20, 20, 40, 40), dir, "square.png")

	regions := []region.Region{
		{
			Name: "square", Type: region.TypeTemplate, X: 10, Y: 10, W: 50, H: 50,
			Template: &region.Template{File: "square.png", Threshold: 0.8},
		},
		{
			Name: "empty", Type: region.TypeTemplate, X: 60, Y: 60, W: 35, H: 35,
			Template: &region.Template{File: "square.png", Threshold: 0.8},
		},
	}

	a, err := NewAnalyzer(regions, dir, nil, AggregateMin)
	require.NoError(t, err)
	defer a.Close()

	analysis, err := a.AnalyzeFrame(context.Background(), frame)
	require.NoError(t, err)
	require.Equal(t, 100, analysis.Width)
	require.Equal(t, 100, analysis.Height)

	hit := analysis.Detections["square"]
	require.True(t, hit.Matched)
	require.Greater(t, hit.Confidence, 0.8)
	// Location is reported in frame coordinates, not ROI coordinates.
	require.Equal(t, image.Pt(20, 20), hit.Location)

	miss := analysis.Detections["empty"]
	require.False(t, miss.Matched)
}

func TestAnalyzeFrameOCRRegion(t *testing.T) {
	frame := testFrame(t)
	engine := &fakeEngine{words: []ocr.Word{
		{Text: "confirm", Confidence: 0.9, Box: image.Rect(2, 2, 30, 12)},
	}}

	regions := []region.Region{
		{
			Name: "dialog", Type: region.TypeOCR, X: 10, Y: 10, W: 60, H: 40,
			OCR: &region.OCR{Expected: []string{"confirm"}, Threshold: 0.6},
		},
	}

	a, err := NewAnalyzer(regions, t.TempDir(), engine, AggregateMin)
	require.NoError(t, err)
	defer a.Close()

	analysis, err := a.AnalyzeFrame(context.Background(), frame)
	require.NoError(t, err)

	det := analysis.Detections["dialog"]
	require.True(t, det.Matched)
	require.True(t, det.OCRValid)
	require.Equal(t, "confirm", det.Text)
	require.Equal(t, 0.9, det.Confidence)
	// Word boxes are shifted into frame coordinates.
	require.Equal(t, image.Rect(12, 12, 40, 22), det.Words[0].Box)
	require.Equal(t, 1, engine.calls)
}

func TestAnalyzeFrameHybridNeedsTemplate(t *testing.T) {
	dir := t.TempDir()
	frame := testFrame(t)
	writeTemplate(t, frame, image.Rect(20, 20, 40, 40), dir, "square.png")

	engine := &fakeEngine{words: []ocr.Word{{Text: "confirm", Confidence: 0.95}}}

	regions := []region.Region{
		{
			Name: "combo", Type: region.TypeHybrid, X: 10, Y: 10, W: 50, H: 50,
			Template: &region.Template{File: "square.png", Threshold: 0.8},
			OCR:      &region.OCR{Expected: []string{"confirm"}, Threshold: 0.6},
		},
		{
			// Template not found here, so OCR alone must not fire a hybrid.
			Name: "ocr-only-area", Type: region.TypeHybrid, X: 60, Y: 60, W: 35, H: 35,
			Template: &region.Template{File: "square.png", Threshold: 0.8},
			OCR:      &region.OCR{Expected: []string{"confirm"}, Threshold: 0.6},
		},
	}

	a, err := NewAnalyzer(regions, dir, engine, AggregateMin)
	require.NoError(t, err)
	defer a.Close()

	analysis, err := a.AnalyzeFrame(context.Background(), frame)
	require.NoError(t, err)

	require.True(t, analysis.Detections["combo"].Matched)
	require.False(t, analysis.Detections["ocr-only-area"].Matched)
}

func TestAnalyzeFrameOutOfBoundsRegion(t *testing.T) {
	frame := testFrame(t)

	regions := []region.Region{
		{Name: "offscreen", Type: region.TypeOCR, X: 500, Y: 500, W: 50, H: 50},
	}

	a, err := NewAnalyzer(regions, t.TempDir(), &fakeEngine{}, AggregateMin)
	require.NoError(t, err)
	defer a.Close()

	analysis, err := a.AnalyzeFrame(context.Background(), frame)
	require.NoError(t, err)
	require.False(t, analysis.Detections["offscreen"].Matched)
}

func TestNewAnalyzerRejectsUnknownAggregation(t *testing.T) {
	_, err := NewAnalyzer(nil, t.TempDir(), nil, "median")
	require.Error(t, err)
}

func TestAnalyzeImageRejectsGarbage(t *testing.T) {
	a, err := NewAnalyzer(nil, t.TempDir(), nil, AggregateMin)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.AnalyzeImage(context.Background(), []byte("not an image"))
	require.Error(t, err)
}
