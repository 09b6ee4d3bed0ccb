package vision

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/uivision/bot/internal/region"
)

var (
	overlayHit  = color.RGBA{G: 255, A: 255}
	overlayMiss = color.RGBA{R: 255, A: 255}
	overlayOCR  = color.RGBA{R: 255, G: 255, A: 255}
	overlayMark = color.RGBA{G: 255, B: 255, A: 255}
)

// DrawOverlay paints region rectangles and detection details onto frame.
// Matched regions are green, unmatched red; template hits get a marker at
// the match point with the score, OCR words get their boxes.
func DrawOverlay(frame *gocv.Mat, regions []region.Region, analysis *FrameAnalysis) {
	for _, r := range regions {
		det, ok := analysis.Detections[r.Name]

		tint := overlayMiss
		if ok && det.Matched {
			tint = overlayHit
		}
		gocv.Rectangle(frame, r.Rect(), tint, 2)

		label := r.Name
		if ok && det.Template.Confidence > 0 {
			label = fmt.Sprintf("%s %.2f", r.Name, det.Template.Confidence)
		}
		gocv.PutText(frame, label, image.Pt(r.X+3, r.Y+14),
			gocv.FontHersheySimplex, 0.5, tint, 1)

		if !ok {
			continue
		}

		if det.Template.Found {
			gocv.Circle(frame, det.Template.Location, 6, overlayMark, 2)
		}
		for _, w := range det.Words {
			gocv.Rectangle(frame, w.Box, overlayOCR, 1)
		}
	}
}

// RenderOverlayPNG decodes a frame, draws the overlay, and encodes PNG.
func RenderOverlayPNG(frameData []byte, regions []region.Region, analysis *FrameAnalysis) ([]byte, error) {
	frame, err := gocv.IMDecode(frameData, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	defer frame.Close()
	if frame.Empty() {
		return nil, errors.New("decode frame: empty image")
	}

	DrawOverlay(&frame, regions, analysis)

	buf, err := gocv.IMEncode(gocv.PNGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
