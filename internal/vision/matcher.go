// Package vision runs template matching, OCR validation, and hybrid
// fusion over configured screen regions.
package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// MatchResult is the outcome of one template match.
type MatchResult struct {
	Found      bool        `json:"found"`
	Confidence float64     `json:"confidence"`
	Location   image.Point `json:"location"` // top-left of best match, relative to the searched image
}

// MatchTemplate slides tmpl over img with normalized cross-correlation and
// returns the best score. Found is true when the score clears threshold.
// A template larger than the searched image cannot match.
func MatchTemplate(img, tmpl gocv.Mat, threshold float64) MatchResult {
	if tmpl.Cols() > img.Cols() || tmpl.Rows() > img.Rows() {
		return MatchResult{}
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(img, tmpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)

	confidence := float64(maxVal)
	return MatchResult{
		Found:      confidence >= threshold,
		Confidence: confidence,
		Location:   maxLoc,
	}
}
