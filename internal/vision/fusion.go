package vision

import (
	"fmt"
	"strings"

	"github.com/uivision/bot/internal/ocr"
)

// HybridConfidenceOverride is the template score above which a hybrid
// region counts as matched even without OCR confirmation.
const HybridConfidenceOverride = 0.9

// ValidateOCR checks recognized words against a region's expected tokens.
// A word below threshold never validates, and a region with no expected
// tokens never validates: OCR cannot confirm anything without something
// to confirm against. Returns the first validating word.
func ValidateOCR(words []ocr.Word, expected []string, threshold float64) (bool, *ocr.Word) {
	if len(expected) == 0 {
		return false, nil
	}
	for i := range words {
		w := &words[i]
		if w.Confidence < threshold {
			continue
		}
		for _, token := range expected {
			if strings.Contains(w.Text, strings.ToLower(token)) {
				return true, w
			}
		}
	}
	return false, nil
}

// Fuse combines a template match with OCR validation for hybrid regions.
// The template must be found at all; a very confident match stands alone,
// otherwise OCR has to confirm it.
func Fuse(match MatchResult, ocrOK bool) bool {
	if !match.Found {
		return false
	}
	return match.Confidence > HybridConfidenceOverride || ocrOK
}

// Aggregation selects how per-signal confidences collapse into one score.
type Aggregation string

const (
	AggregateMin     Aggregation = "min"
	AggregateMean    Aggregation = "mean"
	AggregateProduct Aggregation = "product"
)

// AggregateConfidence reduces confidence values with the given mode.
// No values means no confidence.
func AggregateConfidence(values []float64, mode Aggregation) (float64, error) {
	if len(values) == 0 {
		return 0, nil
	}

	switch mode {
	case AggregateMin, "":
		out := values[0]
		for _, v := range values[1:] {
			if v < out {
				out = v
			}
		}
		return out, nil

	case AggregateMean:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil

	case AggregateProduct:
		out := 1.0
		for _, v := range values {
			out *= v
		}
		return out, nil
	}

	return 0, fmt.Errorf("unknown aggregation mode %q", mode)
}
