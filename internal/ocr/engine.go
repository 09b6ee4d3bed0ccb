// Package ocr extracts text from frame crops.
package ocr

import (
	"context"
	"image"
)

// Word is a single recognized token with its confidence and bounds.
// Coordinates are relative to the image passed to Recognize.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
}

// Engine recognizes text in an image.
type Engine interface {
	Recognize(ctx context.Context, img image.Image) ([]Word, error)
	Close() error
}

// JoinText concatenates recognized words in reading order.
func JoinText(words []Word) string {
	if len(words) == 0 {
		return ""
	}
	out := words[0].Text
	for _, w := range words[1:] {
		out += " " + w.Text
	}
	return out
}
