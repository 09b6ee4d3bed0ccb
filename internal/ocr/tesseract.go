package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os/exec"
	"strconv"
	"strings"
)

// ErrEngineUnavailable is returned when no tesseract binary can be found.
var ErrEngineUnavailable = errors.New("ocr: tesseract binary not found")

// Tesseract runs the tesseract CLI over stdin/stdout and parses its TSV
// output into words. Confidence comes back as 0..100 and is scaled to 0..1;
// words are lowercased for threshold-free substring checks downstream.
type Tesseract struct {
	bin  string
	lang string
}

// NewTesseract locates the tesseract binary. bin may be empty to use PATH,
// lang may be empty for English.
func NewTesseract(bin, lang string) (*Tesseract, error) {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "eng"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEngineUnavailable, bin)
	}
	return &Tesseract{bin: path, lang: lang}, nil
}

// Recognize encodes img as PNG, pipes it through tesseract in TSV mode and
// returns the word-level rows.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image) ([]Word, error) {
	var in bytes.Buffer
	if err := png.Encode(&in, img); err != nil {
		return nil, fmt.Errorf("encode ocr input: %w", err)
	}

	cmd := exec.CommandContext(ctx, t.bin, "stdin", "stdout", "-l", t.lang, "tsv")
	cmd.Stdin = &in
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("tesseract: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return parseTSV(out.String()), nil
}

// Close releases nothing; the engine is a plain subprocess wrapper.
func (t *Tesseract) Close() error { return nil }

// parseTSV extracts word rows (level 5) from tesseract's TSV output.
// Rows with negative confidence are layout artifacts and are skipped.
func parseTSV(tsv string) []Word {
	var words []Word
	for i, line := range strings.Split(tsv, "\n") {
		if i == 0 || line == "" { // header
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 12 {
			continue
		}
		if cols[0] != "5" {
			continue
		}

		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}

		left, _ := strconv.Atoi(cols[6])
		top, _ := strconv.Atoi(cols[7])
		width, _ := strconv.Atoi(cols[8])
		height, _ := strconv.Atoi(cols[9])

		words = append(words, Word{
			Text:       strings.ToLower(text),
			Confidence: conf / 100,
			Box:        image.Rect(left, top, left+width, top+height),
		})
	}
	return words
}

var _ Engine = (*Tesseract)(nil)
