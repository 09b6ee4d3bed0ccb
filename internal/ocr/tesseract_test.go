package ocr

import (
	"image"
	"testing"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t640\t480\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t200\t30\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t90\t30\t96.5\tConfirm\n" +
	"5\t1\t1\t1\t1\t2\t110\t10\t60\t30\t82\tOrder\n" +
	"5\t1\t1\t1\t1\t3\t180\t10\t20\t30\t12\t \n"

func TestParseTSV(t *testing.T) {
	words := parseTSV(sampleTSV)
	if len(words) != 2 {
		t.Fatalf("expected 2 words, got %d", len(words))
	}

	if words[0].Text != "confirm" {
		t.Errorf("Text = %q, want %q (lowercased)", words[0].Text, "confirm")
	}
	if words[0].Confidence != 0.965 {
		t.Errorf("Confidence = %v, want 0.965", words[0].Confidence)
	}
	want := image.Rect(10, 10, 100, 40)
	if words[0].Box != want {
		t.Errorf("Box = %v, want %v", words[0].Box, want)
	}

	if words[1].Text != "order" {
		t.Errorf("second word = %q, want %q", words[1].Text, "order")
	}
}

func TestParseTSVSkipsNonWordRows(t *testing.T) {
	tsv := "header\n1\t1\t0\t0\t0\t0\t0\t0\t10\t10\t-1\t\nnot-enough-columns\n"
	if words := parseTSV(tsv); words != nil {
		t.Errorf("expected no words, got %v", words)
	}
}

func TestJoinText(t *testing.T) {
	words := []Word{{Text: "confirm"}, {Text: "order"}}
	if got := JoinText(words); got != "confirm order" {
		t.Errorf("JoinText = %q", got)
	}
	if got := JoinText(nil); got != "" {
		t.Errorf("JoinText(nil) = %q, want empty", got)
	}
}

func TestNewTesseractMissingBinary(t *testing.T) {
	if _, err := NewTesseract("definitely-not-a-real-binary", ""); err == nil {
		t.Error("expected error for missing binary")
	}
}
