// Package region defines named screen areas and their detection settings.
package region

import "image"

// Type selects which detectors run on a region.
type Type string

const (
	TypeButton   Type = "button"   // geometry only, no detection
	TypeTemplate Type = "template" // template matching
	TypeOCR      Type = "ocr"      // text recognition
	TypeHybrid   Type = "hybrid"   // template matching validated by OCR
)

// Valid reports whether t is a known region type.
func (t Type) Valid() bool {
	switch t {
	case TypeButton, TypeTemplate, TypeOCR, TypeHybrid:
		return true
	}
	return false
}

// UsesTemplate reports whether regions of this type run template matching.
func (t Type) UsesTemplate() bool { return t == TypeTemplate || t == TypeHybrid }

// UsesOCR reports whether regions of this type run text recognition.
func (t Type) UsesOCR() bool { return t == TypeOCR || t == TypeHybrid }

// Template configures template matching for a region.
type Template struct {
	File      string  `yaml:"file" json:"file"`
	Threshold float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// OCR configures text validation for a region.
type OCR struct {
	Expected  []string `yaml:"expected,omitempty" json:"expected,omitempty"`
	Threshold float64  `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// ClickMode positions a click inside a region.
type ClickMode string

const (
	ClickCenter ClickMode = "center"
	ClickOrigin ClickMode = "origin"
)

// Click configures where the live runner clicks when a region fires.
type Click struct {
	Mode   ClickMode `yaml:"mode,omitempty" json:"mode,omitempty"`
	Offset [2]int    `yaml:"offset,omitempty" json:"offset,omitempty"`
}

// Region is a named screen area with detection settings.
type Region struct {
	Name       string    `yaml:"name" json:"name"`
	Type       Type      `yaml:"type" json:"type"`
	X          int       `yaml:"x" json:"x"`
	Y          int       `yaml:"y" json:"y"`
	W          int       `yaml:"w" json:"w"`
	H          int       `yaml:"h" json:"h"`
	Annotation string    `yaml:"annotation,omitempty" json:"annotation,omitempty"`
	Template   *Template `yaml:"template,omitempty" json:"template,omitempty"`
	OCR        *OCR      `yaml:"ocr,omitempty" json:"ocr,omitempty"`
	Click      *Click    `yaml:"click,omitempty" json:"click,omitempty"`
}

// Rect returns the region bounds as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.W, r.Y+r.H)
}

// MatchThreshold returns the template-match threshold, defaulted.
func (r Region) MatchThreshold() float64 {
	if r.Template != nil && r.Template.Threshold > 0 {
		return r.Template.Threshold
	}
	return DefaultMatchThreshold
}

// OCRThreshold returns the OCR confidence threshold, defaulted.
func (r Region) OCRThreshold() float64 {
	if r.OCR != nil && r.OCR.Threshold > 0 {
		return r.OCR.Threshold
	}
	return DefaultOCRThreshold
}

// ClickPoint returns the screen coordinate the runner should click.
func (r Region) ClickPoint() image.Point {
	mode := ClickCenter
	var offset [2]int
	if r.Click != nil {
		if r.Click.Mode != "" {
			mode = r.Click.Mode
		}
		offset = r.Click.Offset
	}

	p := image.Pt(r.X, r.Y)
	if mode == ClickCenter {
		p = image.Pt(r.X+r.W/2, r.Y+r.H/2)
	}
	return p.Add(image.Pt(offset[0], offset[1]))
}
