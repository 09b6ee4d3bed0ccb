package region

import (
	"fmt"
	"os"
	"path/filepath"
)

// Lint checks a region set against a frame size and reports issues per
// region name. dir, when non-empty, is the run directory used to verify
// that referenced template images exist. Linting never mutates regions;
// callers decide whether issues block anything.
func Lint(regions []Region, imgW, imgH int, dir string) map[string][]string {
	issues := make(map[string][]string)

	add := func(r Region, msg string) {
		issues[r.Name] = append(issues[r.Name], msg)
	}

	for _, r := range regions {
		if !r.Type.Valid() {
			add(r, fmt.Sprintf("unknown type %q", r.Type))
		}

		if r.W <= 0 || r.H <= 0 {
			add(r, "zero or negative size")
		}
		if r.X < 0 || r.Y < 0 {
			add(r, "negative coordinates")
		}
		// Bounds are only checkable with a known frame size.
		if imgW > 0 && imgH > 0 && (r.X+r.W > imgW || r.Y+r.H > imgH) {
			add(r, "out of bounds")
		}

		if len(r.Annotation) > MaxAnnotationLength {
			add(r, fmt.Sprintf("annotation too long (%d chars)", len(r.Annotation)))
		}

		if r.Type.UsesTemplate() {
			switch {
			case r.Template == nil || r.Template.File == "":
				add(r, "template region missing template file")
			case dir != "":
				path := filepath.Join(dir, r.Template.File)
				if _, err := os.Stat(path); err != nil {
					add(r, fmt.Sprintf("template image missing: %s", r.Template.File))
				}
			}
		}
	}

	for i, a := range regions {
		for _, b := range regions[i+1:] {
			if a.Rect().Overlaps(b.Rect()) {
				add(a, fmt.Sprintf("overlaps %s", b.Name))
				add(b, fmt.Sprintf("overlaps %s", a.Name))
			}
		}
	}

	if len(issues) == 0 {
		return nil
	}
	return issues
}
