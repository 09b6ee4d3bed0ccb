package replay

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/uivision/bot/internal/region"
)

// ClassMap assigns YOLO class IDs to UI element kinds.
var ClassMap = map[string]int{
	"button":       0,
	"icon":         1,
	"text_block":   2,
	"panel":        3,
	"dialog":       4,
	"checkbox":     6,
	"slider":       7,
	"dropdown":     8,
	"progress_bar": 10,
	"notification": 11,
}

// ExportTrainingSample writes the frame at idx plus a YOLO label for the
// region's bounding box into <run>/training_export/{images,labels}.
// The label holds the normalized box center and size.
func (r *Run) ExportTrainingSample(idx int, reg region.Region, classID int) error {
	frameData, err := r.Frame(idx)
	if err != nil {
		return err
	}
	cfg, err := decodeConfig(frameData)
	if err != nil {
		return err
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("frame %d has zero dimensions", idx)
	}

	out := filepath.Join(r.Dir, "training_export")
	if err := os.MkdirAll(filepath.Join(out, "images"), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(out, "labels"), 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	name := fmt.Sprintf("frame_%06d", idx)
	if err := os.WriteFile(filepath.Join(out, "images", name+".png"), frameData, 0o644); err != nil {
		return fmt.Errorf("write export image: %w", err)
	}

	w, h := float64(cfg.Width), float64(cfg.Height)
	xc := (float64(reg.X) + float64(reg.W)/2) / w
	yc := (float64(reg.Y) + float64(reg.H)/2) / h
	label := fmt.Sprintf("%d %.6f %.6f %.6f %.6f\n",
		classID, xc, yc, float64(reg.W)/w, float64(reg.H)/h)

	if err := os.WriteFile(filepath.Join(out, "labels", name+".txt"), []byte(label), 0o644); err != nil {
		return fmt.Errorf("write export label: %w", err)
	}
	return nil
}

func decodeConfig(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("decode frame header: %w", err)
	}
	return cfg, nil
}
