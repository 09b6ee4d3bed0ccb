package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/png" // PNG decoder
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/uivision/bot/internal/ocr"
	"github.com/uivision/bot/internal/recorder"
	"github.com/uivision/bot/internal/region"
	"github.com/uivision/bot/internal/replay"
	"github.com/uivision/bot/internal/vision"
)

func analyzeCmd() *cobra.Command {
	var (
		aggregation string
		lang        string
		noOCR       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <run_dir>",
		Short: "Re-run region analysis over a recorded run",
		Long: "Analyzes every frame of a recorded run against the current region\n" +
			"definitions and rewrites the run's events.jsonl with the results.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runDir := args[0]

			regions, err := loadRegions()
			if err != nil {
				return err
			}

			var engine ocr.Engine
			if !noOCR {
				if eng, err := ocr.NewTesseract("tesseract", lang); err != nil {
					fmt.Fprintf(os.Stderr, "OCR unavailable: %v\n", err)
				} else {
					engine = eng
				}
			}

			analyzer, err := vision.NewAnalyzer(regions, templateDir, engine,
				vision.Aggregation(aggregation))
			if err != nil {
				return err
			}
			defer analyzer.Close()

			run, err := replay.Load(runDir)
			if err != nil {
				return err
			}

			// Lint findings warn but never block analysis
			width, height := frameBounds(run)
			for name, issues := range region.Lint(regions, width, height, templateDir) {
				for _, issue := range issues {
					fmt.Fprintf(os.Stderr, "lint: %s: %s\n", name, issue)
				}
			}

			events, err := os.Create(filepath.Join(runDir, "events.jsonl"))
			if err != nil {
				return err
			}
			defer events.Close()
			enc := json.NewEncoder(events)

			ctx := context.Background()
			decisions := 0
			for idx := range run.Frames {
				frameData, err := run.Frame(idx)
				if err != nil {
					return err
				}
				analysis, err := analyzer.AnalyzeImage(ctx, frameData)
				if err != nil {
					return fmt.Errorf("frame %d: %w", idx, err)
				}
				for _, det := range analysis.Detections {
					e := recorder.Event{
						Frame:         idx,
						Region:        det.Region,
						Template:      det.Template,
						OCRValid:      det.OCRValid,
						FinalDecision: det.Matched,
						Confidence:    det.Confidence,
						Text:          det.Text,
					}
					if err := enc.Encode(e); err != nil {
						return err
					}
					if det.Matched {
						decisions++
					}
				}
			}

			fmt.Printf("Analyzed %d frames, %d positive decisions\n", len(run.Frames), decisions)
			return nil
		},
	}

	cmd.Flags().StringVar(&aggregation, "aggregation", "min", "hybrid confidence mode (min, mean, product)")
	cmd.Flags().StringVar(&lang, "lang", "eng", "OCR language")
	cmd.Flags().BoolVar(&noOCR, "no-ocr", false, "skip OCR even if tesseract is installed")
	return cmd
}

// frameBounds reads the first frame's dimensions, or zeros when the run
// has no frames.
func frameBounds(run *replay.Run) (int, int) {
	if len(run.Frames) == 0 {
		return 0, 0
	}
	data, err := run.Frame(0)
	if err != nil {
		return 0, 0
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
