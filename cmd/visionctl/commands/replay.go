package commands

import (
	"fmt"
	"image/png"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uivision/bot/internal/replay"
)

func replayCmd() *cobra.Command {
	var (
		frame    int
		overlay  string
		crop     string
		label    string
		jump     string
		listOnly bool
	)

	cmd := &cobra.Command{
		Use:   "replay <run_dir>",
		Short: "Inspect and label a recorded run",
		Long: "Without flags, prints the run summary and every frame that carries a\n" +
			"positive decision. Use --overlay to render a frame with its detections,\n" +
			"--jump to step to the nearest decision frame, --crop to save a zoomed\n" +
			"region cut, and --label to record a verdict.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := replay.Load(args[0])
			if err != nil {
				return err
			}

			if label != "" {
				return applyLabel(run, label)
			}

			if overlay != "" {
				regions, err := loadRegions()
				if err != nil {
					return err
				}
				data, err := run.Overlay(frame, regions)
				if err != nil {
					return err
				}
				if err := os.WriteFile(overlay, data, 0o644); err != nil {
					return err
				}
				fmt.Printf("Wrote overlay for frame %d to %s\n", frame, overlay)
				return nil
			}

			if crop != "" {
				return saveCrop(run, frame, crop)
			}

			if jump != "" {
				return jumpDecision(run, frame, jump)
			}

			printSummary(run, listOnly)
			return nil
		},
	}

	cmd.Flags().IntVar(&frame, "frame", 0, "frame index for --overlay and --crop")
	cmd.Flags().StringVar(&overlay, "overlay", "", "write the frame with detections drawn to this file")
	cmd.Flags().StringVar(&crop, "crop", "", "write a zoomed crop as <region>:<file>")
	cmd.Flags().StringVar(&label, "label", "", "record a verdict as <frame>:<region>:<tp|fp|uncertain|ignore>")
	cmd.Flags().StringVar(&jump, "jump", "", "jump from --frame to the nearest decision frame (next or prev)")
	cmd.Flags().BoolVar(&listOnly, "decisions", false, "list only frames with positive decisions")
	return cmd
}

func printSummary(run *replay.Run, decisionsOnly bool) {
	fmt.Printf("Run %s: %d frames, started %s\n", run.Meta.RunID, len(run.Frames), run.Meta.StartTime)

	for idx := 0; idx < len(run.Frames); idx++ {
		events := run.Events[idx]
		if len(events) == 0 {
			continue
		}
		decided := false
		for _, e := range events {
			if e.FinalDecision {
				decided = true
				break
			}
		}
		if decisionsOnly && !decided {
			continue
		}
		for _, e := range events {
			marker := " "
			if e.FinalDecision {
				marker = "*"
			}
			fmt.Printf("%s frame %06d  %-20s conf=%.2f ocr=%v\n",
				marker, idx, e.Region, e.Confidence, e.OCRValid)
		}
	}

	labels, err := run.Labels()
	if err == nil && len(labels) > 0 {
		fmt.Printf("%d labels recorded\n", len(labels))
	}
}

func jumpDecision(run *replay.Run, from int, direction string) error {
	var dir int
	switch direction {
	case "next":
		dir = 1
	case "prev":
		dir = -1
	default:
		return fmt.Errorf("jump must be next or prev, got %q", direction)
	}

	idx, ok := run.JumpDecision(from, dir)
	if !ok {
		fmt.Printf("No decision frame %s of %d\n", direction, from)
		return nil
	}

	analysis := run.Analysis(idx)
	names := make([]string, 0, len(analysis.Detections))
	for name := range analysis.Detections {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("Frame %06d:\n", idx)
	for _, name := range names {
		det := analysis.Detections[name]
		marker := " "
		if det.Matched {
			marker = "*"
		}
		fmt.Printf("%s %-20s conf=%.2f ocr=%v\n", marker, det.Region, det.Confidence, det.OCRValid)
	}
	return nil
}

func applyLabel(run *replay.Run, spec string) error {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 {
		return fmt.Errorf("label must be <frame>:<region>:<verdict>, got %q", spec)
	}
	frame, err := strconv.Atoi(parts[0])
	if err != nil {
		return fmt.Errorf("bad frame index %q", parts[0])
	}

	labeler, err := replay.OpenLabeler(run.Dir)
	if err != nil {
		return err
	}
	defer labeler.Close()

	if err := labeler.Label(frame, parts[1], replay.Label(parts[2])); err != nil {
		return err
	}
	fmt.Printf("Labeled frame %d region %s as %s\n", frame, parts[1], parts[2])
	return nil
}

func saveCrop(run *replay.Run, frame int, spec string) error {
	parts := strings.SplitN(spec, ":", 2)
	if len(parts) != 2 {
		return fmt.Errorf("crop must be <region>:<file>, got %q", spec)
	}

	regions, err := loadRegions()
	if err != nil {
		return err
	}
	for _, r := range regions {
		if r.Name != parts[0] {
			continue
		}
		img, err := run.RegionCrop(frame, r)
		if err != nil {
			return err
		}
		f, err := os.Create(parts[1])
		if err != nil {
			return err
		}
		defer f.Close()
		if err := png.Encode(f, img); err != nil {
			return err
		}
		fmt.Printf("Wrote %dx crop of %s to %s\n", replay.CropScale, r.Name, parts[1])
		return nil
	}
	return fmt.Errorf("region %q not found in %s", parts[0], regionsFile)
}
