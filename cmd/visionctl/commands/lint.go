package commands

import (
	"bytes"
	"fmt"
	"image"
	_ "image/png" // PNG decoder

	"github.com/spf13/cobra"

	"github.com/uivision/bot/internal/region"
	"github.com/uivision/bot/internal/replay"
)

func lintCmd() *cobra.Command {
	var (
		width  int
		height int
		runDir string
	)

	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Check region definitions for geometry and asset problems",
		RunE: func(cmd *cobra.Command, args []string) error {
			regions, err := loadRegions()
			if err != nil {
				return err
			}

			// A run's first frame gives the bounds when none are passed
			if runDir != "" && (width == 0 || height == 0) {
				run, err := replay.Load(runDir)
				if err != nil {
					return err
				}
				if len(run.Frames) > 0 {
					frameData, err := run.Frame(0)
					if err != nil {
						return err
					}
					if cfg, _, err := image.DecodeConfig(bytes.NewReader(frameData)); err == nil {
						width, height = cfg.Width, cfg.Height
					}
				}
			}

			findings := region.Lint(regions, width, height, templateDir)
			if len(findings) == 0 {
				fmt.Printf("%d regions, no issues\n", len(regions))
				return nil
			}

			for name, issues := range findings {
				for _, issue := range issues {
					fmt.Printf("%s: %s\n", name, issue)
				}
			}
			return fmt.Errorf("%d regions with issues", len(findings))
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "frame width for bounds checks")
	cmd.Flags().IntVar(&height, "height", 0, "frame height for bounds checks")
	cmd.Flags().StringVar(&runDir, "run", "", "take frame bounds from this run's first frame")
	return cmd
}
