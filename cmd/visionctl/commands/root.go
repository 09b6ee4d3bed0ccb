package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uivision/bot/internal/region"
)

var (
	regionsFile string
	templateDir string
)

func Execute() error {
	root := &cobra.Command{
		Use:   "visionctl",
		Short: "Record, inspect, and label UI vision runs",
	}

	root.PersistentFlags().StringVar(&regionsFile, "regions", "config/regions.yaml", "region definitions file")
	root.PersistentFlags().StringVar(&templateDir, "templates", "config/templates", "template image directory")

	root.AddCommand(recordCmd(), analyzeCmd(), lintCmd(), replayCmd(), exportCmd())
	return root.Execute()
}

func loadRegions() ([]region.Region, error) {
	regions, err := region.Load(regionsFile)
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 {
		return nil, fmt.Errorf("no regions defined in %s", regionsFile)
	}
	return regions, nil
}
