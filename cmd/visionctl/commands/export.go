package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uivision/bot/internal/replay"
)

func exportCmd() *cobra.Command {
	var (
		frame      int
		regionName string
		class      string
	)

	cmd := &cobra.Command{
		Use:   "export <run_dir>",
		Short: "Export a frame as a YOLO training sample",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			classID, ok := replay.ClassMap[class]
			if !ok {
				return fmt.Errorf("unknown class %q (known: %s)", class, knownClasses())
			}

			run, err := replay.Load(args[0])
			if err != nil {
				return err
			}
			regions, err := loadRegions()
			if err != nil {
				return err
			}

			for _, r := range regions {
				if r.Name != regionName {
					continue
				}
				if err := run.ExportTrainingSample(frame, r, classID); err != nil {
					return err
				}
				fmt.Printf("Exported frame %d region %s as class %d\n", frame, regionName, classID)
				return nil
			}
			return fmt.Errorf("region %q not found in %s", regionName, regionsFile)
		},
	}

	cmd.Flags().IntVar(&frame, "frame", 0, "frame index to export")
	cmd.Flags().StringVar(&regionName, "region", "", "region whose box becomes the label")
	cmd.Flags().StringVar(&class, "class", "button", "YOLO class name")
	_ = cmd.MarkFlagRequired("region")
	return cmd
}

func knownClasses() string {
	names := make([]string, 0, len(replay.ClassMap))
	for name := range replay.ClassMap {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
