package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/uivision/bot/internal/capture"
	"github.com/uivision/bot/internal/recorder"
)

func recordCmd() *cobra.Command {
	var (
		root     string
		interval time.Duration
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:   "record",
		Short: "Capture screen frames into a new run directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			rec, err := recorder.New(root, interval)
			if err != nil {
				return err
			}
			defer rec.Close()

			capt := capture.New()
			defer capt.Close()

			fmt.Printf("Recording to %s (Ctrl-C to stop)\n", rec.Dir())

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			var deadline <-chan time.Time
			if duration > 0 {
				deadline = time.After(duration)
			}

			frames := 0
			for {
				select {
				case <-sigCh:
					fmt.Printf("\nRecorded %d frames\n", frames)
					return nil
				case <-deadline:
					fmt.Printf("Recorded %d frames\n", frames)
					return nil
				case <-ticker.C:
					data := capt.CaptureAlways()
					if data == nil {
						continue
					}
					if _, err := rec.WriteFrame(data); err != nil {
						return err
					}
					frames++
				}
			}
		},
	}

	cmd.Flags().StringVar(&root, "root", "debug_runs", "directory to create the run under")
	cmd.Flags().DurationVar(&interval, "interval", 500*time.Millisecond, "time between frames")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 = until interrupted)")
	return cmd
}
