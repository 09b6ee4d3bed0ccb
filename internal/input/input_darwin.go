//go:build darwin

package input

import (
	"context"
	"fmt"
	"os/exec"
)

type darwinClicker struct{ bin string }

// New creates a platform-specific clicker
func New() (Clicker, error) {
	bin, err := exec.LookPath("cliclick")
	if err != nil {
		return nil, fmt.Errorf("cliclick not found (brew install cliclick): %w", err)
	}
	return &darwinClicker{bin: bin}, nil
}

func (d *darwinClicker) Click(ctx context.Context, x, y int) error {
	cmd := exec.CommandContext(ctx, d.bin, fmt.Sprintf("c:%d,%d", x, y))
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("cliclick: %w (%s)", err, out)
	}
	return nil
}
