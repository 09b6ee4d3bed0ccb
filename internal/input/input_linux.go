//go:build linux

package input

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

type linuxClicker struct{ bin string }

// New creates a platform-specific clicker
func New() (Clicker, error) {
	bin, err := exec.LookPath("xdotool")
	if err != nil {
		return nil, fmt.Errorf("xdotool not found: %w", err)
	}
	return &linuxClicker{bin: bin}, nil
}

func (l *linuxClicker) Click(ctx context.Context, x, y int) error {
	cmd := exec.CommandContext(ctx, l.bin,
		"mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", "1")
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("xdotool click: %w (%s)", err, out)
	}
	return nil
}
