//go:build windows

package input

import (
	"context"
	"fmt"
	"os/exec"
)

type windowsClicker struct{}

// New creates a platform-specific clicker
func New() (Clicker, error) {
	return &windowsClicker{}, nil
}

func (w *windowsClicker) Click(ctx context.Context, x, y int) error {
	script := fmt.Sprintf(
		`Add-Type -AssemblyName System.Windows.Forms;`+
			`[System.Windows.Forms.Cursor]::Position = New-Object System.Drawing.Point(%d, %d);`+
			`$sig = '[DllImport("user32.dll")] public static extern void mouse_event(int f, int x, int y, int d, int e);';`+
			`$m = Add-Type -MemberDefinition $sig -Name NativeClick -PassThru;`+
			`$m::mouse_event(2, 0, 0, 0, 0); $m::mouse_event(4, 0, 0, 0, 0)`,
		x, y)
	cmd := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", script)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("powershell click: %w (%s)", err, out)
	}
	return nil
}
