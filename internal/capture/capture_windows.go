//go:build windows

package capture

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

type windowsBackend struct{ tempDir string }

func (w *windowsBackend) captureRaw() []byte {
	tmpFile := filepath.Join(w.tempDir, "frame.png")
	script := `Add-Type -AssemblyName System.Windows.Forms,System.Drawing;` +
		`$b = [System.Windows.Forms.Screen]::PrimaryScreen.Bounds;` +
		`$bmp = New-Object System.Drawing.Bitmap $b.Width, $b.Height;` +
		`$g = [System.Drawing.Graphics]::FromImage($bmp);` +
		`$g.CopyFromScreen($b.Location, [System.Drawing.Point]::Empty, $b.Size);` +
		`$bmp.Save('` + tmpFile + `', [System.Drawing.Imaging.ImageFormat]::Png)`
	cmd := exec.Command("powershell", "-NoProfile", "-Command", script)
	if err := cmd.Run(); err != nil {
		slog.Error("powershell capture failed", "error", err)
		return nil
	}
	data, err := os.ReadFile(tmpFile)
	if err != nil {
		slog.Error("failed to read frame", "error", err)
		return nil
	}
	os.Remove(tmpFile)
	return data
}

func (w *windowsBackend) cleanup() {}

// New creates a platform-specific screen capturer
func New() Capturer {
	tmpDir, err := os.MkdirTemp("", "uivision-frames-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return newBase(&windowsBackend{tempDir: tmpDir}, tmpDir)
}
