// Package input executes mouse clicks through platform tooling
package input

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Clicker performs a single click at absolute screen coordinates.
type Clicker interface {
	Click(ctx context.Context, x, y int) error
}

// Gate wraps a Clicker behind a runtime enable switch. Clicks are
// dropped, not queued, while disabled. The gate starts disabled unless
// configured otherwise.
type Gate struct {
	clicker Clicker
	mu      sync.Mutex
	enabled bool
}

// NewGate creates a click gate
func NewGate(clicker Clicker, enabled bool) *Gate {
	return &Gate{clicker: clicker, enabled: enabled}
}

// Click executes the click if the gate is enabled.
// Returns true if a click was attempted.
func (g *Gate) Click(ctx context.Context, x, y int) (bool, error) {
	if !g.IsEnabled() {
		return false, nil
	}
	if g.clicker == nil {
		return false, errors.New("no click backend available")
	}
	if err := g.clicker.Click(ctx, x, y); err != nil {
		return true, err
	}
	slog.Info("clicked", "x", x, "y", y)
	return true, nil
}

// SetEnabled enables/disables click execution
func (g *Gate) SetEnabled(enabled bool) {
	g.mu.Lock()
	g.enabled = enabled
	g.mu.Unlock()
	slog.Info("click execution state changed", "enabled", enabled)
}

// IsEnabled returns current enabled state
func (g *Gate) IsEnabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.enabled
}
