// Package runner coordinates capture, analysis, policies, and input
package runner

// Runner configuration constants
const (
	// Channel buffer sizes
	EventChannelBuffer = 32

	// Event types
	EventAnalysis = "analysis"
	EventFire     = "fire"
	EventClick    = "click"
)
