// Package region defines named screen areas and their detection settings.
package region

// Detection defaults applied when a region omits explicit thresholds.
const (
	DefaultMatchThreshold = 0.8
	DefaultOCRThreshold   = 0.6

	// Linter limit for the free-form annotation field
	MaxAnnotationLength = 64
)
