package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Label classifies a recorded detection during review.
type Label string

const (
	LabelTruePositive  Label = "tp"
	LabelFalsePositive Label = "fp"
	LabelUncertain     Label = "uncertain"
	LabelIgnore        Label = "ignore"
)

// Valid reports whether l is a known label.
func (l Label) Valid() bool {
	switch l {
	case LabelTruePositive, LabelFalsePositive, LabelUncertain, LabelIgnore:
		return true
	}
	return false
}

// LabelRecord is one line of labels.jsonl.
type LabelRecord struct {
	Frame  int    `json:"frame"`
	Region string `json:"region"`
	Label  Label  `json:"label"`
}

// Labeler appends review labels to a run's labels.jsonl.
type Labeler struct {
	f *os.File
}

// OpenLabeler opens labels.jsonl for appending
func OpenLabeler(runDir string) (*Labeler, error) {
	f, err := os.OpenFile(filepath.Join(runDir, "labels.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	return &Labeler{f: f}, nil
}

// Label records a verdict for a region detection on a frame.
func (l *Labeler) Label(frame int, regionName string, label Label) error {
	if !label.Valid() {
		return fmt.Errorf("unknown label %q", label)
	}
	rec := LabelRecord{Frame: frame, Region: regionName, Label: label}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal label: %w", err)
	}
	if _, err := l.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write label: %w", err)
	}
	return l.f.Sync()
}

// Close releases the labels file.
func (l *Labeler) Close() error {
	return l.f.Close()
}

// Labels reads all recorded labels for the run.
func (r *Run) Labels() ([]LabelRecord, error) {
	f, err := os.Open(filepath.Join(r.Dir, "labels.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	var records []LabelRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec LabelRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("parse label: %w", err)
		}
		records = append(records, rec)
	}
	return records, scanner.Err()
}
