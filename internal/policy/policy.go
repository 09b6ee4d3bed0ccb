// Package policy evaluates detection state against declarative action rules
package policy

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/uivision/bot/internal/vision"
)

// Condition describes when a rule applies. Nil fields are unconstrained.
type Condition struct {
	Region        string   `yaml:"region" json:"region"`
	Matched       *bool    `yaml:"matched,omitempty" json:"matched,omitempty"`
	ConfidenceGTE *float64 `yaml:"confidence_gte,omitempty" json:"confidence_gte,omitempty"`
}

// Action describes what a rule does when it fires.
type Action struct {
	Click bool `yaml:"click,omitempty" json:"click,omitempty"`
	// Cooldown is the minimum time between fires of this rule, in seconds.
	Cooldown float64 `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
}

// Rule pairs a condition with an action.
type Rule struct {
	Name   string    `yaml:"name" json:"name"`
	When   Condition `yaml:"when" json:"when"`
	Action Action    `yaml:"action" json:"action"`
}

// Fire records a rule firing against a detection.
type Fire struct {
	Policy     string  `json:"policy"`
	Region     string  `json:"region"`
	Confidence float64 `json:"confidence"`
	Action     Action  `json:"action"`
}

// Engine evaluates rules in order against frame analyses.
type Engine struct {
	rules []Rule

	mu        sync.Mutex
	lastFired map[string]time.Time
}

// NewEngine creates a policy engine from an ordered rule list
func NewEngine(rules []Rule) *Engine {
	return &Engine{
		rules:     rules,
		lastFired: make(map[string]time.Time),
	}
}

// Rules returns the configured rules in evaluation order.
func (e *Engine) Rules() []Rule {
	return e.rules
}

// Evaluate returns the first rule that passes its condition and is off
// cooldown, or nil when nothing fires. Rules still on cooldown are
// skipped rather than blocking later rules.
func (e *Engine) Evaluate(analysis *vision.FrameAnalysis) *Fire {
	if analysis == nil {
		return nil
	}
	now := time.Now()

	for _, rule := range e.rules {
		det, ok := analysis.Detections[rule.When.Region]
		if !ok {
			continue
		}
		if rule.When.Matched != nil && det.Matched != *rule.When.Matched {
			continue
		}
		if rule.When.ConfidenceGTE != nil && det.Confidence < *rule.When.ConfidenceGTE {
			continue
		}

		cooldown := time.Duration(rule.Action.Cooldown * float64(time.Second))
		e.mu.Lock()
		if now.Sub(e.lastFired[rule.Name]) < cooldown {
			e.mu.Unlock()
			continue
		}
		e.lastFired[rule.Name] = now
		e.mu.Unlock()

		slog.Info("policy fired",
			"policy", rule.Name,
			"region", rule.When.Region,
			"confidence", det.Confidence)
		return &Fire{
			Policy:     rule.Name,
			Region:     rule.When.Region,
			Confidence: det.Confidence,
			Action:     rule.Action,
		}
	}
	return nil
}

// Load reads rules from a YAML file. A missing file yields no rules.
func Load(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read policies: %w", err)
	}
	var rules []Rule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse policies: %w", err)
	}
	for i, r := range rules {
		if r.Name == "" {
			return nil, fmt.Errorf("policy %d: missing name", i)
		}
		if r.When.Region == "" {
			return nil, fmt.Errorf("policy %q: missing when.region", r.Name)
		}
	}
	return rules, nil
}
