package policy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uivision/bot/internal/vision"
)

func boolPtr(b bool) *bool        { return &b }
func floatPtr(f float64) *float64 { return &f }

func analysisWith(region string, matched bool, conf float64) *vision.FrameAnalysis {
	return &vision.FrameAnalysis{
		Detections: map[string]vision.Detection{
			region: {Region: region, Matched: matched, Confidence: conf},
		},
	}
}

func TestEvaluateFirstMatch(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "first", When: Condition{Region: "ok_button", Matched: boolPtr(true)}, Action: Action{Click: true}},
		{Name: "second", When: Condition{Region: "ok_button"}, Action: Action{}},
	})

	fire := e.Evaluate(analysisWith("ok_button", true, 0.95))
	require.NotNil(t, fire)
	assert.Equal(t, "first", fire.Policy)
	assert.Equal(t, "ok_button", fire.Region)
	assert.True(t, fire.Action.Click)
	assert.InDelta(t, 0.95, fire.Confidence, 1e-9)
}

func TestEvaluateUnknownRegion(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "r", When: Condition{Region: "missing"}},
	})
	assert.Nil(t, e.Evaluate(analysisWith("ok_button", true, 0.9)))
}

func TestEvaluateMatchedCondition(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "on-miss", When: Condition{Region: "spinner", Matched: boolPtr(false)}},
	})

	assert.Nil(t, e.Evaluate(analysisWith("spinner", true, 0.9)))

	fire := e.Evaluate(analysisWith("spinner", false, 0.1))
	require.NotNil(t, fire)
	assert.Equal(t, "on-miss", fire.Policy)
}

func TestEvaluateConfidenceThreshold(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "r", When: Condition{Region: "ok_button", ConfidenceGTE: floatPtr(0.8)}},
	})

	assert.Nil(t, e.Evaluate(analysisWith("ok_button", true, 0.79)))
	assert.NotNil(t, e.Evaluate(analysisWith("ok_button", true, 0.8)))
}

func TestEvaluateCooldown(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "r", When: Condition{Region: "ok_button"}, Action: Action{Cooldown: 0.05}},
	})
	a := analysisWith("ok_button", true, 0.9)

	require.NotNil(t, e.Evaluate(a), "first fire should succeed")
	assert.Nil(t, e.Evaluate(a), "should be in cooldown")

	time.Sleep(60 * time.Millisecond)
	assert.NotNil(t, e.Evaluate(a), "should fire after cooldown")
}

func TestEvaluateCooldownSkipsToNextRule(t *testing.T) {
	e := NewEngine([]Rule{
		{Name: "hot", When: Condition{Region: "ok_button"}, Action: Action{Cooldown: 10}},
		{Name: "fallback", When: Condition{Region: "ok_button"}},
	})
	a := analysisWith("ok_button", true, 0.9)

	fire := e.Evaluate(a)
	require.NotNil(t, fire)
	assert.Equal(t, "hot", fire.Policy)

	fire = e.Evaluate(a)
	require.NotNil(t, fire, "cooldown on one rule should not block others")
	assert.Equal(t, "fallback", fire.Policy)
}

func TestEvaluateNilAnalysis(t *testing.T) {
	e := NewEngine([]Rule{{Name: "r", When: Condition{Region: "x"}}})
	assert.Nil(t, e.Evaluate(nil))
}

func TestLoad(t *testing.T) {
	doc := `
- name: click-accept
  when:
    region: accept_button
    matched: true
    confidence_gte: 0.9
  action:
    click: true
    cooldown: 5
- name: log-spinner
  when:
    region: spinner
`
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	rules, err := Load(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "click-accept", rules[0].Name)
	require.NotNil(t, rules[0].When.Matched)
	assert.True(t, *rules[0].When.Matched)
	require.NotNil(t, rules[0].When.ConfidenceGTE)
	assert.InDelta(t, 0.9, *rules[0].When.ConfidenceGTE, 1e-9)
	assert.True(t, rules[0].Action.Click)
	assert.InDelta(t, 5.0, rules[0].Action.Cooldown, 1e-9)

	assert.Nil(t, rules[1].When.Matched)
	assert.Nil(t, rules[1].When.ConfidenceGTE)
}

func TestLoadMissingFile(t *testing.T) {
	rules, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, rules)
}

func TestLoadRejectsUnnamed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- when:\n    region: x\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadRejectsMissingRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- name: r\n  when: {}\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
