package vision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uivision/bot/internal/ocr"
)

func TestValidateOCR(t *testing.T) {
	words := []ocr.Word{
		{Text: "cancel", Confidence: 0.9},
		{Text: "confirm", Confidence: 0.8},
		{Text: "ok", Confidence: 0.3},
	}

	ok, w := ValidateOCR(words, []string{"confirm"}, 0.6)
	require.True(t, ok)
	require.Equal(t, "confirm", w.Text)

	// Below threshold never validates, even on exact text.
	ok, _ = ValidateOCR(words, []string{"ok"}, 0.6)
	require.False(t, ok)

	// Expected tokens are matched case-insensitively as substrings.
	ok, _ = ValidateOCR(words, []string{"CONF"}, 0.6)
	require.True(t, ok)

	ok, _ = ValidateOCR(nil, []string{"confirm"}, 0.6)
	require.False(t, ok)
}

func TestValidateOCRNoExpectedTokens(t *testing.T) {
	words := []ocr.Word{{Text: "anything", Confidence: 0.7}}

	ok, w := ValidateOCR(words, nil, 0.6)
	require.False(t, ok, "no expected tokens means nothing to confirm against")
	require.Nil(t, w)

	ok, _ = ValidateOCR(words, []string{}, 0.6)
	require.False(t, ok)
}

func TestFuse(t *testing.T) {
	require.False(t, Fuse(MatchResult{Found: false, Confidence: 0.99}, true))
	require.True(t, Fuse(MatchResult{Found: true, Confidence: 0.95}, false))
	require.True(t, Fuse(MatchResult{Found: true, Confidence: 0.82}, true))
	require.False(t, Fuse(MatchResult{Found: true, Confidence: 0.82}, false))
}

func TestAggregateConfidence(t *testing.T) {
	values := []float64{0.9, 0.5, 0.7}

	got, err := AggregateConfidence(values, AggregateMin)
	require.NoError(t, err)
	require.Equal(t, 0.5, got)

	got, err = AggregateConfidence(values, AggregateMean)
	require.NoError(t, err)
	require.InDelta(t, 0.7, got, 1e-9)

	got, err = AggregateConfidence(values, AggregateProduct)
	require.NoError(t, err)
	require.InDelta(t, 0.315, got, 1e-9)

	// Empty input means no confidence, not an error.
	got, err = AggregateConfidence(nil, AggregateMin)
	require.NoError(t, err)
	require.Zero(t, got)

	// Blank mode falls back to min.
	got, err = AggregateConfidence(values, "")
	require.NoError(t, err)
	require.Equal(t, 0.5, got)

	_, err = AggregateConfidence(values, "median")
	require.Error(t, err)
}
