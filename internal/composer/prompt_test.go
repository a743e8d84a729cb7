package composer

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zadescoxp/Sahayak/internal/profile"
)

func fullProfile() profile.Profile {
	return profile.FromFields(map[string]any{
		"uid":      "U1",
		"email":    "asha@example.com",
		"name":     "Asha",
		"age":      float64(70),
		"gender":   "F",
		"state":    "Kerala",
		"language": "Malayalam",
		"religion": "Hindu",
	})
}

func TestCompose_AllModesRender(t *testing.T) {
	p := fullProfile()
	for _, m := range Modes {
		t.Run(string(m), func(t *testing.T) {
			out, err := Compose(m, p)
			require.NoError(t, err)
			assert.Contains(t, out, "Asha")
			assert.Contains(t, out, "Malayalam")
		})
	}
}

func TestCompose_Deterministic(t *testing.T) {
	p := fullProfile()
	for _, m := range Modes {
		a, err := Compose(m, p)
		require.NoError(t, err)
		b, err := Compose(m, fullProfile())
		require.NoError(t, err)
		assert.Equal(t, a, b, "mode %s", m)
	}
}

func TestCompose_SubstitutesFields(t *testing.T) {
	out, err := Compose(ModeReligion, fullProfile())
	require.NoError(t, err)
	assert.Contains(t, out, "70 year old")
	assert.Contains(t, out, "Kerala")
	assert.Contains(t, out, "Hindu")
}

func TestCompose_MissingField(t *testing.T) {
	tests := []struct {
		mode   Mode
		fields map[string]any
		want   string
	}{
		{ModeGeneral, map[string]any{"name": "Asha"}, "age"},
		{ModeGeneral, map[string]any{}, "name"},
		{ModeReligion, map[string]any{"name": "A", "age": 1, "gender": "F", "state": "K", "language": "M"}, "religion"},
		{ModeSchemes, map[string]any{"name": "A", "age": 1, "gender": "F", "language": "M"}, "state"},
		{ModeHealth, map[string]any{"name": "A", "age": 1, "gender": "F"}, "language"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.want, func(t *testing.T) {
			_, err := Compose(tt.mode, profile.FromFields(tt.fields))
			var mfe *MissingFieldError
			require.True(t, errors.As(err, &mfe), "expected MissingFieldError, got %v", err)
			assert.Equal(t, tt.mode, mfe.Mode)
			assert.Equal(t, tt.want, mfe.Field)
		})
	}
}

func TestCompose_HealthDoesNotNeedState(t *testing.T) {
	_, err := Compose(ModeHealth, profile.FromFields(map[string]any{
		"name": "A", "age": "60", "gender": "M", "language": "Hindi",
	}))
	assert.NoError(t, err)
}

func TestCompose_UnknownMode(t *testing.T) {
	_, err := Compose(Mode("astrology"), fullProfile())
	require.Error(t, err)
	var mfe *MissingFieldError
	assert.False(t, errors.As(err, &mfe))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Schemes ")
	require.NoError(t, err)
	assert.Equal(t, ModeSchemes, m)

	_, err = ParseMode("weather")
	assert.Error(t, err)
}

func TestComposeHealthChat_EmbedsAnalysis(t *testing.T) {
	out, err := ComposeHealthChat(fullProfile(), "  Paracetamol 500mg strip.  ")
	require.NoError(t, err)
	assert.Contains(t, out, "[Latest Health Analysis]\nParacetamol 500mg strip.\n")
}

func TestComposeHealthChat_TruncatesLongAnalysis(t *testing.T) {
	long := strings.Repeat("a", maxAnalysisTokens*4+100)
	out, err := ComposeHealthChat(fullProfile(), long)
	require.NoError(t, err)
	assert.NotContains(t, out, long)
	assert.Contains(t, out, "…")
}

func TestComposeImageAnalysis_RequiresHealthFields(t *testing.T) {
	_, err := ComposeImageAnalysis(profile.FromFields(map[string]any{"name": "A"}))
	var mfe *MissingFieldError
	require.ErrorAs(t, err, &mfe)
	assert.Equal(t, ModeHealth, mfe.Mode)
}

func TestTruncateTokens_RuneBoundary(t *testing.T) {
	s := strings.Repeat("é", 10) // 2 bytes each
	out := truncateTokens(s, 1)  // 4 byte limit
	assert.Equal(t, "éé…", out)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 1, estimateTokens("abcd"))
	assert.Equal(t, 2, estimateTokens("abcde"))
}

func TestTruncateTokens_WithinBudget(t *testing.T) {
	assert.Equal(t, "abcd", truncateTokens("abcd", 1))
	assert.Equal(t, "abcd…", truncateTokens("abcde", 1))
}
