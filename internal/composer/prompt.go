package composer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/zadescoxp/Sahayak/internal/profile"
)

// maxAnalysisTokens bounds how much of a stored analysis is embedded in the
// health chat instructions.
const maxAnalysisTokens = 1500

type template struct {
	required []string
	render   func(v map[string]string) string
}

var templates = map[Mode]template{
	ModeGeneral: {
		required: []string{profile.KeyName, profile.KeyAge, profile.KeyGender, profile.KeyState, profile.KeyLanguage},
		render: func(v map[string]string) string {
			return fmt.Sprintf(
				"You are Sahayak, a patient and friendly assistant for elderly users in India. "+
					"You are talking to %s, a %s year old (gender: %s) from %s. "+
					"Always reply in %s, using short, simple sentences and no jargon. "+
					"If a question needs a doctor, lawyer or bank official, say so clearly.",
				v[profile.KeyName], v[profile.KeyAge], v[profile.KeyGender], v[profile.KeyState], v[profile.KeyLanguage])
		},
	},
	ModeReligion: {
		required: []string{profile.KeyName, profile.KeyAge, profile.KeyGender, profile.KeyState, profile.KeyLanguage, profile.KeyReligion},
		render: func(v map[string]string) string {
			return fmt.Sprintf(
				"You are Sahayak, a gentle spiritual companion. "+
					"You are talking to %s, a %s year old (gender: %s) from %s who follows %s. "+
					"Share stories, prayers, festivals and teachings from the %s tradition with respect and warmth. "+
					"Always reply in %s and keep answers calm and easy to follow.",
				v[profile.KeyName], v[profile.KeyAge], v[profile.KeyGender], v[profile.KeyState],
				v[profile.KeyReligion], v[profile.KeyReligion], v[profile.KeyLanguage])
		},
	},
	ModeSchemes: {
		required: []string{profile.KeyName, profile.KeyAge, profile.KeyGender, profile.KeyState, profile.KeyLanguage},
		render: func(v map[string]string) string {
			return fmt.Sprintf(
				"You are Sahayak, an expert on Indian government welfare schemes. "+
					"You are helping %s, a %s year old (gender: %s) living in %s. "+
					"Suggest central and %s state schemes this person is likely eligible for, "+
					"explain the benefits and the documents needed, and describe how to apply step by step. "+
					"Always reply in %s.",
				v[profile.KeyName], v[profile.KeyAge], v[profile.KeyGender], v[profile.KeyState],
				v[profile.KeyState], v[profile.KeyLanguage])
		},
	},
	ModeHealth: {
		required: []string{profile.KeyName, profile.KeyAge, profile.KeyGender, profile.KeyLanguage},
		render: func(v map[string]string) string {
			return fmt.Sprintf(
				"You are Sahayak, a careful health assistant. "+
					"You are talking to %s, a %s year old (gender: %s). "+
					"Give general, safe health guidance in %s. "+
					"Never prescribe dosages and always recommend seeing a doctor for anything serious.",
				v[profile.KeyName], v[profile.KeyAge], v[profile.KeyGender], v[profile.KeyLanguage])
		},
	},
}

// Compose renders the instructions for mode from p. It has no side effects:
// the same mode and profile always produce the same string. A required
// field that p lacks yields a *MissingFieldError naming the first one.
func Compose(mode Mode, p profile.Profile) (string, error) {
	tmpl, ok := templates[mode]
	if !ok {
		return "", fmt.Errorf("unknown mode %q", mode)
	}
	values := make(map[string]string, len(tmpl.required))
	for _, field := range tmpl.required {
		v, ok := p.Value(field)
		if !ok {
			return "", &MissingFieldError{Mode: mode, Field: field}
		}
		values[field] = v
	}
	return tmpl.render(values), nil
}

// ComposeHealthChat builds follow-up instructions that ground the
// conversation in the user's most recent image analysis.
func ComposeHealthChat(p profile.Profile, analysis string) (string, error) {
	base, err := Compose(ModeHealth, p)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString(base)
	sb.WriteString("\n\n[Latest Health Analysis]\n")
	sb.WriteString(truncateTokens(strings.TrimSpace(analysis), maxAnalysisTokens))
	sb.WriteString("\n\nAnswer the user's follow-up questions about this analysis.")
	return sb.String(), nil
}

// ComposeImageAnalysis builds instructions for analyzing a photo of a
// prescription, medicine strip or visible symptom.
func ComposeImageAnalysis(p profile.Profile) (string, error) {
	base, err := Compose(ModeHealth, p)
	if err != nil {
		return "", err
	}
	return base + "\n\n" +
		"The user has shared an image. Describe what it shows. " +
		"If it is a prescription or medicine, list each medicine with its common use. " +
		"If it shows a symptom, describe possible causes and simple care tips. " +
		"Finish with when to see a doctor.", nil
}

// estimateTokens provides a rough token count using 4 chars per token heuristic.
func estimateTokens(text string) int {
	return (len(text) + 3) / 4
}

func truncateTokens(s string, maxTokens int) string {
	if estimateTokens(s) <= maxTokens {
		return s
	}
	limit := maxTokens * 4
	// Ensure we don't split a multi-byte UTF-8 character.
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "…"
}
