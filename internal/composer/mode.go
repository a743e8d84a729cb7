package composer

import (
	"fmt"
	"strings"
)

// Mode selects the conversational persona used to build instructions.
type Mode string

const (
	ModeGeneral  Mode = "general"
	ModeReligion Mode = "religion"
	ModeSchemes  Mode = "schemes"
	ModeHealth   Mode = "health"
)

// Modes lists every supported mode in route order.
var Modes = []Mode{ModeGeneral, ModeReligion, ModeSchemes, ModeHealth}

// ParseMode returns the Mode named by s (case-insensitive).
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Modes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// MissingFieldError reports the first profile field a mode template needs
// but the profile does not have.
type MissingFieldError struct {
	Mode  Mode
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("profile field %q is required for %s mode", e.Field, e.Mode)
}
