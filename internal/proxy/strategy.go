package proxy

import "fmt"

// Strategy names a generator backend selectable per mode.
type Strategy string

const (
	StrategyOpenAI       Strategy = "openai"
	StrategyGeminiSearch Strategy = "gemini_search"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyOpenAI, StrategyGeminiSearch:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown generator strategy %q (want %q or %q)", s, StrategyOpenAI, StrategyGeminiSearch)
}

// Strategies picks the Generator for a mode, falling back to Default.
type Strategies struct {
	Default Generator
	ByMode  map[string]Generator
}

func (s Strategies) For(mode string) Generator {
	if g, ok := s.ByMode[mode]; ok && g != nil {
		return g
	}
	return s.Default
}
