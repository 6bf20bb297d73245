// Package compaction shrinks a session's active conversation once it
// exceeds a token budget, preserving salient facts into long-term memory
// and auditing every step in the session transcript.
package compaction

import "math"

const (
	defaultContextWindowTokens = 128000
	defaultThresholdRatio      = 0.8
	defaultKeepRecentMessages  = 10
	defaultSummaryTokenBudget  = 1024
)

// Config holds the compaction tuning knobs.
type Config struct {
	// ContextWindowTokens is the model context window the threshold is
	// computed against.
	ContextWindowTokens int

	// TokenThresholdRatio is the fraction of the context window at which
	// compaction triggers. Non-finite values fall back to the default.
	TokenThresholdRatio float64

	// KeepRecentMessages is the number of most-recent messages retained
	// verbatim after compaction.
	KeepRecentMessages int

	// SummaryTokenBudget caps the generated summary size.
	SummaryTokenBudget int
}

// withDefaults returns a copy of cfg with zero-valued fields replaced.
func (cfg Config) withDefaults() Config {
	if cfg.ContextWindowTokens == 0 {
		cfg.ContextWindowTokens = defaultContextWindowTokens
	}
	if cfg.TokenThresholdRatio == 0 {
		cfg.TokenThresholdRatio = defaultThresholdRatio
	}
	if cfg.KeepRecentMessages == 0 {
		cfg.KeepRecentMessages = defaultKeepRecentMessages
	}
	if cfg.SummaryTokenBudget == 0 {
		cfg.SummaryTokenBudget = defaultSummaryTokenBudget
	}
	return cfg
}

// Threshold is the token count past which compaction triggers:
// floor(window * ratio), clamped to a minimum of 1.
func (cfg Config) Threshold() int {
	ratio := cfg.TokenThresholdRatio
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		ratio = defaultThresholdRatio
	}
	threshold := int(math.Floor(float64(cfg.ContextWindowTokens) * ratio))
	if threshold < 1 {
		return 1
	}
	return threshold
}
