package compaction

import (
	"context"
	"strings"

	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/tokens"
)

// placeholderSummary is returned when there is nothing to summarize.
const placeholderSummary = "(no prior conversation content)"

// Summarizer produces a condensed summary of the messages being compacted.
// The default is the line-based LineSummarizer; an LLM-backed
// implementation can be plugged in instead.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []conversation.Message, cfg Config) (string, error)
}

// LineSummarizer renders one "- ROLE: text" line per non-empty message,
// stopping before the line that would exceed the summary token budget.
type LineSummarizer struct {
	estimator tokens.Estimator
}

// NewLineSummarizer creates a LineSummarizer. A nil estimator falls back
// to the character heuristic.
func NewLineSummarizer(estimator tokens.Estimator) *LineSummarizer {
	if estimator == nil {
		estimator = tokens.Heuristic{}
	}
	return &LineSummarizer{estimator: estimator}
}

// Compile-time interface check.
var _ Summarizer = (*LineSummarizer)(nil)

// Summarize renders the digest. It never fails; with no usable content it
// returns a fixed placeholder.
func (s *LineSummarizer) Summarize(_ context.Context, msgs []conversation.Message, cfg Config) (string, error) {
	cfg = cfg.withDefaults()

	var b strings.Builder
	used := 0
	for _, m := range msgs {
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		line := "- " + strings.ToUpper(string(m.Role)) + ": " + text
		cost := s.estimator.Estimate(line)
		if used+cost > cfg.SummaryTokenBudget {
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		used += cost
	}

	if b.Len() == 0 {
		return placeholderSummary, nil
	}
	return b.String(), nil
}
