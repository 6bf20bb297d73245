// Package tokens provides token estimation for conversation content.
// The default estimator is a character heuristic; a tiktoken-backed
// estimator is available when the BPE tables can be loaded.
package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/mnemo-ai/mnemo/internal/conversation"
)

// Estimator approximates the token count of a piece of text.
type Estimator interface {
	Estimate(text string) int
}

// perMessageOverhead accounts for role and framing tokens added by chat
// templates around each message.
const perMessageOverhead = 4

// EstimateMessages sums the estimated tokens of all messages.
func EstimateMessages(e Estimator, msgs []conversation.Message) int {
	total := 0
	for _, m := range msgs {
		total += e.Estimate(m.Content) + perMessageOverhead
	}
	return total
}

// Heuristic estimates roughly four characters per token. It never fails
// and needs no external data.
type Heuristic struct{}

// Compile-time interface check.
var _ Estimator = Heuristic{}

// Estimate returns len(text)/4, rounded up, minimum 1 for non-empty text.
func (Heuristic) Estimate(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

// Tiktoken estimates with a real BPE encoding.
type Tiktoken struct {
	enc *tiktoken.Tiktoken
}

// Compile-time interface check.
var _ Estimator = (*Tiktoken)(nil)

// NewTiktoken loads the named encoding (e.g. "cl100k_base"). Callers fall
// back to Heuristic when loading fails.
func NewTiktoken(encoding string) (*Tiktoken, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("tokens: load encoding %s: %w", encoding, err)
	}
	return &Tiktoken{enc: enc}, nil
}

// Estimate returns the exact token count under the loaded encoding.
func (t *Tiktoken) Estimate(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// ForEncoding returns a Tiktoken estimator for the encoding, or Heuristic
// when the encoding cannot be loaded (offline environments).
func ForEncoding(encoding string) Estimator {
	if encoding == "" {
		return Heuristic{}
	}
	if t, err := NewTiktoken(encoding); err == nil {
		return t
	}
	return Heuristic{}
}
