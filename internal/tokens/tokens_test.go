package tokens_test

import (
	"strings"
	"testing"

	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/tokens"
)

func TestHeuristic_Estimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 40), 10},
	}
	for _, tt := range tests {
		if got := (tokens.Heuristic{}).Estimate(tt.text); got != tt.want {
			t.Errorf("Estimate(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestEstimateMessages_IncludesOverhead(t *testing.T) {
	t.Parallel()

	msgs := []conversation.Message{
		{Role: conversation.RoleUser, Content: "abcd"},
		{Role: conversation.RoleAssistant, Content: ""},
	}
	// 1 content token + 4 overhead, then 0 + 4.
	if got := tokens.EstimateMessages(tokens.Heuristic{}, msgs); got != 9 {
		t.Errorf("EstimateMessages = %d, want 9", got)
	}
}

func TestForEncoding_FallsBack(t *testing.T) {
	t.Parallel()

	if _, ok := tokens.ForEncoding("").(tokens.Heuristic); !ok {
		t.Error("empty encoding should use the heuristic")
	}
	if _, ok := tokens.ForEncoding("definitely-not-an-encoding").(tokens.Heuristic); !ok {
		t.Error("unknown encoding should fall back to the heuristic")
	}
}
