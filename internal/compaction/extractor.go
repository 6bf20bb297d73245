package compaction

import (
	"strings"

	"github.com/mnemo-ai/mnemo/internal/conversation"
	"github.com/mnemo-ai/mnemo/internal/memory"
)

// maxExtractedMemories caps how many entries one compaction can extract.
const maxExtractedMemories = 10

// preferenceMarkers signal a statement about how the user wants things done.
var preferenceMarkers = []string{
	"i prefer",
	"i like",
	"i love",
	"i'd rather",
	"i hate",
	"please always",
	"please never",
	"always use",
	"never use",
	"call me",
}

// factMarkers signal a durable statement about the user or their setup.
var factMarkers = []string{
	"my name is",
	"i am ",
	"i'm ",
	"i work",
	"i live",
	"i use",
	"my email",
	"my timezone",
	"my project",
	"remember that",
	"we decided",
	"the deadline",
}

// ExtractMemories scans the messages being compacted for statements worth
// keeping long-term, using keyword classification rather than a model
// call. Empty messages and roles other than user/assistant are skipped;
// at most maxExtractedMemories entries are returned.
func ExtractMemories(msgs []conversation.Message, sessionID string) []memory.Entry {
	var out []memory.Entry
	for _, m := range msgs {
		if len(out) >= maxExtractedMemories {
			break
		}
		if m.Role != conversation.RoleUser && m.Role != conversation.RoleAssistant {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}

		category, ok := classify(content)
		if !ok {
			continue
		}
		out = append(out, memory.Entry{
			Content:   content,
			Category:  category,
			SessionID: sessionID,
		})
	}
	return out
}

// classify returns the memory category for a message, preferring the
// preference markers over the fact markers.
func classify(content string) (memory.Category, bool) {
	lower := strings.ToLower(content)
	for _, marker := range preferenceMarkers {
		if strings.Contains(lower, marker) {
			return memory.CategoryPreference, true
		}
	}
	for _, marker := range factMarkers {
		if strings.Contains(lower, marker) {
			return memory.CategoryFact, true
		}
	}
	return "", false
}
