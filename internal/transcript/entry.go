// Package transcript implements the append-only per-session event log:
// one JSON document per line, an explicit durability checkpoint, and
// crash repair of a truncated tail.
package transcript

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind discriminates the transcript entry variants.
type Kind string

const (
	KindMessage      Kind = "message"
	KindToolCall     Kind = "tool_call"
	KindToolResult   Kind = "tool_result"
	KindToken        Kind = "token"
	KindTurnStart    Kind = "turn_start"
	KindTurnEnd      Kind = "turn_end"
	KindCompaction   Kind = "compaction"
	KindMemoryFlush  Kind = "memory_flush"
	KindSessionStart Kind = "session_start"
	KindError        Kind = "error"
)

// Entry is one transcript record. The concrete types below are the only
// implementations; Decode performs an exhaustive match on the type tag.
type Entry interface {
	Kind() Kind
	Validate() error
}

// header carries the fields common to every variant.
type header struct {
	Type      Kind   `json:"type"`
	Timestamp string `json:"timestamp"`
}

func (h header) Kind() Kind { return h.Type }

func (h header) validate(want Kind) error {
	if h.Type != want {
		return fmt.Errorf("transcript: type %q, want %q", h.Type, want)
	}
	if h.Timestamp == "" {
		return fmt.Errorf("transcript: %s entry missing timestamp", want)
	}
	return nil
}

func newHeader(k Kind) header {
	return header{Type: k, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
}

// Message roles accepted in message entries.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MessageEntry records a conversation message.
type MessageEntry struct {
	header
	Role      string `json:"role"`
	Content   string `json:"content"`
	MessageID string `json:"messageId"`
}

// NewMessageEntry creates a timestamped message entry.
func NewMessageEntry(role, content, messageID string) *MessageEntry {
	return &MessageEntry{header: newHeader(KindMessage), Role: role, Content: content, MessageID: messageID}
}

func (e *MessageEntry) Validate() error {
	if err := e.header.validate(KindMessage); err != nil {
		return err
	}
	switch e.Role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return fmt.Errorf("transcript: message entry has invalid role %q", e.Role)
	}
	if e.MessageID == "" {
		return fmt.Errorf("transcript: message entry missing messageId")
	}
	return nil
}

// ToolCallEntry records the start of a tool invocation.
type ToolCallEntry struct {
	header
	ToolName   string `json:"toolName"`
	ToolCallID string `json:"toolCallId"`
}

// NewToolCallEntry creates a timestamped tool_call entry.
func NewToolCallEntry(toolName, toolCallID string) *ToolCallEntry {
	return &ToolCallEntry{header: newHeader(KindToolCall), ToolName: toolName, ToolCallID: toolCallID}
}

func (e *ToolCallEntry) Validate() error {
	if err := e.header.validate(KindToolCall); err != nil {
		return err
	}
	if e.ToolName == "" || e.ToolCallID == "" {
		return fmt.Errorf("transcript: tool_call entry missing toolName or toolCallId")
	}
	return nil
}

// ToolResultEntry records the completion of a tool invocation.
type ToolResultEntry struct {
	header
	ToolCallID string `json:"toolCallId"`
	IsError    *bool  `json:"isError"`
}

// NewToolResultEntry creates a timestamped tool_result entry.
func NewToolResultEntry(toolCallID string, isError bool) *ToolResultEntry {
	return &ToolResultEntry{header: newHeader(KindToolResult), ToolCallID: toolCallID, IsError: &isError}
}

func (e *ToolResultEntry) Validate() error {
	if err := e.header.validate(KindToolResult); err != nil {
		return err
	}
	if e.ToolCallID == "" {
		return fmt.Errorf("transcript: tool_result entry missing toolCallId")
	}
	if e.IsError == nil {
		return fmt.Errorf("transcript: tool_result entry missing isError")
	}
	return nil
}

// TokenEntry records a streamed token fragment.
type TokenEntry struct {
	header
	Content string `json:"content"`
}

// NewTokenEntry creates a timestamped token entry.
func NewTokenEntry(content string) *TokenEntry {
	return &TokenEntry{header: newHeader(KindToken), Content: content}
}

func (e *TokenEntry) Validate() error {
	return e.header.validate(KindToken)
}

// TurnStartEntry marks the beginning of an assistant turn.
type TurnStartEntry struct {
	header
	TurnID   string `json:"turnId"`
	Model    string `json:"model"`
	Provider string `json:"provider"`
}

// NewTurnStartEntry creates a timestamped turn_start entry.
func NewTurnStartEntry(turnID, model, provider string) *TurnStartEntry {
	return &TurnStartEntry{header: newHeader(KindTurnStart), TurnID: turnID, Model: model, Provider: provider}
}

func (e *TurnStartEntry) Validate() error {
	if err := e.header.validate(KindTurnStart); err != nil {
		return err
	}
	if e.TurnID == "" || e.Model == "" || e.Provider == "" {
		return fmt.Errorf("transcript: turn_start entry missing turnId, model, or provider")
	}
	return nil
}

// TurnEndEntry marks the end of an assistant turn with usage numbers.
type TurnEndEntry struct {
	header
	TurnID       string   `json:"turnId"`
	InputTokens  *int64   `json:"inputTokens"`
	OutputTokens *int64   `json:"outputTokens"`
	DurationMs   *float64 `json:"durationMs"`
}

// NewTurnEndEntry creates a timestamped turn_end entry.
func NewTurnEndEntry(turnID string, inputTokens, outputTokens int64, duration time.Duration) *TurnEndEntry {
	ms := float64(duration) / float64(time.Millisecond)
	return &TurnEndEntry{
		header:       newHeader(KindTurnEnd),
		TurnID:       turnID,
		InputTokens:  &inputTokens,
		OutputTokens: &outputTokens,
		DurationMs:   &ms,
	}
}

func (e *TurnEndEntry) Validate() error {
	if err := e.header.validate(KindTurnEnd); err != nil {
		return err
	}
	if e.TurnID == "" {
		return fmt.Errorf("transcript: turn_end entry missing turnId")
	}
	if e.InputTokens == nil || e.OutputTokens == nil || e.DurationMs == nil {
		return fmt.Errorf("transcript: turn_end entry missing token or duration counts")
	}
	return nil
}

// CompactionEntry records a completed compaction and its summary.
type CompactionEntry struct {
	header
	Summary           string `json:"summary"`
	MessagesCompacted *int64 `json:"messagesCompacted"`
}

// NewCompactionEntry creates a timestamped compaction entry.
func NewCompactionEntry(summary string, messagesCompacted int) *CompactionEntry {
	n := int64(messagesCompacted)
	return &CompactionEntry{header: newHeader(KindCompaction), Summary: summary, MessagesCompacted: &n}
}

func (e *CompactionEntry) Validate() error {
	if err := e.header.validate(KindCompaction); err != nil {
		return err
	}
	if e.MessagesCompacted == nil {
		return fmt.Errorf("transcript: compaction entry missing messagesCompacted")
	}
	return nil
}

// MemoryFlushEntry records that extracted memories were persisted.
type MemoryFlushEntry struct {
	header
	MemoriesCount *int64 `json:"memoriesCount"`
}

// NewMemoryFlushEntry creates a timestamped memory_flush entry.
func NewMemoryFlushEntry(memoriesCount int) *MemoryFlushEntry {
	n := int64(memoriesCount)
	return &MemoryFlushEntry{header: newHeader(KindMemoryFlush), MemoriesCount: &n}
}

func (e *MemoryFlushEntry) Validate() error {
	if err := e.header.validate(KindMemoryFlush); err != nil {
		return err
	}
	if e.MemoriesCount == nil {
		return fmt.Errorf("transcript: memory_flush entry missing memoriesCount")
	}
	return nil
}

// SessionStartEntry marks the creation of a session.
type SessionStartEntry struct {
	header
	SessionID string `json:"sessionId"`
}

// NewSessionStartEntry creates a timestamped session_start entry.
func NewSessionStartEntry(sessionID string) *SessionStartEntry {
	return &SessionStartEntry{header: newHeader(KindSessionStart), SessionID: sessionID}
}

func (e *SessionStartEntry) Validate() error {
	if err := e.header.validate(KindSessionStart); err != nil {
		return err
	}
	if e.SessionID == "" {
		return fmt.Errorf("transcript: session_start entry missing sessionId")
	}
	return nil
}

// ErrorEntry records a surfaced error.
type ErrorEntry struct {
	header
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorEntry creates a timestamped error entry.
func NewErrorEntry(code, message string) *ErrorEntry {
	return &ErrorEntry{header: newHeader(KindError), Code: code, Message: message}
}

func (e *ErrorEntry) Validate() error {
	if err := e.header.validate(KindError); err != nil {
		return err
	}
	if e.Code == "" || e.Message == "" {
		return fmt.Errorf("transcript: error entry missing code or message")
	}
	return nil
}

// Decode parses a single transcript line into its concrete entry type
// and validates it.
func Decode(line []byte) (Entry, error) {
	var h header
	if err := json.Unmarshal(line, &h); err != nil {
		return nil, fmt.Errorf("transcript: parse entry: %w", err)
	}

	var e Entry
	switch h.Type {
	case KindMessage:
		e = &MessageEntry{}
	case KindToolCall:
		e = &ToolCallEntry{}
	case KindToolResult:
		e = &ToolResultEntry{}
	case KindToken:
		e = &TokenEntry{}
	case KindTurnStart:
		e = &TurnStartEntry{}
	case KindTurnEnd:
		e = &TurnEndEntry{}
	case KindCompaction:
		e = &CompactionEntry{}
	case KindMemoryFlush:
		e = &MemoryFlushEntry{}
	case KindSessionStart:
		e = &SessionStartEntry{}
	case KindError:
		e = &ErrorEntry{}
	default:
		return nil, fmt.Errorf("transcript: unknown entry type %q", h.Type)
	}

	if err := json.Unmarshal(line, e); err != nil {
		return nil, fmt.Errorf("transcript: parse %s entry: %w", h.Type, err)
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}
