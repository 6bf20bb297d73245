// Package session persists conversation session metadata in a single
// atomically-written table file with one session flagged as main.
package session

import (
	"time"
)

// Status is the lifecycle state of a session. The compacting state doubles
// as an advisory lock: a session whose status is compacting must not be
// compacted again until it returns to active.
type Status string

const (
	StatusActive     Status = "active"
	StatusArchived   Status = "archived"
	StatusCompacting Status = "compacting"
)

// valid reports whether s is one of the known states.
func (s Status) valid() bool {
	switch s {
	case StatusActive, StatusArchived, StatusCompacting:
		return true
	}
	return false
}

// Metadata is one session record.
type Metadata struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	Model           string     `json:"model"`
	Provider        string     `json:"provider"`
	MessageCount    int        `json:"messageCount"`
	TokenCount      int        `json:"tokenCount"`
	IsMain          bool       `json:"isMain"`
	Status          Status     `json:"status"`
	LastCompactedAt *time.Time `json:"lastCompactedAt,omitempty"`
	TranscriptPath  string     `json:"transcriptPath"`
	ParentSessionID string     `json:"parentSessionId,omitempty"`
	ForkTurnIndex   *int       `json:"forkTurnIndex,omitempty"`
}

// clone returns a copy safe to hand to callers.
func (m *Metadata) clone() *Metadata {
	c := *m
	if m.LastCompactedAt != nil {
		t := *m.LastCompactedAt
		c.LastCompactedAt = &t
	}
	if m.ForkTurnIndex != nil {
		n := *m.ForkTurnIndex
		c.ForkTurnIndex = &n
	}
	return &c
}

// CreateOptions parameterizes Create and NewSession.
type CreateOptions struct {
	Title           string
	Model           string
	Provider        string
	TranscriptPath  string
	MakeMain        bool
	ParentSessionID string
	ForkTurnIndex   *int
}

// Update carries partial field updates for a session. Nil fields are left
// unchanged; UpdatedAt is always refreshed.
type Update struct {
	Title           *string
	Model           *string
	Provider        *string
	MessageCount    *int
	TokenCount      *int
	Status          *Status
	LastCompactedAt *time.Time
}
