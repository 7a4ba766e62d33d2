package domain

import "fmt"

// Role tags a conversation turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one (role, text) entry in a conversation.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// ConversationSession holds the rolling message history for one chat
// session. It has fixed-capacity ring buffer semantics: appending
// beyond capacity evicts the oldest turn. Sessions are in-memory only
// and owned by a single session handler; callers must serialize access.
type ConversationSession struct {
	ID       string
	capacity int
	turns    []Turn
}

// DefaultSessionCapacity bounds history to keep prompts small.
const DefaultSessionCapacity = 20

// NewConversationSession creates a session with the given capacity.
// A non-positive capacity falls back to DefaultSessionCapacity.
func NewConversationSession(id string, capacity int) *ConversationSession {
	if capacity <= 0 {
		capacity = DefaultSessionCapacity
	}
	return &ConversationSession{
		ID:       id,
		capacity: capacity,
		turns:    make([]Turn, 0, capacity),
	}
}

// Append adds a turn, evicting the oldest one when at capacity.
func (s *ConversationSession) Append(role Role, text string) {
	if len(s.turns) == s.capacity {
		copy(s.turns, s.turns[1:])
		s.turns = s.turns[:len(s.turns)-1]
	}
	s.turns = append(s.turns, Turn{Role: role, Text: text})
}

// History returns a copy of the turns in append order, oldest first.
func (s *ConversationSession) History() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// Len returns the number of retained turns.
func (s *ConversationSession) Len() int {
	return len(s.turns)
}

// Capacity returns the maximum number of retained turns.
func (s *ConversationSession) Capacity() int {
	return s.capacity
}

// ValidateTurn validates a Turn instance
func ValidateTurn(t Turn) error {
	switch t.Role {
	case RoleSystem, RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("turn Role is invalid: %s", t.Role)
	}

	if t.Text == "" {
		return fmt.Errorf("turn Text is required")
	}

	return nil
}
