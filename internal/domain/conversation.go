package domain

import (
	"fmt"
	"time"
)

// TurnRole identifies the author of a conversation turn
type TurnRole string

const (
	TurnRoleUser TurnRole = "user"
	TurnRoleBot  TurnRole = "bot"
)

// Conversation represents a chat thread
type Conversation struct {
	ID        string
	Title     string
	CreatedAt time.Time
}

// Turn represents a single message within a conversation.
// Turns are append-only; within a conversation, timestamps are
// non-decreasing in append order.
type Turn struct {
	ID             string
	ConversationID string
	Role           TurnRole
	Content        string
	Timestamp      time.Time
}

// NewConversation creates a new Conversation instance
func NewConversation(id, title string, createdAt time.Time) *Conversation {
	if title == "" {
		title = "Conversation"
	}
	return &Conversation{
		ID:        id,
		Title:     title,
		CreatedAt: createdAt,
	}
}

// NewTurn creates a new Turn instance
func NewTurn(id, conversationID string, role TurnRole, content string, timestamp time.Time) *Turn {
	return &Turn{
		ID:             id,
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      timestamp,
	}
}

// ValidateTurn validates a Turn instance
func ValidateTurn(t *Turn) error {
	if t == nil {
		return fmt.Errorf("turn cannot be nil")
	}

	if t.ID == "" {
		return fmt.Errorf("turn ID is required")
	}

	if t.ConversationID == "" {
		return fmt.Errorf("turn ConversationID is required")
	}

	if t.Content == "" {
		return fmt.Errorf("turn Content is required")
	}

	if !isValidTurnRole(t.Role) {
		return fmt.Errorf("turn Role is invalid: %s", t.Role)
	}

	return nil
}

// isValidTurnRole checks if a TurnRole is valid
func isValidTurnRole(r TurnRole) bool {
	switch r {
	case TurnRoleUser, TurnRoleBot:
		return true
	}
	return false
}
