package models

import (
	"time"
)

// Stage identifies where a session is in the presentation-building
// conversation. Transitions between stages are validated by the workflow
// state machine; stages are never skipped.
type Stage string

const (
	StageIntake            Stage = "INTAKE"
	StagePlanConfirmation  Stage = "PLAN_CONFIRMATION"
	StageGenerateStrawman  Stage = "GENERATE_STRAWMAN"
	StageStrawmanReview    Stage = "STRAWMAN_REVIEW"
	StageRefinement        Stage = "REFINEMENT"
	StageContentGeneration Stage = "CONTENT_GENERATION"
	StageComplete          Stage = "COMPLETE"
)

// MessageRole identifies who authored a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn in a session's conversation history.
type Message struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	CreatedAt time.Time   `json:"created_at"`
}

// Session is one conversation instance. It is created on first connection,
// mutated by every accepted transition, and torn down when the connection
// ends or the session is explicitly deleted. Sessions share no state.
type Session struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Stage          Stage     `json:"stage"`
	Topic          string    `json:"topic,omitempty"`
	Audience       string    `json:"audience,omitempty"`
	SlideCountHint int       `json:"slide_count_hint,omitempty"`
	Strawman       *Strawman `json:"strawman,omitempty"`
	History        []Message `json:"history"`
	DeckURL        string    `json:"deck_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// AppendMessage records a conversation turn on the session.
func (s *Session) AppendMessage(role MessageRole, content string) {
	s.History = append(s.History, Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	})
}
