package orchestration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/slidecraft/deck-orchestrator/internal/models"
	"github.com/slidecraft/deck-orchestrator/internal/workflow"
)

// ErrSessionNotFound is returned when a session does not exist or does not
// belong to the requesting user.
var ErrSessionNotFound = fmt.Errorf("session not found")

// Service handles session persistence and per-session serialization around
// the workflow runner. Every state-changing call runs inside a transaction
// that locks the session row, so concurrent inputs to the same session are
// applied one at a time and each sees the stage the previous one left.
type Service struct {
	pool   *pgxpool.Pool
	runner *workflow.Runner
}

// NewService creates a new orchestration service
func NewService(pool *pgxpool.Pool, runner *workflow.Runner) *Service {
	return &Service{
		pool:   pool,
		runner: runner,
	}
}

// CreateSession creates a new session in INTAKE for the user and returns it
// with the intake prompt already recorded.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	session := &models.Session{
		ID:     uuid.New().String(),
		UserID: userID.String(),
		Stage:  models.StageIntake,
	}
	session.AppendMessage(models.RoleAssistant, workflow.PromptFor(models.StageIntake))

	historyJSON, err := json.Marshal(session.History)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, user_id, stage, history)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		session.ID, userID, session.Stage, historyJSON,
	).Scan(&session.CreatedAt, &session.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// GetSession retrieves a session owned by the user
func (s *Service) GetSession(ctx context.Context, sessionID string, userID uuid.UUID) (*models.Session, error) {
	return s.scanSession(s.pool.QueryRow(ctx,
		`SELECT id, user_id, stage, topic, audience, slide_count_hint, strawman, history, deck_url, created_at, updated_at
		 FROM sessions
		 WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	))
}

// DeleteSession removes a session owned by the user
func (s *Service) DeleteSession(ctx context.Context, sessionID string, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM sessions WHERE id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// HandleUserInput loads the session under a row lock, runs one workflow
// turn, and persists the outcome. A rejected intent rolls back, leaving the
// stored session exactly as it was.
func (s *Service) HandleUserInput(ctx context.Context, sessionID string, userID uuid.UUID, input models.UserInput) (*workflow.StepResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	session, err := s.scanSession(tx.QueryRow(ctx,
		`SELECT id, user_id, stage, topic, audience, slide_count_hint, strawman, history, deck_url, created_at, updated_at
		 FROM sessions
		 WHERE id = $1 AND user_id = $2
		 FOR UPDATE`,
		sessionID, userID,
	))
	if err != nil {
		return nil, err
	}

	result, err := s.runner.HandleInput(ctx, session, input)
	if err != nil {
		return nil, err
	}

	strawmanJSON, err := marshalNullable(session.Strawman)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal strawman: %w", err)
	}
	historyJSON, err := json.Marshal(session.History)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal history: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE sessions
		 SET stage = $1, topic = $2, audience = $3, slide_count_hint = $4,
		     strawman = $5, history = $6, deck_url = $7, updated_at = NOW()
		 WHERE id = $8`,
		session.Stage, session.Topic, session.Audience, session.SlideCountHint,
		strawmanJSON, historyJSON, session.DeckURL, session.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return result, nil
}

// GetDeckURL returns the deck URL for a completed session
func (s *Service) GetDeckURL(ctx context.Context, sessionID string, userID uuid.UUID) (string, error) {
	session, err := s.GetSession(ctx, sessionID, userID)
	if err != nil {
		return "", err
	}
	if session.Stage != models.StageComplete || session.DeckURL == "" {
		return "", fmt.Errorf("deck not ready")
	}
	return session.DeckURL, nil
}

// OwnsSession reports whether the user owns the session
func (s *Service) OwnsSession(ctx context.Context, sessionID string, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM sessions WHERE id = $1 AND user_id = $2)`,
		sessionID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check session ownership: %w", err)
	}
	return exists, nil
}

// scanSession reads one session row into a model
func (s *Service) scanSession(row pgx.Row) (*models.Session, error) {
	var (
		session      models.Session
		topic        *string
		audience     *string
		countHint    *int
		strawmanJSON []byte
		historyJSON  []byte
		deckURL      *string
		createdAt    time.Time
		updatedAt    time.Time
	)

	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.Stage,
		&topic,
		&audience,
		&countHint,
		&strawmanJSON,
		&historyJSON,
		&deckURL,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if topic != nil {
		session.Topic = *topic
	}
	if audience != nil {
		session.Audience = *audience
	}
	if countHint != nil {
		session.SlideCountHint = *countHint
	}
	if deckURL != nil {
		session.DeckURL = *deckURL
	}
	if len(strawmanJSON) > 0 {
		var strawman models.Strawman
		if err := json.Unmarshal(strawmanJSON, &strawman); err != nil {
			return nil, fmt.Errorf("failed to unmarshal strawman: %w", err)
		}
		session.Strawman = &strawman
	}
	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &session.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history: %w", err)
		}
	}
	session.CreatedAt = createdAt
	session.UpdatedAt = updatedAt

	return &session, nil
}

func marshalNullable(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case *models.Strawman:
		if t == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
