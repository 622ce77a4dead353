package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	databaseURL := buildDatabaseURL()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// buildDatabaseURL constructs the database URL from environment variables
func buildDatabaseURL() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("POSTGRES_DB")
	if dbname == "" {
		dbname = "deck_orchestrator"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		user, password, host, port, dbname)
}

// TestDatabase provides database utilities for testing
type TestDatabase struct {
	Pool *pgxpool.Pool
	ctx  context.Context
}

// NewTestDatabase creates a new test database instance
func NewTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	pool, err := GetTestDatabasePool(ctx)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	return &TestDatabase{
		Pool: pool,
		ctx:  ctx,
	}
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// BeginTransaction starts a new transaction for test isolation
// Tests should use transaction rollback instead of deleting data
func (db *TestDatabase) BeginTransaction(t *testing.T) (context.Context, func()) {
	tx, err := db.Pool.Begin(db.ctx)
	if err != nil {
		t.Fatalf("Failed to begin transaction: %v", err)
	}

	// Create a context with the transaction
	txCtx := context.WithValue(db.ctx, "tx", tx)

	// Return rollback function
	rollback := func() {
		if err := tx.Rollback(db.ctx); err != nil {
			t.Logf("Warning: Failed to rollback transaction: %v", err)
		}
	}

	return txCtx, rollback
}

// CreateTestUser creates a test user and returns the user ID
func (db *TestDatabase) CreateTestUser(t *testing.T, email, hashedPassword string) string {
	return db.CreateTestUserWithContext(t, db.ctx, email, hashedPassword)
}

// CreateTestUserWithContext creates a test user with a specific context (for transactions)
func (db *TestDatabase) CreateTestUserWithContext(t *testing.T, ctx context.Context, email, hashedPassword string) string {
	var userID string

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (name, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, "Test User", email, hashedPassword).Scan(&userID)

	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID
}

// CreateTestSession creates a session for a user and returns the session ID
func (db *TestDatabase) CreateTestSession(t *testing.T, userID string) string {
	var sessionID string
	err := db.Pool.QueryRow(db.ctx, `
		INSERT INTO sessions (user_id, stage, history, created_at, updated_at)
		VALUES ($1, 'INTAKE', '[]'::jsonb, NOW(), NOW())
		RETURNING id
	`, userID).Scan(&sessionID)

	if err != nil {
		t.Fatalf("Failed to create test session: %v", err)
	}

	return sessionID
}

// GetSessionStage returns the current stage of a session
func (db *TestDatabase) GetSessionStage(t *testing.T, sessionID string) string {
	var stage string
	err := db.Pool.QueryRow(db.ctx, "SELECT stage FROM sessions WHERE id = $1", sessionID).Scan(&stage)
	if err != nil {
		t.Fatalf("Failed to get session stage: %v", err)
	}
	return stage
}

// GetSessionCount returns the number of sessions in the database
func (db *TestDatabase) GetSessionCount(t *testing.T) int {
	var count int
	err := db.Pool.QueryRow(db.ctx, "SELECT COUNT(*) FROM sessions").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to get session count: %v", err)
	}
	return count
}

// GetUserCount returns the number of users in the database
func (db *TestDatabase) GetUserCount(t *testing.T) int {
	var count int
	err := db.Pool.QueryRow(db.ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		t.Fatalf("Failed to get user count: %v", err)
	}
	return count
}

// HashPassword hashes a password using bcrypt for testing
func (db *TestDatabase) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// WaitForDatabase waits for database to be ready
func WaitForDatabase(ctx context.Context, maxAttempts int) error {
	for i := 0; i < maxAttempts; i++ {
		pool, err := GetTestDatabasePool(ctx)
		if err == nil {
			pool.Close()
			return nil
		}

		if i < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
	}

	return fmt.Errorf("database not ready after %d attempts", maxAttempts)
}
