package gateway

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/slidecraft/deck-orchestrator/internal/auth"
	"github.com/slidecraft/deck-orchestrator/internal/models"
	"github.com/slidecraft/deck-orchestrator/internal/orchestration"
	"github.com/slidecraft/deck-orchestrator/internal/workflow"
)

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	orchestrationService *orchestration.Service
	jwtManager           *auth.JWTManager
	pool                 *pgxpool.Pool
}

// NewHandler creates a new gateway handler
func NewHandler(orchestrationService *orchestration.Service, jwtManager *auth.JWTManager, pool *pgxpool.Pool) *Handler {
	return &Handler{
		orchestrationService: orchestrationService,
		jwtManager:           jwtManager,
		pool:                 pool,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var userID string
	var hashedPassword string
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, hashed_password FROM users WHERE email = $1`,
		req.Email,
	).Scan(&userID, &hashedPassword)

	if err != nil {
		log.Printf(`{"level":"warn","message":"User not found","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		log.Printf(`{"level":"warn","message":"Invalid password","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.jwtManager.GenerateToken(
		c.Request.Context(),
		userID,
		req.Email,
		[]string{"user"},
		24*time.Hour,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:  token,
		UserID: userID,
	})
}

// Me godoc
// @Summary Current user
// @Description Return the authenticated user's profile
// @Tags auth
// @Produce json
// @Success 200 {object} models.UserInfo
// @Failure 401 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /auth/me [get]
func (h *Handler) Me(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	var user models.User
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, name, email, hashed_password, created_at, updated_at FROM users WHERE id = $1`,
		userID,
	).Scan(&user.ID, &user.Name, &user.Email, &user.HashedPassword, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found", "code": models.ErrCodeNotFound})
		return
	}

	c.JSON(http.StatusOK, user.ToUserInfo())
}

// SessionResponse represents a session state response
type SessionResponse struct {
	ID      string           `json:"id"`
	Stage   models.Stage     `json:"stage"`
	Prompt  string           `json:"prompt,omitempty"`
	Offers  []models.Action  `json:"offers,omitempty"`
	History []models.Message `json:"history"`
	DeckURL string           `json:"deck_url,omitempty"`
}

// CreateSession godoc
// @Summary Create session
// @Description Start a new presentation-building conversation
// @Tags sessions
// @Produce json
// @Success 201 {object} SessionResponse
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /sessions [post]
func (h *Handler) CreateSession(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	session, err := h.orchestrationService.CreateSession(c.Request.Context(), userID)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to create session","error":"%v","user_id":"%s"}`, err, userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create session"})
		return
	}

	c.JSON(http.StatusCreated, sessionResponse(session))
}

// PostMessageRequest represents one user turn: free text, a canonical
// action value, or both (action value wins).
type PostMessageRequest struct {
	Text        string `json:"text"`
	ActionValue string `json:"action_value"`
}

// StepResponse represents the outcome of one accepted user turn
type StepResponse struct {
	Stage   models.Stage    `json:"stage"`
	Prompt  string          `json:"prompt"`
	Offers  []models.Action `json:"offers,omitempty"`
	DeckURL string          `json:"deck_url,omitempty"`
	Summary string          `json:"summary,omitempty"`
}

// PostMessage godoc
// @Summary Post user input
// @Description Submit a message or action to advance the session workflow
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body PostMessageRequest true "User input"
// @Success 200 {object} StepResponse
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id}/messages [post]
func (h *Handler) PostMessage(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	sessionID := c.Param("id")

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if req.Text == "" && req.ActionValue == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Either text or action_value is required"})
		return
	}

	input := models.UserInput{Text: req.Text, ActionValue: req.ActionValue}
	result, err := h.orchestrationService.HandleUserInput(c.Request.Context(), sessionID, userID, input)
	if err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found", "code": models.ErrCodeSessionNotFound})
			return
		}
		var transitionErr *models.InvalidTransitionError
		if errors.As(err, &transitionErr) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "code": models.ErrCodeInvalidTransition})
			return
		}
		var ambiguousErr *models.AmbiguousInputError
		if errors.As(err, &ambiguousErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": models.ErrCodeAmbiguousInput})
			return
		}
		log.Printf(`{"level":"error","message":"Failed to handle input","error":"%v","session_id":"%s"}`, err, sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process input", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, StepResponse{
		Stage:   result.Stage,
		Prompt:  result.Prompt,
		Offers:  result.Offers,
		DeckURL: result.DeckURL,
		Summary: result.Summary,
	})
}

// GetSession godoc
// @Summary Get session
// @Description Retrieve the current state of a session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (h *Handler) GetSession(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	session, err := h.orchestrationService.GetSession(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found", "code": models.ErrCodeSessionNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get session"})
		return
	}

	c.JSON(http.StatusOK, sessionResponse(session))
}

// DeleteSession godoc
// @Summary Delete session
// @Description Tear down a session and its state
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (h *Handler) DeleteSession(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	err := h.orchestrationService.DeleteSession(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found", "code": models.ErrCodeSessionNotFound})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeckResponse represents a completed deck
type DeckResponse struct {
	DeckURL string `json:"deck_url"`
}

// GetDeck godoc
// @Summary Get deck
// @Description Retrieve the deck URL for a completed session
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} DeckResponse
// @Failure 404 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Security BearerAuth
// @Router /sessions/{id}/deck [get]
func (h *Handler) GetDeck(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	deckURL, err := h.orchestrationService.GetDeckURL(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if err == orchestration.ErrSessionNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found", "code": models.ErrCodeSessionNotFound})
			return
		}
		c.JSON(http.StatusConflict, gin.H{"error": "Deck not ready", "code": models.ErrCodeDeckNotReady})
		return
	}

	c.JSON(http.StatusOK, DeckResponse{DeckURL: deckURL})
}

// requireUserID extracts the authenticated user id set by the auth
// middleware.
func (h *Handler) requireUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDVal.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}

func sessionResponse(session *models.Session) SessionResponse {
	return SessionResponse{
		ID:      session.ID,
		Stage:   session.Stage,
		Prompt:  lastAssistantMessage(session),
		Offers:  workflow.OffersFor(session.Stage),
		History: session.History,
		DeckURL: session.DeckURL,
	}
}

func lastAssistantMessage(session *models.Session) string {
	for i := len(session.History) - 1; i >= 0; i-- {
		if session.History[i].Role == models.RoleAssistant {
			return session.History[i].Content
		}
	}
	return ""
}
