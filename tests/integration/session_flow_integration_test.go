package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecraft/deck-orchestrator/internal/auth"
	"github.com/slidecraft/deck-orchestrator/internal/clients"
	"github.com/slidecraft/deck-orchestrator/internal/deck"
	"github.com/slidecraft/deck-orchestrator/internal/gateway"
	"github.com/slidecraft/deck-orchestrator/internal/models"
	"github.com/slidecraft/deck-orchestrator/internal/orchestration"
	"github.com/slidecraft/deck-orchestrator/internal/workflow"
	"github.com/slidecraft/deck-orchestrator/tests/helpers"
)

// upstreamServers stands in for the four content services the orchestrator
// calls out to during a session.
type upstreamServers struct {
	outline     *httptest.Server
	text        *httptest.Server
	deckBuilder *httptest.Server
}

func newUpstreamServers(t *testing.T) *upstreamServers {
	outline := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/outline/generate", r.URL.Path)

		var req models.OutlineRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.NotEmpty(t, req.Topic)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(helpers.MockStrawmanResponse("pres-flow-1", 3))
	}))

	text := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/generate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"html":       "<p>generated slide body</p>",
			"char_count": 27,
		})
	}))

	deckBuilder := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/decks", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "minimal", body["theme"], "deck builder request carries the presentation theme")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{
			"deck_url": "https://decks.example.com/pres-flow-1",
		})
	}))

	return &upstreamServers{outline: outline, text: text, deckBuilder: deckBuilder}
}

func (s *upstreamServers) Close() {
	s.outline.Close()
	s.text.Close()
	s.deckBuilder.Close()
}

func setupSessionRouter(t *testing.T, testDB *helpers.TestDatabase, upstreams *upstreamServers) (*gin.Engine, *auth.JWTManager) {
	outlineClient := clients.NewOutlineClient()
	outlineClient.SetBaseURL(upstreams.outline.URL)

	textClient := clients.NewTextClient()
	textClient.SetBaseURL(upstreams.text.URL)

	deckBuilderClient := clients.NewDeckBuilderClient()
	deckBuilderClient.SetBaseURL(upstreams.deckBuilder.URL)

	slideRouter := deck.NewRouter(textClient, nil, deck.RouterConfig{})
	runner := workflow.NewRunner(outlineClient, slideRouter, deckBuilderClient, nil)
	orchestrationService := orchestration.NewService(testDB.Pool, runner)

	jwtManager, err := auth.NewJWTManager()
	require.NoError(t, err)

	gatewayHandler := gateway.NewHandler(orchestrationService, jwtManager, testDB.Pool)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api")
	protected := api.Group("")
	protected.Use(auth.RequireAuth(jwtManager))
	protected.POST("/sessions", gatewayHandler.CreateSession)
	protected.GET("/sessions/:id", gatewayHandler.GetSession)
	protected.DELETE("/sessions/:id", gatewayHandler.DeleteSession)
	protected.POST("/sessions/:id/messages", gatewayHandler.PostMessage)
	protected.GET("/sessions/:id/deck", gatewayHandler.GetDeck)

	return router, jwtManager
}

func authedRequest(t *testing.T, router *gin.Engine, token, method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	require.NoError(t, err)
	return response
}

func TestSessionFlowIntegration(t *testing.T) {
	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	txCtx, rollback := testDB.BeginTransaction(t)
	defer rollback()

	upstreams := newUpstreamServers(t)
	defer upstreams.Close()

	router, jwtManager := setupSessionRouter(t, testDB, upstreams)

	userEmail := fmt.Sprintf("flow-%d@example.com", time.Now().UnixNano())
	userID := testDB.CreateTestUserWithContext(t, txCtx, userEmail, "hashed-password")
	token, err := jwtManager.GenerateToken(context.Background(), userID, userEmail, []string{"user"}, 24*time.Hour)
	require.NoError(t, err)

	t.Run("Full Conversation To Completed Deck", func(t *testing.T) {
		// Create session
		w := authedRequest(t, router, token, http.MethodPost, "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, w.Code)

		created := decodeResponse(t, w)
		sessionID := created["id"].(string)
		require.NotEmpty(t, sessionID)
		assert.Equal(t, string(models.StageIntake), created["stage"])

		// Deck is not available before the workflow completes
		w = authedRequest(t, router, token, http.MethodGet, "/api/sessions/"+sessionID+"/deck", nil)
		assert.Equal(t, http.StatusConflict, w.Code)

		// Submit the brief
		w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
			helpers.CreateTestMessageRequest(helpers.DefaultTestBrief.Text))
		require.Equal(t, http.StatusOK, w.Code)

		step := decodeResponse(t, w)
		assert.Equal(t, string(models.StagePlanConfirmation), step["stage"])
		assert.NotEmpty(t, step["offers"])

		// Accept the plan: outline generation runs and we land in review
		w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
			helpers.CreateTestActionRequest("accept_plan"))
		require.Equal(t, http.StatusOK, w.Code)

		step = decodeResponse(t, w)
		assert.Equal(t, string(models.StageStrawmanReview), step["stage"])

		// Accept the strawman: content generation runs to completion
		w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
			helpers.CreateTestActionRequest("accept_strawman"))
		require.Equal(t, http.StatusOK, w.Code)

		step = decodeResponse(t, w)
		assert.Equal(t, string(models.StageComplete), step["stage"])
		assert.Equal(t, "https://decks.example.com/pres-flow-1", step["deck_url"])
		assert.Contains(t, step["summary"], "3 of 3 slides generated")

		// The completed deck is retrievable
		w = authedRequest(t, router, token, http.MethodGet, "/api/sessions/"+sessionID+"/deck", nil)
		require.Equal(t, http.StatusOK, w.Code)
		deckResp := decodeResponse(t, w)
		assert.Equal(t, "https://decks.example.com/pres-flow-1", deckResp["deck_url"])

		// The persisted stage matches what the API reported
		assert.Equal(t, string(models.StageComplete), testDB.GetSessionStage(t, sessionID))
	})

	t.Run("Invalid Transition Is Rejected With Conflict", func(t *testing.T) {
		w := authedRequest(t, router, token, http.MethodPost, "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		sessionID := decodeResponse(t, w)["id"].(string)

		// Accepting a strawman from intake skips two stages
		w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
			helpers.CreateTestActionRequest("accept_strawman"))
		assert.Equal(t, http.StatusConflict, w.Code)

		response := decodeResponse(t, w)
		assert.Equal(t, models.ErrCodeInvalidTransition, response["code"])

		// Session state is untouched
		assert.Equal(t, string(models.StageIntake), testDB.GetSessionStage(t, sessionID))
	})

	t.Run("Empty Input Is Rejected", func(t *testing.T) {
		w := authedRequest(t, router, token, http.MethodPost, "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		sessionID := decodeResponse(t, w)["id"].(string)

		w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
			map[string]interface{}{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown Session Returns Not Found", func(t *testing.T) {
		w := authedRequest(t, router, token, http.MethodPost,
			"/api/sessions/00000000-0000-0000-0000-000000000000/messages",
			helpers.CreateTestMessageRequest("hello"))
		assert.Equal(t, http.StatusNotFound, w.Code)

		response := decodeResponse(t, w)
		assert.Equal(t, models.ErrCodeSessionNotFound, response["code"])
	})

	t.Run("Sessions Are Scoped To Their Owner", func(t *testing.T) {
		w := authedRequest(t, router, token, http.MethodPost, "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		sessionID := decodeResponse(t, w)["id"].(string)

		otherEmail := fmt.Sprintf("other-%d@example.com", time.Now().UnixNano())
		otherID := testDB.CreateTestUserWithContext(t, txCtx, otherEmail, "hashed-password")
		otherToken, err := jwtManager.GenerateToken(context.Background(), otherID, otherEmail, []string{"user"}, 24*time.Hour)
		require.NoError(t, err)

		w = authedRequest(t, router, otherToken, http.MethodGet, "/api/sessions/"+sessionID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "another user's session looks like it does not exist")
	})

	t.Run("Delete Session", func(t *testing.T) {
		w := authedRequest(t, router, token, http.MethodPost, "/api/sessions", nil)
		require.Equal(t, http.StatusCreated, w.Code)
		sessionID := decodeResponse(t, w)["id"].(string)

		w = authedRequest(t, router, token, http.MethodDelete, "/api/sessions/"+sessionID, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = authedRequest(t, router, token, http.MethodGet, "/api/sessions/"+sessionID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = authedRequest(t, router, token, http.MethodDelete, "/api/sessions/"+sessionID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "deleting twice reports not found")
	})
}

func TestSessionRefinementIntegration(t *testing.T) {
	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	txCtx, rollback := testDB.BeginTransaction(t)
	defer rollback()

	upstreams := newUpstreamServers(t)
	defer upstreams.Close()

	// Count outline calls and capture refinement payloads.
	outlineCalls := 0
	var lastOutlineReq models.OutlineRequest
	upstreams.outline.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		outlineCalls++
		err := json.NewDecoder(r.Body).Decode(&lastOutlineReq)
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(helpers.MockStrawmanResponse("pres-refine-1", 2))
	})

	router, jwtManager := setupSessionRouter(t, testDB, upstreams)

	userEmail := fmt.Sprintf("refine-%d@example.com", time.Now().UnixNano())
	userID := testDB.CreateTestUserWithContext(t, txCtx, userEmail, "hashed-password")
	token, err := jwtManager.GenerateToken(context.Background(), userID, userEmail, []string{"user"}, 24*time.Hour)
	require.NoError(t, err)

	w := authedRequest(t, router, token, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	sessionID := decodeResponse(t, w)["id"].(string)

	w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		helpers.CreateTestMessageRequest("deck about platform reliability"))
	require.Equal(t, http.StatusOK, w.Code)

	w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		helpers.CreateTestActionRequest("accept_plan"))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, outlineCalls)

	// Ask for a refinement, then submit the instruction.
	w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		helpers.CreateTestActionRequest("request_refinement"))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, string(models.StageRefinement), decodeResponse(t, w)["stage"])

	w = authedRequest(t, router, token, http.MethodPost, "/api/sessions/"+sessionID+"/messages",
		helpers.CreateTestMessageRequest("lead with the incident numbers"))
	require.Equal(t, http.StatusOK, w.Code)

	step := decodeResponse(t, w)
	assert.Equal(t, string(models.StageStrawmanReview), step["stage"])
	assert.Equal(t, 2, outlineCalls, "refinement regenerates the outline")
	assert.Equal(t, "lead with the incident numbers", lastOutlineReq.Refinement)
	require.NotNil(t, lastOutlineReq.Previous, "refinement carries the prior outline")
	assert.Equal(t, "pres-refine-1", lastOutlineReq.Previous.PresentationID)
}
