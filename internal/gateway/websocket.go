package gateway

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/slidecraft/deck-orchestrator/internal/deck"
	"github.com/slidecraft/deck-orchestrator/internal/orchestration"
)

var wsTracer = otel.Tracer("progress-stream")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: Implement proper origin checking for production
		return true
	},
}

// ProgressStream handles WebSocket connections that stream per-slide
// content-generation progress for one session.
type ProgressStream struct {
	orchestrationService *orchestration.Service
	hub                  *ProgressHub
	pool                 *pgxpool.Pool
	tracer               trace.Tracer
}

// NewProgressStream creates a new progress stream handler
func NewProgressStream(orchestrationService *orchestration.Service, hub *ProgressHub, pool *pgxpool.Pool) *ProgressStream {
	return &ProgressStream{
		orchestrationService: orchestrationService,
		hub:                  hub,
		pool:                 pool,
		tracer:               wsTracer,
	}
}

// StreamSession handles WebSocket /api/ws/sessions/:id
// @Summary Stream content-generation progress
// @Description WebSocket endpoint streaming per-slide progress events for a session
// @Tags sessions
// @Param id path string true "Session ID"
// @Param Authorization header string true "Bearer token"
// @Success 101 "Switching Protocols"
// @Failure 401 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Security BearerAuth
// @Router /ws/sessions/{id} [get]
func (p *ProgressStream) StreamSession(c *gin.Context) {
	ctx, span := p.tracer.Start(c.Request.Context(), "progress_stream.stream_session")
	defer span.End()

	sessionID := c.Param("id")
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userID, err := uuid.Parse(userIDVal.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return
	}

	span.SetAttributes(
		attribute.String("session.id", sessionID),
		attribute.String("user.id", userID.String()),
	)

	owns, err := p.orchestrationService.OwnsSession(ctx, sessionID, userID)
	if err != nil || !owns {
		if err != nil {
			span.RecordError(err)
		}
		log.Printf(`{"level":"warn","message":"Session stream denied","session_id":"%s","user_id":"%s"}`, sessionID, userID)
		c.JSON(http.StatusForbidden, gin.H{"error": "Session not found or access denied"})
		return
	}

	clientConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		span.RecordError(err)
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer clientConn.Close()

	events, cancel := p.hub.Subscribe(sessionID)
	defer cancel()

	log.Printf(`{"level":"info","message":"Progress stream opened","session_id":"%s"}`, sessionID)

	// Client -> ignore (one-way stream), but read to detect disconnects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := clientConn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			log.Printf(`{"level":"info","message":"Progress stream client disconnected","session_id":"%s"}`, sessionID)
			return
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := clientConn.WriteJSON(event); err != nil {
				span.RecordError(err)
				log.Printf("Client connection write error: %v", err)
				return
			}
			if event.Type == deck.EventRunCompleted {
				clientConn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run completed"))
				return
			}
		}
	}
}
