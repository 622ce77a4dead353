package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// OutlineClient handles communication with the outline engine service
type OutlineClient struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// NewOutlineClient creates a new outline engine client
func NewOutlineClient() *OutlineClient {
	baseURL := os.Getenv("OUTLINE_ENGINE_URL")
	if baseURL == "" {
		baseURL = "http://outline-engine-service:8001"
		log.Printf("WARN: OUTLINE_ENGINE_URL not set, defaulting to %s", baseURL)
	}

	settings := gobreaker.Settings{
		Name:        "outline-engine",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s changed from %s to %s", name, from, to)
		},
	}

	return &OutlineClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			// Outline generation is the slowest upstream call.
			Timeout: 60 * time.Second,
		},
		tracer:  otel.Tracer("outline-engine-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *OutlineClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// GenerateOutline generates or regenerates a strawman outline
func (c *OutlineClient) GenerateOutline(ctx context.Context, req models.OutlineRequest) (*models.Strawman, error) {
	ctx, span := c.tracer.Start(ctx, "outline_engine.generate_outline")
	defer span.End()

	span.SetAttributes(
		attribute.String("outline.topic", req.Topic),
		attribute.Bool("outline.is_refinement", req.Refinement != ""),
	)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateInternal(ctx, req)
	})

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to invoke outline engine: %w", err)
	}

	strawman := result.(*models.Strawman)
	span.SetAttributes(attribute.Int("outline.slides", len(strawman.Slides)))

	return strawman, nil
}

// generateInternal performs the actual HTTP request
func (c *OutlineClient) generateInternal(ctx context.Context, req models.OutlineRequest) (*models.Strawman, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/outline/generate", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("outline engine returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("outline engine returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var strawman models.Strawman
	if err := json.NewDecoder(resp.Body).Decode(&strawman); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if strawman.PresentationID == "" {
		strawman.PresentationID = uuid.New().String()
	}
	if len(strawman.Slides) == 0 {
		return nil, fmt.Errorf("outline engine returned an empty outline")
	}
	for i := range strawman.Slides {
		if strawman.Slides[i].ID == "" {
			strawman.Slides[i].ID = uuid.New().String()
		}
		strawman.Slides[i].Position = i
	}

	return &strawman, nil
}

// IsHealthy checks if the outline engine is healthy
func (c *OutlineClient) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "outline_engine.health_check")
	defer span.End()

	if c.breaker.State() == gobreaker.StateOpen {
		span.SetAttributes(attribute.Bool("healthy", false), attribute.String("reason", "circuit_breaker_open"))
		return false
	}

	url := fmt.Sprintf("%s/health", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		span.RecordError(err)
		return false
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return false
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode == http.StatusOK
	span.SetAttributes(attribute.Bool("healthy", healthy))

	return healthy
}
