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

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/slidecraft/deck-orchestrator/internal/deck"
	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// TextClient handles communication with the text generation service
type TextClient struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// textGenerateResponse is the wire response from POST /v1/generate
type textGenerateResponse struct {
	HTML                 string   `json:"html"`
	CharCount            int      `json:"char_count"`
	ConstraintViolations []string `json:"constraint_violations"`
}

// NewTextClient creates a new text service client
func NewTextClient() *TextClient {
	baseURL := os.Getenv("TEXT_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://text-service:8002"
		log.Printf("WARN: TEXT_SERVICE_URL not set, defaulting to %s", baseURL)
	}

	settings := gobreaker.Settings{
		Name:        "text-service",
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

	return &TextClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tracer:  otel.Tracer("text-service-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *TextClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// GenerateContent generates rich HTML content for a plain slide
func (c *TextClient) GenerateContent(ctx context.Context, req deck.TextRequest) (*deck.BackendResponse, error) {
	ctx, span := c.tracer.Start(ctx, "text_service.generate_content")
	defer span.End()

	span.SetAttributes(
		attribute.String("slide.id", req.SlideID),
		attribute.String("slide.variant_id", req.VariantID),
	)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateInternal(ctx, req)
	})

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to invoke text service: %w", err)
	}

	resp := result.(*textGenerateResponse)
	span.SetAttributes(
		attribute.Int("content.char_count", resp.CharCount),
		attribute.Int("content.violations", len(resp.ConstraintViolations)),
	)

	return &deck.BackendResponse{
		Content: models.SlideContent{
			Kind: models.ContentKindHTML,
			HTML: resp.HTML,
		},
		Violations: resp.ConstraintViolations,
	}, nil
}

// generateInternal performs the actual HTTP request
func (c *TextClient) generateInternal(ctx context.Context, req deck.TextRequest) (*textGenerateResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/generate", c.baseURL)
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
			return nil, fmt.Errorf("text service returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("text service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var genResp textGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &genResp, nil
}

// IsHealthy checks if the text service is healthy
func (c *TextClient) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "text_service.health_check")
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
