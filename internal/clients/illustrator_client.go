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

// IllustratorDisabled is the sentinel value for ILLUSTRATOR_URL that turns
// the integration off. The caller constructs no client in that case and
// visualization slides fail as backend-unavailable.
const IllustratorDisabled = "disabled"

// IllustratorClient handles communication with the illustrator service
type IllustratorClient struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// illustratorResponse is the wire response from the illustrator endpoints
type illustratorResponse struct {
	Fields               map[string]string `json:"fields"`
	ConstraintViolations []string          `json:"constraint_violations"`
}

// IllustratorEnabled reports whether the illustrator integration is turned
// on for this deployment.
func IllustratorEnabled() bool {
	return os.Getenv("ILLUSTRATOR_URL") != IllustratorDisabled
}

// NewIllustratorClient creates a new illustrator service client
func NewIllustratorClient() *IllustratorClient {
	baseURL := os.Getenv("ILLUSTRATOR_URL")
	if baseURL == "" {
		baseURL = "http://illustrator-service:8003"
		log.Printf("WARN: ILLUSTRATOR_URL not set, defaulting to %s", baseURL)
	}

	settings := gobreaker.Settings{
		Name:        "illustrator-service",
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

	return &IllustratorClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tracer:  otel.Tracer("illustrator-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *IllustratorClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// GeneratePyramid generates structured content for a pyramid slide
func (c *IllustratorClient) GeneratePyramid(ctx context.Context, req deck.PyramidRequest) (*deck.BackendResponse, error) {
	ctx, span := c.tracer.Start(ctx, "illustrator.generate_pyramid")
	defer span.End()

	span.SetAttributes(
		attribute.String("slide.id", req.SlideID),
		attribute.Int("pyramid.num_levels", req.NumLevels),
	)

	return c.generate(ctx, span, "/v1/pyramid", req)
}

// GenerateLadder generates structured content for a ladder slide
func (c *IllustratorClient) GenerateLadder(ctx context.Context, req deck.LadderRequest) (*deck.BackendResponse, error) {
	ctx, span := c.tracer.Start(ctx, "illustrator.generate_ladder")
	defer span.End()

	span.SetAttributes(
		attribute.String("slide.id", req.SlideID),
		attribute.Int("ladder.num_steps", req.NumSteps),
	)

	return c.generate(ctx, span, "/v1/ladder", req)
}

// GenerateHero generates structured content for a hero slide
func (c *IllustratorClient) GenerateHero(ctx context.Context, req deck.HeroRequest) (*deck.BackendResponse, error) {
	ctx, span := c.tracer.Start(ctx, "illustrator.generate_hero")
	defer span.End()

	span.SetAttributes(attribute.String("slide.id", req.SlideID))

	return c.generate(ctx, span, "/v1/hero", req)
}

// generate runs one illustrator call through the circuit breaker and
// normalizes the structured response.
func (c *IllustratorClient) generate(ctx context.Context, span trace.Span, path string, payload interface{}) (*deck.BackendResponse, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.generateInternal(ctx, path, payload)
	})

	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to invoke illustrator: %w", err)
	}

	resp := result.(*illustratorResponse)
	span.SetAttributes(attribute.Int("content.violations", len(resp.ConstraintViolations)))

	return &deck.BackendResponse{
		Content: models.SlideContent{
			Kind:   models.ContentKindStructured,
			Fields: resp.Fields,
		},
		Violations: resp.ConstraintViolations,
	}, nil
}

// generateInternal performs the actual HTTP request
func (c *IllustratorClient) generateInternal(ctx context.Context, path string, payload interface{}) (*illustratorResponse, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + path
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
			return nil, fmt.Errorf("illustrator returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("illustrator returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var genResp illustratorResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &genResp, nil
}

// IsHealthy checks if the illustrator service is healthy
func (c *IllustratorClient) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "illustrator.health_check")
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
