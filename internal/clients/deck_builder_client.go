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

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// DeckBuilderClient handles communication with the deck builder service
type DeckBuilderClient struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
	breaker    *gobreaker.CircuitBreaker
}

// buildDeckRequest is the wire request to POST /v1/decks
type buildDeckRequest struct {
	PresentationID string                  `json:"presentation_id"`
	Theme          string                  `json:"theme"`
	Slides         []models.AssembledSlide `json:"slides"`
}

// buildDeckResponse is the wire response from POST /v1/decks
type buildDeckResponse struct {
	DeckURL string `json:"deck_url"`
}

// NewDeckBuilderClient creates a new deck builder client
func NewDeckBuilderClient() *DeckBuilderClient {
	baseURL := os.Getenv("DECK_BUILDER_URL")
	if baseURL == "" {
		baseURL = "http://deck-builder-service:8004"
		log.Printf("WARN: DECK_BUILDER_URL not set, defaulting to %s", baseURL)
	}

	settings := gobreaker.Settings{
		Name:        "deck-builder",
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

	return &DeckBuilderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tracer:  otel.Tracer("deck-builder-client"),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// SetBaseURL sets the base URL for testing purposes
func (c *DeckBuilderClient) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// BuildDeck renders assembled slides into a final deck and returns its URL
func (c *DeckBuilderClient) BuildDeck(ctx context.Context, presentationID, theme string, slides []models.AssembledSlide) (string, error) {
	ctx, span := c.tracer.Start(ctx, "deck_builder.build_deck")
	defer span.End()

	span.SetAttributes(
		attribute.String("presentation.id", presentationID),
		attribute.String("deck.theme", theme),
		attribute.Int("deck.slides", len(slides)),
	)

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.buildInternal(ctx, buildDeckRequest{
			PresentationID: presentationID,
			Theme:          theme,
			Slides:         slides,
		})
	})

	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to invoke deck builder: %w", err)
	}

	deckURL := result.(string)
	span.SetAttributes(attribute.String("deck.url", deckURL))

	return deckURL, nil
}

// buildInternal performs the actual HTTP request
func (c *DeckBuilderClient) buildInternal(ctx context.Context, req buildDeckRequest) (string, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/decks", c.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("deck builder returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return "", fmt.Errorf("deck builder returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var buildResp buildDeckResponse
	if err := json.NewDecoder(resp.Body).Decode(&buildResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if buildResp.DeckURL == "" {
		return "", fmt.Errorf("deck builder returned an empty deck_url")
	}

	return buildResp.DeckURL, nil
}

// IsHealthy checks if the deck builder is healthy
func (c *DeckBuilderClient) IsHealthy(ctx context.Context) bool {
	ctx, span := c.tracer.Start(ctx, "deck_builder.health_check")
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
