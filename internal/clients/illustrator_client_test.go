package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecraft/deck-orchestrator/internal/deck"
	"github.com/slidecraft/deck-orchestrator/internal/models"
)

func TestNewIllustratorClient(t *testing.T) {
	client := NewIllustratorClient()

	assert.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.tracer)
	assert.NotNil(t, client.breaker)
	assert.Contains(t, client.baseURL, "illustrator-service")
}

func TestIllustratorEnabled(t *testing.T) {
	original := os.Getenv("ILLUSTRATOR_URL")
	defer os.Setenv("ILLUSTRATOR_URL", original)

	os.Setenv("ILLUSTRATOR_URL", "http://illustrator-service:8003")
	assert.True(t, IllustratorEnabled())

	os.Setenv("ILLUSTRATOR_URL", IllustratorDisabled)
	assert.False(t, IllustratorEnabled())

	os.Unsetenv("ILLUSTRATOR_URL")
	assert.True(t, IllustratorEnabled(), "unset means enabled with the default URL")
}

func TestIllustratorClient_GeneratePyramid(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expectedFields map[string]string
		expectedViol   []string
	}{
		{
			name: "successful_generation",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "/v1/pyramid", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req deck.PyramidRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				assert.NoError(t, err)
				assert.Equal(t, "slide-1", req.SlideID)
				assert.Equal(t, 3, req.NumLevels)
				assert.Equal(t, []string{"vision", "strategy", "execution"}, req.TargetPoints)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"fields": map[string]string{
						"diagram_svg": "<svg>pyramid</svg>",
						"caption":     "Strategy pyramid",
					},
					"constraint_violations": []string{},
				})
			},
			expectedFields: map[string]string{
				"diagram_svg": "<svg>pyramid</svg>",
				"caption":     "Strategy pyramid",
			},
		},
		{
			name: "generation_with_violations",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]interface{}{
					"fields":                map[string]string{"diagram_svg": "<svg/>"},
					"constraint_violations": []string{"label exceeds level width"},
				})
			},
			expectedFields: map[string]string{"diagram_svg": "<svg/>"},
			expectedViol:   []string{"label exceeds level width"},
		},
		{
			name: "server_error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal server error"))
			},
			expectedError: "illustrator returned status 500",
		},
		{
			name: "invalid_json_response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("invalid json"))
			},
			expectedError: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewIllustratorClient()
			client.SetBaseURL(server.URL)

			req := deck.PyramidRequest{
				SlideID:      "slide-1",
				NumLevels:    3,
				TargetPoints: []string{"vision", "strategy", "execution"},
				Tone:         "professional",
				Audience:     "executives",
			}

			result, err := client.GeneratePyramid(context.Background(), req)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.ContentKindStructured, result.Content.Kind)
				assert.Equal(t, tt.expectedFields, result.Content.Fields)
				if tt.expectedViol != nil {
					assert.Equal(t, tt.expectedViol, result.Violations)
				} else {
					assert.Empty(t, result.Violations)
				}
			}
		})
	}
}

func TestIllustratorClient_GenerateLadder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/ladder", r.URL.Path)

		var req deck.LadderRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, 4, req.NumSteps)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fields": map[string]string{"diagram_svg": "<svg>ladder</svg>"},
		})
	}))
	defer server.Close()

	client := NewIllustratorClient()
	client.SetBaseURL(server.URL)

	result, err := client.GenerateLadder(context.Background(), deck.LadderRequest{
		SlideID:      "slide-2",
		NumSteps:     4,
		TargetPoints: []string{"a", "b", "c", "d"},
	})
	require.NoError(t, err)
	assert.Equal(t, "<svg>ladder</svg>", result.Content.Fields["diagram_svg"])
}

func TestIllustratorClient_GenerateHero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/hero", r.URL.Path)

		var req deck.HeroRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		assert.NoError(t, err)
		assert.Equal(t, "Q3 Roadmap", req.Title)
		assert.Equal(t, "Where we are headed", req.Subtitle)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"fields": map[string]string{
				"headline":   "Q3 Roadmap",
				"background": "<svg>hero</svg>",
			},
		})
	}))
	defer server.Close()

	client := NewIllustratorClient()
	client.SetBaseURL(server.URL)

	result, err := client.GenerateHero(context.Background(), deck.HeroRequest{
		SlideID:  "slide-3",
		Title:    "Q3 Roadmap",
		Subtitle: "Where we are headed",
	})
	require.NoError(t, err)
	assert.Equal(t, "Q3 Roadmap", result.Content.Fields["headline"])
}

func TestIllustratorClient_IsHealthy(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedHealth bool
	}{
		{
			name: "healthy_service",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "GET", r.Method)
				assert.Equal(t, "/health", r.URL.Path)
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"status": "healthy"}`))
			},
			expectedHealth: true,
		},
		{
			name: "unhealthy_service",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{"status": "unhealthy"}`))
			},
			expectedHealth: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewIllustratorClient()
			client.SetBaseURL(server.URL)

			result := client.IsHealthy(context.Background())
			assert.Equal(t, tt.expectedHealth, result)
		})
	}
}

func TestIllustratorClient_CircuitBreakerOpensHealthCheck(t *testing.T) {
	// Create a server that always fails
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Service unavailable"))
	}))
	defer server.Close()

	client := NewIllustratorClient()
	client.SetBaseURL(server.URL)

	req := deck.HeroRequest{SlideID: "slide-1", Title: "t"}

	// Make multiple requests to trigger circuit breaker
	for i := 0; i < 10; i++ {
		_, err := client.GenerateHero(context.Background(), req)
		assert.Error(t, err)
	}

	assert.False(t, client.IsHealthy(context.Background()), "an open breaker reports unhealthy without a probe")
}
