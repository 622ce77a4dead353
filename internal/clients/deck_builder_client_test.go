package clients

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

func TestNewDeckBuilderClient(t *testing.T) {
	client := NewDeckBuilderClient()

	assert.NotNil(t, client)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.tracer)
	assert.NotNil(t, client.breaker)
	assert.Contains(t, client.baseURL, "deck-builder")
}

func TestDeckBuilderClient_BuildDeck(t *testing.T) {
	tests := []struct {
		name           string
		serverResponse func(w http.ResponseWriter, r *http.Request)
		expectedError  string
		expectedURL    string
	}{
		{
			name: "successful_build",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "POST", r.Method)
				assert.Equal(t, "/v1/decks", r.URL.Path)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req buildDeckRequest
				err := json.NewDecoder(r.Body).Decode(&req)
				assert.NoError(t, err)
				assert.Equal(t, "pres-1", req.PresentationID)
				assert.Equal(t, "minimal", req.Theme)
				assert.Len(t, req.Slides, 1)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{
					"deck_url": "https://decks.example.com/pres-1",
				})
			},
			expectedURL: "https://decks.example.com/pres-1",
		},
		{
			name: "ok_status_is_also_accepted",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				json.NewEncoder(w).Encode(map[string]string{"deck_url": "https://decks.example.com/ok"})
			},
			expectedURL: "https://decks.example.com/ok",
		},
		{
			name: "empty_deck_url_is_an_error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				json.NewEncoder(w).Encode(map[string]string{"deck_url": ""})
			},
			expectedError: "empty deck_url",
		},
		{
			name: "server_error",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal server error"))
			},
			expectedError: "deck builder returned status 500",
		},
		{
			name: "invalid_json_response",
			serverResponse: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusCreated)
				w.Write([]byte("invalid json"))
			},
			expectedError: "failed to decode response",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(tt.serverResponse))
			defer server.Close()

			client := NewDeckBuilderClient()
			client.SetBaseURL(server.URL)

			slides := []models.AssembledSlide{
				{
					SlideID:  "s1",
					Position: 0,
					LayoutID: "layout-content-v1",
					Fields:   models.RenderFields{"title": "Intro", "body": "<p>hello</p>", "subtitle": ""},
				},
			}

			url, err := client.BuildDeck(context.Background(), "pres-1", "minimal", slides)

			if tt.expectedError != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedURL, url)
			}
		})
	}
}

func TestDeckBuilderClient_IsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewDeckBuilderClient()
	client.SetBaseURL(server.URL)

	assert.True(t, client.IsHealthy(context.Background()))
}
