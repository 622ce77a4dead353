package helpers

import (
	"encoding/json"
)

// TestUser represents a test user fixture
type TestUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TestBrief represents an intake brief fixture
type TestBrief struct {
	Text string `json:"text"`
}

// Default test fixtures
var (
	DefaultTestUser = TestUser{
		Email:    "test@example.com",
		Password: "test-password-123",
	}

	DefaultTestBrief = TestBrief{
		Text: "A 6 slide deck on our Q3 product roadmap for the executive team",
	}
)

// CreateTestLoginRequest creates a login request payload
func CreateTestLoginRequest(email, password string) map[string]interface{} {
	return map[string]interface{}{
		"email":    email,
		"password": password,
	}
}

// CreateTestMessageRequest creates a free-text message payload
func CreateTestMessageRequest(text string) map[string]interface{} {
	return map[string]interface{}{
		"text": text,
	}
}

// CreateTestActionRequest creates a quick-action message payload
func CreateTestActionRequest(actionValue string) map[string]interface{} {
	return map[string]interface{}{
		"action_value": actionValue,
	}
}

// MockStrawmanResponse creates a mock response from the outline engine
func MockStrawmanResponse(presentationID string, slideCount int) map[string]interface{} {
	slides := make([]map[string]interface{}, 0, slideCount)
	for i := 0; i < slideCount; i++ {
		slides = append(slides, map[string]interface{}{
			"id":             "",
			"title":          "Slide",
			"key_points":     []string{"point one", "point two"},
			"structure_hint": "plain bullets",
			"variant_id":     "variant-a",
		})
	}

	return map[string]interface{}{
		"presentation_id": presentationID,
		"theme":           "minimal",
		"audience":        "executives",
		"slides":          slides,
	}
}

// ToJSON converts a fixture to JSON string
func ToJSON(fixture interface{}) string {
	data, _ := json.Marshal(fixture)
	return string(data)
}

// FromJSON parses JSON string to map
func FromJSON(jsonStr string) map[string]interface{} {
	var result map[string]interface{}
	json.Unmarshal([]byte(jsonStr), &result)
	return result
}
