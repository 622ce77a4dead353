package deck

import (
	"context"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// TextRequest is the payload derived from a plain content slide for the
// text backend. Tone and audience fall back to presentation-level defaults
// before a request is built.
type TextRequest struct {
	SlideID   string   `json:"slide_id"`
	Title     string   `json:"title"`
	KeyPoints []string `json:"key_points"`
	VariantID string   `json:"variant_id"`
	Tone      string   `json:"tone"`
	Audience  string   `json:"audience"`
	Theme     string   `json:"theme,omitempty"`
}

// PyramidRequest is the payload for a pyramid visualization slide. The
// level count is derived from the slide's key points; target labels are
// taken verbatim from them.
type PyramidRequest struct {
	SlideID      string   `json:"slide_id"`
	NumLevels    int      `json:"num_levels"`
	TargetPoints []string `json:"target_points"`
	Tone         string   `json:"tone"`
	Audience     string   `json:"audience"`
}

// LadderRequest is the payload for a ladder visualization slide.
type LadderRequest struct {
	SlideID      string   `json:"slide_id"`
	NumSteps     int      `json:"num_steps"`
	TargetPoints []string `json:"target_points"`
	Tone         string   `json:"tone"`
	Audience     string   `json:"audience"`
}

// HeroRequest is the payload for a hero slide. Hero styling is owned by
// the backend, so no variant is carried.
type HeroRequest struct {
	SlideID  string `json:"slide_id"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Tone     string `json:"tone"`
	Theme    string `json:"theme,omitempty"`
}

// BackendResponse is the normalized output of any content backend: a
// tagged content payload plus the constraint violations the backend
// flagged, consumed by the router's retry policy. Backend-specific JSON
// never leaves the client layer untagged.
type BackendResponse struct {
	Content    models.SlideContent
	Violations []string
}

// TextGenerator generates rich HTML content for plain slides.
type TextGenerator interface {
	GenerateContent(ctx context.Context, req TextRequest) (*BackendResponse, error)
	IsHealthy(ctx context.Context) bool
}

// IllustratorGenerator generates structured content for visualization and
// hero slides.
type IllustratorGenerator interface {
	GeneratePyramid(ctx context.Context, req PyramidRequest) (*BackendResponse, error)
	GenerateLadder(ctx context.Context, req LadderRequest) (*BackendResponse, error)
	GenerateHero(ctx context.Context, req HeroRequest) (*BackendResponse, error)
	IsHealthy(ctx context.Context) bool
}
