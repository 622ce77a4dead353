package models

import (
	"time"
)

// SlideType classifies a slide and determines which content backend and
// layout serve it. The set is closed: the router switches exhaustively
// over these values.
type SlideType string

const (
	SlideTypePyramid SlideType = "pyramid"
	SlideTypeLadder  SlideType = "ladder"
	SlideTypeHero    SlideType = "hero"
	SlideTypeContent SlideType = "content"
)

// AllSlideTypes lists every value the classifier can emit. The registry is
// validated against this list at startup.
var AllSlideTypes = []SlideType{
	SlideTypePyramid,
	SlideTypeLadder,
	SlideTypeHero,
	SlideTypeContent,
}

// BackendID identifies a logical content-generation backend.
type BackendID string

const (
	BackendText        BackendID = "text-service"
	BackendIllustrator BackendID = "illustrator-service"
)

// Slide is one slide within a strawman outline.
//
// SlideType and LayoutID are derived (classifier + registry) and set exactly
// once before content generation; they are never mutated afterward.
// VariantID is required for slide types whose registry binding sets
// RequiresVariant and ignored for types whose backend owns styling.
type Slide struct {
	ID            string        `json:"id"`
	Position      int           `json:"position"`
	Title         string        `json:"title"`
	StructureHint string        `json:"structure_hint"`
	KeyPoints     []string      `json:"key_points"`
	SlideType     SlideType     `json:"slide_type,omitempty"`
	LayoutID      string        `json:"layout_id,omitempty"`
	VariantID     string        `json:"variant_id,omitempty"`
	Content       *SlideContent `json:"content,omitempty"`
}

// ContentKind discriminates the two payload shapes content backends return.
type ContentKind string

const (
	ContentKindHTML       ContentKind = "html"
	ContentKindStructured ContentKind = "structured"
)

// SlideContent is the normalized content payload for a slide. Exactly one
// of HTML or Fields is populated, selected by Kind, so downstream code
// never type-inspects raw backend JSON.
type SlideContent struct {
	Kind   ContentKind       `json:"kind"`
	HTML   string            `json:"html,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Strawman is the draft presentation outline. Once generated its structure
// (slide count, order, classification) is frozen; only slide content fields
// are populated during content generation. Refinement replaces the whole
// strawman rather than editing it in place.
type Strawman struct {
	PresentationID string  `json:"presentation_id"`
	Theme          string  `json:"theme"`
	Audience       string  `json:"audience"`
	Slides         []Slide `json:"slides"`
}

// PresentationContext carries the presentation-level fields backend
// requests are derived from.
type PresentationContext struct {
	SessionID      string
	PresentationID string
	Theme          string
	Audience       string
	Tone           string
}

// SlideResult is the router's per-slide output. Exactly one result is
// produced per slide per content-generation run; failures are retained so
// callers can report partial completion.
type SlideResult struct {
	SlideID           string        `json:"slide_id"`
	Position          int           `json:"position"`
	Backend           BackendID     `json:"backend,omitempty"`
	Success           bool          `json:"success"`
	Content           *SlideContent `json:"content,omitempty"`
	ConstraintFlagged bool          `json:"constraint_flagged,omitempty"`
	Violations        []string      `json:"violations,omitempty"`
	Attempts          int           `json:"attempts"`
	Duration          time.Duration `json:"duration_ns"`
	Err               *RouteError   `json:"error,omitempty"`
}

// RenderFields is the render-ready field set for one slide, keyed by
// layout slot name. Values are always strings; missing slots default to
// the empty string, never null.
type RenderFields map[string]string

// AssembledSlide is one render-ready slide handed to the deck builder.
type AssembledSlide struct {
	SlideID           string       `json:"slide_id"`
	Position          int          `json:"position"`
	LayoutID          string       `json:"layout_id"`
	Fields            RenderFields `json:"render_fields"`
	ConstraintFlagged bool         `json:"constraint_flagged,omitempty"`
}

// OutlineRequest is the payload sent to the outline engine to generate or
// regenerate a strawman.
type OutlineRequest struct {
	Topic          string    `json:"topic"`
	Audience       string    `json:"audience,omitempty"`
	SlideCountHint int       `json:"slide_count_hint,omitempty"`
	Refinement     string    `json:"refinement,omitempty"`
	Previous       *Strawman `json:"previous,omitempty"`
}
