package deck

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

var routerTracer = otel.Tracer("slide-router")

// Fallback literals used when the presentation context omits tone or
// audience. The backends require both fields.
const (
	defaultTone     = "professional"
	defaultAudience = "general audience"
)

// defaultPyramidLevels is used only when a visualization slide carries no
// key points at all.
const defaultPyramidLevels = 3

var (
	errTextUnavailable        = errors.New("text service client not configured")
	errIllustratorUnavailable = errors.New("illustrator client not configured")
)

// ProgressEvent is emitted as the router works through a run. SessionID
// identifies the owning conversation so subscribers can be fanned out per
// session.
type ProgressEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	SlideID   string `json:"slide_id,omitempty"`
	Position  int    `json:"position,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Progress event types.
const (
	EventSlideStarted   = "slide_started"
	EventSlideCompleted = "slide_completed"
	EventSlideFailed    = "slide_failed"
	EventRunCompleted   = "run_completed"
)

// ProgressFunc receives progress events during a content-generation run.
type ProgressFunc func(event ProgressEvent)

// RouterConfig carries the router's policy knobs. Zero values fall back to
// the defaults below.
type RouterConfig struct {
	// MaxAttempts bounds retries per slide for request errors and
	// constraint violations. Default 3.
	MaxAttempts int
	// CallTimeout bounds each individual backend call. Default 30s.
	CallTimeout time.Duration
	// Concurrency bounds how many slides are dispatched at once. Results
	// preserve input order regardless. Default 4.
	Concurrency int
	// Notify, when set, receives progress events.
	Notify ProgressFunc
}

// Router dispatches each slide of a strawman to its content backend and
// collects exactly one result per slide. Clients are injected at
// construction and never looked up from ambient state; a nil client marks
// that backend as unavailable for the life of the router.
type Router struct {
	text        TextGenerator
	illustrator IllustratorGenerator
	maxAttempts int
	callTimeout time.Duration
	concurrency int
	notify      ProgressFunc
	tracer      trace.Tracer
}

// NewRouter creates a slide router over the given backend clients. Either
// client may be nil when its integration is disabled; slides routed to it
// fail with a backend-unavailable result instead of blocking the deck.
func NewRouter(text TextGenerator, illustrator IllustratorGenerator, cfg RouterConfig) *Router {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Router{
		text:        text,
		illustrator: illustrator,
		maxAttempts: cfg.MaxAttempts,
		callTimeout: cfg.CallTimeout,
		concurrency: cfg.Concurrency,
		notify:      cfg.Notify,
		tracer:      routerTracer,
	}
}

// Route turns an ordered slide sequence into an ordered result sequence,
// one result per slide. Slides failing pre-dispatch validation are marked
// failed in place and excluded from dispatch; valid slides still proceed.
// Dispatch runs with bounded concurrency but results always match input
// order.
func (r *Router) Route(ctx context.Context, pres models.PresentationContext, slides []models.Slide) []models.SlideResult {
	ctx, span := r.tracer.Start(ctx, "router.route")
	defer span.End()

	span.SetAttributes(
		attribute.String("presentation.id", pres.PresentationID),
		attribute.Int("slides.count", len(slides)),
	)

	results := make([]models.SlideResult, len(slides))

	// Validation pass: violations are collected per slide, never thrown.
	// One bad slide must not block the rest of the deck.
	dispatch := make([]int, 0, len(slides))
	for i, slide := range slides {
		if reason := r.validateSlide(slide); reason != "" {
			results[i] = models.SlideResult{
				SlideID:  slide.ID,
				Position: slide.Position,
				Err:      &models.RouteError{Kind: models.RouteErrValidation, Reason: reason},
			}
			r.emit(ProgressEvent{Type: EventSlideFailed, SessionID: pres.SessionID, SlideID: slide.ID, Position: slide.Position, Reason: reason})
			continue
		}
		dispatch = append(dispatch, i)
	}

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for _, i := range dispatch {
		g.Go(func() error {
			results[i] = r.dispatchSlide(ctx, pres, slides[i])
			return nil
		})
	}
	g.Wait()

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	span.SetAttributes(attribute.Int("slides.failed", failed))
	r.emit(ProgressEvent{Type: EventRunCompleted, SessionID: pres.SessionID})

	return results
}

// validateSlide returns a non-empty reason when the slide cannot be
// dispatched.
func (r *Router) validateSlide(slide models.Slide) string {
	binding, err := Resolve(slide.SlideType)
	if err != nil {
		return err.Error()
	}
	if slide.LayoutID == "" {
		return "slide has no layout id"
	}
	if binding.RequiresVariant && slide.VariantID == "" {
		return fmt.Sprintf("slide type %q requires a variant id", slide.SlideType)
	}
	return ""
}

// dispatchSlide runs the validate-and-retry policy for one slide and
// normalizes the outcome into a SlideResult.
func (r *Router) dispatchSlide(ctx context.Context, pres models.PresentationContext, slide models.Slide) models.SlideResult {
	ctx, span := r.tracer.Start(ctx, "router.dispatch_slide")
	defer span.End()

	span.SetAttributes(
		attribute.String("slide.id", slide.ID),
		attribute.String("slide.type", string(slide.SlideType)),
	)

	binding, _ := Resolve(slide.SlideType)
	result := models.SlideResult{
		SlideID:  slide.ID,
		Position: slide.Position,
		Backend:  binding.Backend,
	}

	r.emit(ProgressEvent{Type: EventSlideStarted, SessionID: pres.SessionID, SlideID: slide.ID, Position: slide.Position})

	start := time.Now()
	var resp *BackendResponse
	var err error
	for result.Attempts < r.maxAttempts {
		result.Attempts++

		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		resp, err = r.callBackend(callCtx, pres, slide)
		cancel()

		if errors.Is(err, errTextUnavailable) || errors.Is(err, errIllustratorUnavailable) {
			// Not a request failure; retrying cannot help.
			result.Duration = time.Since(start)
			result.Err = &models.RouteError{Kind: models.RouteErrBackendUnavailable, Reason: err.Error()}
			span.RecordError(err)
			r.emit(ProgressEvent{Type: EventSlideFailed, SessionID: pres.SessionID, SlideID: slide.ID, Position: slide.Position, Reason: err.Error()})
			return result
		}
		if err == nil && len(resp.Violations) == 0 {
			break
		}
		if err != nil {
			log.Printf(`{"level":"warn","message":"Backend request failed","slide_id":"%s","attempt":%d,"error":"%v"}`,
				slide.ID, result.Attempts, err)
		} else {
			log.Printf(`{"level":"warn","message":"Backend response violated constraints","slide_id":"%s","attempt":%d,"violations":%d}`,
				slide.ID, result.Attempts, len(resp.Violations))
		}

		// A cancelled run ends the attempt loop; every further attempt
		// would fail with the same cancellation.
		if ctx.Err() != nil {
			break
		}
	}
	result.Duration = time.Since(start)

	if err != nil {
		result.Err = &models.RouteError{Kind: models.RouteErrBackendRequest, Reason: err.Error()}
		span.RecordError(err)
		r.emit(ProgressEvent{Type: EventSlideFailed, SessionID: pres.SessionID, SlideID: slide.ID, Position: slide.Position, Reason: err.Error()})
		return result
	}

	// Retry budget exhausted on a constraint violation: deliver the content
	// anyway, flagged, rather than failing the slide outright.
	if len(resp.Violations) > 0 {
		result.ConstraintFlagged = true
		result.Violations = resp.Violations
		span.SetAttributes(attribute.Bool("slide.constraint_flagged", true))
	}

	content := resp.Content
	result.Success = true
	result.Content = &content
	r.emit(ProgressEvent{Type: EventSlideCompleted, SessionID: pres.SessionID, SlideID: slide.ID, Position: slide.Position})
	return result
}

// callBackend builds the backend-specific request from slide and
// presentation fields and performs one call. The switch is exhaustive over
// the closed slide type set; adding a type without a branch here is a
// compile-visible gap in the default case.
func (r *Router) callBackend(ctx context.Context, pres models.PresentationContext, slide models.Slide) (*BackendResponse, error) {
	tone := pres.Tone
	if tone == "" {
		tone = defaultTone
	}
	audience := pres.Audience
	if audience == "" {
		audience = defaultAudience
	}

	switch slide.SlideType {
	case models.SlideTypePyramid:
		if r.illustrator == nil {
			return nil, errIllustratorUnavailable
		}
		levels := len(slide.KeyPoints)
		if levels == 0 {
			levels = defaultPyramidLevels
		}
		return r.illustrator.GeneratePyramid(ctx, PyramidRequest{
			SlideID:      slide.ID,
			NumLevels:    levels,
			TargetPoints: slide.KeyPoints,
			Tone:         tone,
			Audience:     audience,
		})

	case models.SlideTypeLadder:
		if r.illustrator == nil {
			return nil, errIllustratorUnavailable
		}
		steps := len(slide.KeyPoints)
		if steps == 0 {
			steps = defaultPyramidLevels
		}
		return r.illustrator.GenerateLadder(ctx, LadderRequest{
			SlideID:      slide.ID,
			NumSteps:     steps,
			TargetPoints: slide.KeyPoints,
			Tone:         tone,
			Audience:     audience,
		})

	case models.SlideTypeHero:
		if r.illustrator == nil {
			return nil, errIllustratorUnavailable
		}
		subtitle := ""
		if len(slide.KeyPoints) > 0 {
			subtitle = slide.KeyPoints[0]
		}
		return r.illustrator.GenerateHero(ctx, HeroRequest{
			SlideID:  slide.ID,
			Title:    slide.Title,
			Subtitle: subtitle,
			Tone:     tone,
			Theme:    pres.Theme,
		})

	case models.SlideTypeContent:
		if r.text == nil {
			return nil, errTextUnavailable
		}
		return r.text.GenerateContent(ctx, TextRequest{
			SlideID:   slide.ID,
			Title:     slide.Title,
			KeyPoints: slide.KeyPoints,
			VariantID: slide.VariantID,
			Tone:      tone,
			Audience:  audience,
			Theme:     pres.Theme,
		})

	default:
		return nil, fmt.Errorf("no backend for slide type %q", slide.SlideType)
	}
}

func (r *Router) emit(event ProgressEvent) {
	if r.notify != nil {
		r.notify(event)
	}
}
