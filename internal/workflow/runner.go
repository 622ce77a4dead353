package workflow

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/slidecraft/deck-orchestrator/internal/deck"
	"github.com/slidecraft/deck-orchestrator/internal/metrics"
	"github.com/slidecraft/deck-orchestrator/internal/models"
)

var runnerTracer = otel.Tracer("workflow-runner")

// OutlineGenerator produces strawman outlines from a brief or a refinement
// request.
type OutlineGenerator interface {
	GenerateOutline(ctx context.Context, req models.OutlineRequest) (*models.Strawman, error)
}

// SlideRouter generates content for every slide of a strawman.
type SlideRouter interface {
	Route(ctx context.Context, pres models.PresentationContext, slides []models.Slide) []models.SlideResult
}

// DeckAssembler renders assembled slides into a final deck and returns its
// URL.
type DeckAssembler interface {
	BuildDeck(ctx context.Context, presentationID, theme string, slides []models.AssembledSlide) (string, error)
}

// StepResult is what one accepted user turn produces: the stage the session
// landed in, the prompt and offers for that stage, and terminal outputs
// when the run finished.
type StepResult struct {
	Stage   models.Stage    `json:"stage"`
	Prompt  string          `json:"prompt"`
	Offers  []models.Action `json:"offers,omitempty"`
	DeckURL string          `json:"deck_url,omitempty"`
	Summary string          `json:"summary,omitempty"`
}

// Runner executes the conversation workflow over an in-memory session. It
// owns no persistence; the orchestration layer loads the session, calls
// HandleInput, and stores whatever came back.
type Runner struct {
	outline OutlineGenerator
	router  SlideRouter
	builder DeckAssembler
	metrics *metrics.SlideMetrics
}

// NewRunner wires the workflow runner over its collaborators. Metrics may
// be nil in tests.
func NewRunner(outline OutlineGenerator, router SlideRouter, builder DeckAssembler, m *metrics.SlideMetrics) *Runner {
	return &Runner{
		outline: outline,
		router:  router,
		builder: builder,
		metrics: m,
	}
}

// HandleInput advances the session by one user turn. The intent gate and
// state machine run first; only an accepted transition mutates the session.
// Transient stages are driven through internally by system intents, so the
// caller always gets back a session resting in an interactive or terminal
// stage.
func (r *Runner) HandleInput(ctx context.Context, session *models.Session, input models.UserInput) (*StepResult, error) {
	ctx, span := runnerTracer.Start(ctx, "workflow.handle_input")
	defer span.End()

	span.SetAttributes(
		attribute.String("session.id", session.ID),
		attribute.String("session.stage", string(session.Stage)),
	)

	intent, err := ClassifyIntent(session.Stage, input)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.String("session.intent", string(intent)))

	next, err := Next(session.Stage, intent)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if input.Text != "" {
		session.AppendMessage(models.RoleUser, input.Text)
	}

	switch intent {
	case models.IntentSubmitBrief:
		session.Topic = input.Text
	case models.IntentRejectPlan:
		if input.Text != "" {
			session.Topic = session.Topic + "\n" + input.Text
		}
	}

	prior := session.Stage
	session.Stage = next

	switch next {
	case models.StageGenerateStrawman:
		if err := r.generateStrawman(ctx, session, intent, input); err != nil {
			session.Stage = prior
			span.RecordError(err)
			return nil, fmt.Errorf("outline generation failed: %w", err)
		}

	case models.StageContentGeneration:
		summary, deckURL, err := r.generateContent(ctx, session)
		if err != nil {
			session.Stage = models.StageStrawmanReview
			span.RecordError(err)
			return nil, fmt.Errorf("content generation failed: %w", err)
		}
		session.DeckURL = deckURL
		return r.finish(session, summary), nil
	}

	prompt := PromptFor(session.Stage)
	session.AppendMessage(models.RoleAssistant, prompt)
	return &StepResult{
		Stage:  session.Stage,
		Prompt: prompt,
		Offers: OffersFor(session.Stage),
	}, nil
}

// generateStrawman calls the outline engine, classifies and binds the
// resulting slides, and drives the session on to review via the
// strawman_ready system intent.
func (r *Runner) generateStrawman(ctx context.Context, session *models.Session, intent models.Intent, input models.UserInput) error {
	req := models.OutlineRequest{
		Topic:          session.Topic,
		Audience:       session.Audience,
		SlideCountHint: session.SlideCountHint,
	}
	if intent == models.IntentSubmitRefinement {
		req.Refinement = input.Text
		req.Previous = session.Strawman
	}

	strawman, err := r.outline.GenerateOutline(ctx, req)
	if err != nil {
		return err
	}
	if err := deck.PrepareStrawman(strawman); err != nil {
		return err
	}
	session.Strawman = strawman

	next, err := Next(session.Stage, models.IntentStrawmanReady)
	if err != nil {
		return err
	}
	session.Stage = next
	log.Printf(`{"level":"info","message":"Strawman generated","session_id":"%s","slides":%d}`,
		session.ID, len(strawman.Slides))
	return nil
}

// generateContent routes every slide exactly once, assembles the render
// fields, builds the deck, and advances to COMPLETE. Partial slide failures
// do not fail the run; they are reported in the summary.
func (r *Runner) generateContent(ctx context.Context, session *models.Session) (string, string, error) {
	if session.Strawman == nil {
		return "", "", fmt.Errorf("session %s has no strawman", session.ID)
	}

	r.metrics.RunStarted(ctx)
	start := time.Now()

	pres := models.PresentationContext{
		SessionID:      session.ID,
		PresentationID: session.Strawman.PresentationID,
		Theme:          session.Strawman.Theme,
		Audience:       session.Strawman.Audience,
	}
	results := r.router.Route(ctx, pres, session.Strawman.Slides)

	generated, failed, flagged := 0, 0, 0
	for _, res := range results {
		if res.Success {
			generated++
			if res.ConstraintFlagged {
				flagged++
			}
		} else {
			failed++
		}
	}
	r.metrics.RunFinished(ctx, time.Since(start), generated, failed)

	assembled, err := deck.Assemble(session.Strawman.Slides, results)
	if err != nil {
		return "", "", err
	}
	if len(assembled) == 0 {
		return "", "", fmt.Errorf("no slides were generated successfully")
	}

	deckURL, err := r.builder.BuildDeck(ctx, session.Strawman.PresentationID, session.Strawman.Theme, assembled)
	if err != nil {
		return "", "", err
	}

	next, err := Next(session.Stage, models.IntentGenerationComplete)
	if err != nil {
		return "", "", err
	}
	session.Stage = next

	summary := fmt.Sprintf("%d of %d slides generated", generated, len(results))
	if failed > 0 {
		summary += fmt.Sprintf(", %d failed", failed)
	}
	if flagged > 0 {
		summary += fmt.Sprintf(", %d flagged for constraint violations", flagged)
	}
	log.Printf(`{"level":"info","message":"Content generation finished","session_id":"%s","generated":%d,"failed":%d,"flagged":%d}`,
		session.ID, generated, failed, flagged)
	return summary, deckURL, nil
}

func (r *Runner) finish(session *models.Session, summary string) *StepResult {
	prompt := PromptFor(session.Stage)
	session.AppendMessage(models.RoleAssistant, prompt+" "+summary)
	return &StepResult{
		Stage:   session.Stage,
		Prompt:  prompt,
		DeckURL: session.DeckURL,
		Summary: summary,
	}
}
