package workflow

import (
	"strings"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// ClassifyIntent maps raw user input to a canonical intent for the current
// stage. Action values are matched exactly against the stage's offered
// actions before any free-text inference runs, so a button click is never
// reinterpreted. Free-text inference is stage-local: the same words can
// mean different intents at different stages. Text matching both of a
// stage's intents ("accept, but refine slide two") is ambiguous and
// rejected rather than resolved by match order.
func ClassifyIntent(stage models.Stage, input models.UserInput) (models.Intent, error) {
	if input.IsAction() {
		for _, action := range OffersFor(stage) {
			if string(action.Value) == input.ActionValue {
				return action.Value, nil
			}
		}
		return "", &models.InvalidTransitionError{Stage: stage, Intent: models.Intent(input.ActionValue)}
	}

	text := strings.ToLower(strings.TrimSpace(input.Text))
	if text == "" {
		return "", &models.AmbiguousInputError{Stage: stage}
	}

	switch stage {
	case models.StageIntake:
		// Any substantive message at intake is the brief.
		return models.IntentSubmitBrief, nil

	case models.StagePlanConfirmation:
		return pickIntent(stage,
			matchesAny(text, "yes", "ok", "okay", "sure", "accept", "looks good", "go ahead", "proceed", "sounds good"), models.IntentAcceptPlan,
			matchesAny(text, "no", "reject", "change", "different", "not quite", "redo"), models.IntentRejectPlan,
		)

	case models.StageStrawmanReview:
		return pickIntent(stage,
			matchesAny(text, "accept", "approve", "looks good", "generate", "build it", "go ahead", "proceed", "yes"), models.IntentAcceptStrawman,
			matchesAny(text, "refine", "change", "edit", "adjust", "rework", "tweak", "different"), models.IntentRequestRefinement,
		)

	case models.StageRefinement:
		// The message itself is the refinement instruction.
		return models.IntentSubmitRefinement, nil

	default:
		return "", &models.AmbiguousInputError{Stage: stage}
	}
}

// pickIntent resolves a two-way keyword match. Matching neither intent or
// both is ambiguous.
func pickIntent(stage models.Stage, firstMatched bool, first models.Intent, secondMatched bool, second models.Intent) (models.Intent, error) {
	switch {
	case firstMatched && secondMatched:
		return "", &models.AmbiguousInputError{Stage: stage}
	case firstMatched:
		return first, nil
	case secondMatched:
		return second, nil
	default:
		return "", &models.AmbiguousInputError{Stage: stage}
	}
}

func matchesAny(text string, phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
