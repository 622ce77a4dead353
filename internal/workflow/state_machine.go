package workflow

import (
	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// transitions is the full stage/intent table. An intent absent from its
// stage's row is invalid there; Next rejects it without touching state.
// Transient stages (GENERATE_STRAWMAN, CONTENT_GENERATION) accept only
// system-originated intents, so user input can never skip them.
var transitions = map[models.Stage]map[models.Intent]models.Stage{
	models.StageIntake: {
		models.IntentSubmitBrief: models.StagePlanConfirmation,
	},
	models.StagePlanConfirmation: {
		models.IntentAcceptPlan: models.StageGenerateStrawman,
		models.IntentRejectPlan: models.StagePlanConfirmation,
	},
	models.StageGenerateStrawman: {
		models.IntentStrawmanReady: models.StageStrawmanReview,
	},
	models.StageStrawmanReview: {
		models.IntentAcceptStrawman:    models.StageContentGeneration,
		models.IntentRequestRefinement: models.StageRefinement,
	},
	models.StageRefinement: {
		models.IntentSubmitRefinement: models.StageGenerateStrawman,
	},
	models.StageContentGeneration: {
		models.IntentGenerationComplete: models.StageComplete,
	},
	models.StageComplete: {},
}

// Next validates an intent against the current stage and returns the stage
// it leads to. Invalid pairs return an InvalidTransitionError and no stage;
// the caller must leave the session unchanged.
func Next(stage models.Stage, intent models.Intent) (models.Stage, error) {
	row, ok := transitions[stage]
	if !ok {
		return "", &models.InvalidTransitionError{Stage: stage, Intent: intent}
	}
	next, ok := row[intent]
	if !ok {
		return "", &models.InvalidTransitionError{Stage: stage, Intent: intent}
	}
	return next, nil
}

// ValidIntents returns the intents accepted at a stage, for diagnostics.
func ValidIntents(stage models.Stage) []models.Intent {
	row := transitions[stage]
	intents := make([]models.Intent, 0, len(row))
	for intent := range row {
		intents = append(intents, intent)
	}
	return intents
}
