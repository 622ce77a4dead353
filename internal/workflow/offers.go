package workflow

import (
	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// OffersFor returns the actions presented to the user at a stage. Labels
// are display text only; the Value field is the canonical token the intent
// gate matches against. Transient and terminal stages offer nothing.
func OffersFor(stage models.Stage) []models.Action {
	switch stage {
	case models.StagePlanConfirmation:
		return []models.Action{
			{Label: "Looks good, build the outline", Value: models.IntentAcceptPlan, Primary: true},
			{Label: "Change the plan", Value: models.IntentRejectPlan, RequiresInput: true},
		}
	case models.StageStrawmanReview:
		return []models.Action{
			{Label: "Generate the deck", Value: models.IntentAcceptStrawman, Primary: true},
			{Label: "Refine the outline", Value: models.IntentRequestRefinement},
		}
	default:
		return nil
	}
}

// PromptFor returns the assistant prompt shown when a session enters a
// stage.
func PromptFor(stage models.Stage) string {
	switch stage {
	case models.StageIntake:
		return "What presentation would you like to build? Tell me the topic, your audience, and roughly how many slides you need."
	case models.StagePlanConfirmation:
		return "Here is the plan I put together from your brief. Shall I build the outline, or would you like to change anything?"
	case models.StageGenerateStrawman:
		return "Building your outline now."
	case models.StageStrawmanReview:
		return "Your draft outline is ready. Generate the full deck, or tell me what to refine."
	case models.StageRefinement:
		return "What would you like to change about the outline?"
	case models.StageContentGeneration:
		return "Generating slide content. This can take a minute."
	case models.StageComplete:
		return "Your deck is ready."
	default:
		return ""
	}
}
