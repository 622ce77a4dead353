package models

// Intent is the canonical token that drives a state-machine transition.
// For button-style actions the intent value is what crosses the wire back
// to the server; display labels never do.
type Intent string

const (
	// User-originated intents.
	IntentSubmitBrief       Intent = "submit_brief"
	IntentAcceptPlan        Intent = "accept_plan"
	IntentRejectPlan        Intent = "reject_plan"
	IntentAcceptStrawman    Intent = "accept_strawman"
	IntentRequestRefinement Intent = "request_refinement"
	IntentSubmitRefinement  Intent = "submit_refinement"

	// System-originated intents, emitted by the workflow runner when an
	// asynchronous step finishes. The intent gate never produces these
	// from user input.
	IntentStrawmanReady      Intent = "strawman_ready"
	IntentGenerationComplete Intent = "generation_complete"
)

// Action is one choice offered to the user at a stage. Label is
// presentation-only; Value is the canonical token expected back.
type Action struct {
	Label         string `json:"label"`
	Value         Intent `json:"value"`
	Primary       bool   `json:"primary"`
	RequiresInput bool   `json:"requires_input"`
}

// UserInput is the inbound intent signal: either a free-text message or a
// canonical action value, discriminated by which field is set. Action
// values take precedence when both are present.
type UserInput struct {
	Text        string `json:"text,omitempty"`
	ActionValue string `json:"action_value,omitempty"`
}

// IsAction reports whether the input is a button-style action selection.
func (in UserInput) IsAction() bool {
	return in.ActionValue != ""
}
