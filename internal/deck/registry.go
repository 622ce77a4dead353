package deck

import (
	"fmt"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// Binding resolves a slide type to the backend that generates its content,
// the layout it renders with, and whether a style variant is required.
type Binding struct {
	Backend         models.BackendID
	LayoutID        string
	RequiresVariant bool
}

// bindings is the static service registry. Every value the classifier can
// emit must appear here; ValidateRegistry enforces that at startup so an
// unmapped type fails loudly instead of silently mis-routing content.
var bindings = map[models.SlideType]Binding{
	models.SlideTypePyramid: {Backend: models.BackendIllustrator, LayoutID: "layout-pyramid-v1"},
	models.SlideTypeLadder:  {Backend: models.BackendIllustrator, LayoutID: "layout-ladder-v1"},
	models.SlideTypeHero:    {Backend: models.BackendIllustrator, LayoutID: "layout-hero-v1"},
	models.SlideTypeContent: {Backend: models.BackendText, LayoutID: "layout-content-v1", RequiresVariant: true},
}

// Resolve returns the binding for a slide type. An unrecognized type is a
// configuration error, not a runtime fallback.
func Resolve(t models.SlideType) (Binding, error) {
	b, ok := bindings[t]
	if !ok {
		return Binding{}, fmt.Errorf("no registry binding for slide type %q", t)
	}
	return b, nil
}

// ValidateRegistry checks at startup that every slide type the classifier
// can emit has a binding and that every binding points at a declared layout
// template. The server refuses to start on any gap.
func ValidateRegistry() error {
	for _, t := range models.AllSlideTypes {
		b, ok := bindings[t]
		if !ok {
			return fmt.Errorf("registry: slide type %q has no binding", t)
		}
		if b.LayoutID == "" {
			return fmt.Errorf("registry: slide type %q has an empty layout id", t)
		}
		if _, err := LayoutByID(b.LayoutID); err != nil {
			return fmt.Errorf("registry: slide type %q: %w", t, err)
		}
	}
	return nil
}

// PrepareStrawman classifies every slide and assigns its layout from the
// registry. Classification and layout are set exactly once: slides that
// already carry a type keep it, so re-preparing a strawman is a no-op.
func PrepareStrawman(sm *models.Strawman) error {
	for i := range sm.Slides {
		slide := &sm.Slides[i]
		if slide.SlideType != "" {
			continue
		}
		slide.SlideType = Classify(*slide)
		b, err := Resolve(slide.SlideType)
		if err != nil {
			return err
		}
		slide.LayoutID = b.LayoutID
	}
	return nil
}
