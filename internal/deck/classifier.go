package deck

import (
	"strings"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// Classify assigns a slide type from the slide's declared structure hint.
// Pure and total: the same slide always maps to the same type, and every
// slide gets exactly one type, falling back to the plain content type when
// no specialized pattern is recognized. Visualization structures are
// checked before hero styling, hero before the content fallback; the order
// of this if-chain is load-bearing.
func Classify(slide models.Slide) models.SlideType {
	hint := strings.ToLower(slide.StructureHint)

	if containsAny(hint, "pyramid", "hierarchy", "layered", "tiers", "funnel") {
		return models.SlideTypePyramid
	}
	if containsAny(hint, "ladder", "staircase", "step-by-step", "progression", "sequence of steps") {
		return models.SlideTypeLadder
	}
	if containsAny(hint, "hero", "title slide", "section divider", "full-bleed", "big statement", "closing slide") {
		return models.SlideTypeHero
	}
	return models.SlideTypeContent
}

func containsAny(s string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
