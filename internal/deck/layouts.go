package deck

import (
	"fmt"
)

// LayoutTemplate declares the render slots a layout exposes. RichSlot is
// the slot that receives verbatim HTML payloads; SlotMap maps structured
// payload field names onto slots. Slots are names only; visual design is
// the renderer's concern.
type LayoutTemplate struct {
	ID       string
	Slots    []string
	RichSlot string
	SlotMap  map[string]string
}

var layouts = map[string]LayoutTemplate{
	"layout-content-v1": {
		ID:       "layout-content-v1",
		Slots:    []string{"title", "body", "subtitle"},
		RichSlot: "body",
		SlotMap: map[string]string{
			"body":     "body",
			"subtitle": "subtitle",
		},
	},
	"layout-hero-v1": {
		ID:       "layout-hero-v1",
		Slots:    []string{"title", "headline", "subtitle", "background"},
		RichSlot: "headline",
		SlotMap: map[string]string{
			"headline":   "headline",
			"subtitle":   "subtitle",
			"background": "background",
		},
	},
	"layout-pyramid-v1": {
		ID:       "layout-pyramid-v1",
		Slots:    []string{"title", "diagram", "caption"},
		RichSlot: "diagram",
		SlotMap: map[string]string{
			"diagram_svg": "diagram",
			"caption":     "caption",
		},
	},
	"layout-ladder-v1": {
		ID:       "layout-ladder-v1",
		Slots:    []string{"title", "diagram", "caption"},
		RichSlot: "diagram",
		SlotMap: map[string]string{
			"diagram_svg": "diagram",
			"caption":     "caption",
		},
	},
}

// LayoutByID returns the layout template for a layout id.
func LayoutByID(id string) (LayoutTemplate, error) {
	l, ok := layouts[id]
	if !ok {
		return LayoutTemplate{}, fmt.Errorf("unknown layout template %q", id)
	}
	return l, nil
}
