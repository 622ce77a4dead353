package deck

import (
	"fmt"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

// Transform maps a slide's generated content onto the render slots of its
// layout template. HTML payloads land verbatim in the layout's rich slot;
// structured payloads are distributed through the layout's slot map with
// unmapped slots left empty. The renderer downstream always sees every
// declared slot.
func Transform(slide models.Slide, result models.SlideResult, layout LayoutTemplate) (models.RenderFields, error) {
	if !result.Success || result.Content == nil {
		return nil, fmt.Errorf("slide %q has no content to transform", slide.ID)
	}

	fields := make(models.RenderFields, len(layout.Slots))
	for _, slot := range layout.Slots {
		fields[slot] = ""
	}
	fields["title"] = slide.Title

	content := result.Content
	switch content.Kind {
	case models.ContentKindHTML:
		if layout.RichSlot == "" {
			return nil, fmt.Errorf("layout %q has no rich slot for html content", layout.ID)
		}
		fields[layout.RichSlot] = content.HTML

	case models.ContentKindStructured:
		for field, slot := range layout.SlotMap {
			if value, ok := content.Fields[field]; ok {
				fields[slot] = value
			}
		}

	default:
		return nil, fmt.Errorf("slide %q carries unknown content kind %q", slide.ID, content.Kind)
	}

	return fields, nil
}

// Assemble runs Transform over every successful result and pairs the output
// with its slide metadata, preserving deck order. Failed slides are skipped;
// the caller decides how to surface them.
func Assemble(slides []models.Slide, results []models.SlideResult) ([]models.AssembledSlide, error) {
	byID := make(map[string]models.Slide, len(slides))
	for _, s := range slides {
		byID[s.ID] = s
	}

	assembled := make([]models.AssembledSlide, 0, len(results))
	for _, res := range results {
		if !res.Success {
			continue
		}
		slide, ok := byID[res.SlideID]
		if !ok {
			return nil, fmt.Errorf("result references unknown slide %q", res.SlideID)
		}
		layout, err := LayoutByID(slide.LayoutID)
		if err != nil {
			return nil, err
		}
		fields, err := Transform(slide, res, layout)
		if err != nil {
			return nil, err
		}
		assembled = append(assembled, models.AssembledSlide{
			SlideID:           slide.ID,
			Position:          slide.Position,
			LayoutID:          slide.LayoutID,
			Fields:            fields,
			ConstraintFlagged: res.ConstraintFlagged,
		})
	}
	return assembled, nil
}
