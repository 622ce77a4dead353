package deck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slidecraft/deck-orchestrator/internal/models"
)

func TestTransform_HTMLContent(t *testing.T) {
	slide := contentSlide("s1", 0)
	layout, err := LayoutByID("layout-content-v1")
	require.NoError(t, err)

	result := models.SlideResult{
		SlideID: "s1",
		Success: true,
		Content: &models.SlideContent{Kind: models.ContentKindHTML, HTML: "<p>hello</p>"},
	}

	fields, err := Transform(slide, result, layout)
	require.NoError(t, err)

	assert.Equal(t, "Slide s1", fields["title"])
	assert.Equal(t, "<p>hello</p>", fields["body"], "html lands verbatim in the rich slot")
	assert.Equal(t, "", fields["subtitle"], "unfilled slots default to empty string")
}

func TestTransform_StructuredContent(t *testing.T) {
	slide := pyramidSlide("s1", 0, "a", "b")
	layout, err := LayoutByID("layout-pyramid-v1")
	require.NoError(t, err)

	result := models.SlideResult{
		SlideID: "s1",
		Success: true,
		Content: &models.SlideContent{
			Kind: models.ContentKindStructured,
			Fields: map[string]string{
				"diagram_svg": "<svg>pyramid</svg>",
				"caption":     "Priorities",
				"unused":      "dropped",
			},
		},
	}

	fields, err := Transform(slide, result, layout)
	require.NoError(t, err)

	assert.Equal(t, "<svg>pyramid</svg>", fields["diagram"], "slot map renames payload fields")
	assert.Equal(t, "Priorities", fields["caption"])
	assert.NotContains(t, fields, "unused", "unmapped payload fields never leak into render fields")
}

func TestTransform_MissingStructuredFieldsDefaultEmpty(t *testing.T) {
	slide := pyramidSlide("s1", 0)
	layout, err := LayoutByID("layout-pyramid-v1")
	require.NoError(t, err)

	result := models.SlideResult{
		SlideID: "s1",
		Success: true,
		Content: &models.SlideContent{
			Kind:   models.ContentKindStructured,
			Fields: map[string]string{"diagram_svg": "<svg/>"},
		},
	}

	fields, err := Transform(slide, result, layout)
	require.NoError(t, err)

	assert.Equal(t, "", fields["caption"])
}

func TestTransform_NoContentIsError(t *testing.T) {
	slide := contentSlide("s1", 0)
	layout, _ := LayoutByID("layout-content-v1")

	_, err := Transform(slide, models.SlideResult{SlideID: "s1", Success: false}, layout)
	assert.Error(t, err)

	_, err = Transform(slide, models.SlideResult{SlideID: "s1", Success: true, Content: nil}, layout)
	assert.Error(t, err)
}

func TestAssemble(t *testing.T) {
	slides := []models.Slide{
		contentSlide("s1", 0),
		pyramidSlide("s2", 1, "a"),
		contentSlide("s3", 2),
	}
	results := []models.SlideResult{
		{SlideID: "s1", Position: 0, Success: true, Content: &models.SlideContent{Kind: models.ContentKindHTML, HTML: "<p>1</p>"}},
		{SlideID: "s2", Position: 1, Success: false, Err: &models.RouteError{Kind: models.RouteErrBackendUnavailable, Reason: "down"}},
		{SlideID: "s3", Position: 2, Success: true, ConstraintFlagged: true, Content: &models.SlideContent{Kind: models.ContentKindHTML, HTML: "<p>3</p>"}},
	}

	assembled, err := Assemble(slides, results)
	require.NoError(t, err)

	require.Len(t, assembled, 2, "failed slides are excluded")
	assert.Equal(t, "s1", assembled[0].SlideID)
	assert.Equal(t, "s3", assembled[1].SlideID)
	assert.True(t, assembled[1].ConstraintFlagged)
	assert.Equal(t, "layout-content-v1", assembled[0].LayoutID)
	assert.Equal(t, "<p>1</p>", assembled[0].Fields["body"])
}

func TestAssemble_UnknownSlideReference(t *testing.T) {
	results := []models.SlideResult{
		{SlideID: "ghost", Success: true, Content: &models.SlideContent{Kind: models.ContentKindHTML, HTML: "<p/>"}},
	}

	_, err := Assemble(nil, results)
	assert.Error(t, err)
}
