package tools

import (
	"testing"

	"imgedit-backend/internal/model"

	"github.com/stretchr/testify/require"
)

func TestTransformImageInfo(t *testing.T) {
	info := TransformImageInfo()
	require.Equal(t, TransformImageToolName, info.Name)

	s, err := info.ParamsOneOf.ToOpenAPIV3()
	require.NoError(t, err)
	require.Contains(t, s.Properties, "resize")
	require.Contains(t, s.Properties, "save_as")
	require.Contains(t, s.Properties, "transparency_threshold")
	require.ElementsMatch(t, []interface{}{"PNG", "JPG", "BMP"}, s.Properties["save_as"].Value.Enum)
	require.ElementsMatch(t, []string{"width", "height"}, s.Properties["resize"].Value.Required)
}

func TestParseArguments(t *testing.T) {
	plan, err := ParseArguments(`{"resize": {"width": 5, "height": 6, "x": 1, "y": 2}, "save_as": "jpeg"}`)
	require.NoError(t, err)
	require.Equal(t, &model.CropImage{Width: 5, Height: 6, X: 1, Y: 2}, plan.Resize.Crop)
	require.Equal(t, model.FormatJPG, *plan.SaveAs)

	_, err = ParseArguments(`{"brightness_adjustment_percentage": 400}`)
	require.ErrorIs(t, err, model.ErrInvalidPlan)
	require.Contains(t, err.Error(), TransformImageToolName)
}
