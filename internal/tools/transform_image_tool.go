package tools

import (
	"fmt"

	"imgedit-backend/internal/model"

	"github.com/cloudwego/eino/schema"
)

const TransformImageToolName = "transform_image"

// TransformImageInfo is the tool schema bound to the chat model.
func TransformImageInfo() *schema.ToolInfo {
	formats := make([]string, 0, len(model.OutputFormats))
	for _, f := range model.OutputFormats {
		formats = append(formats, string(f))
	}

	return &schema.ToolInfo{
		Name: TransformImageToolName,
		Desc: "Transform the user's image. Only set the fields needed to satisfy the request; omitted fields leave the image unchanged.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"resize": {
				Type: schema.Object,
				Desc: "Either scale the image to width x height, or crop a width x height box at offset x, y (both x and y given).",
				SubParams: map[string]*schema.ParameterInfo{
					"width":  {Type: schema.Integer, Desc: "target width in pixels", Required: true},
					"height": {Type: schema.Integer, Desc: "target height in pixels", Required: true},
					"x":      {Type: schema.Integer, Desc: "left edge of the crop box"},
					"y":      {Type: schema.Integer, Desc: "top edge of the crop box"},
				},
			},
			"make_grayscale": {
				Type: schema.Boolean,
				Desc: "convert the image to grayscale",
			},
			"transparency_color": {
				Type: schema.String,
				Desc: "replace transparent areas with this color (hex like #ffffff or a color name)",
			},
			"transparency_threshold": {
				Type: schema.Integer,
				Desc: "0-255; pixels brighter than this become transparent",
			},
			"brightness_adjustment_percentage": {
				Type: schema.Number,
				Desc: "0-100; increase brightness by this percentage",
			},
			"contrast_adjustment_percentage": {
				Type: schema.Number,
				Desc: "0-100; increase contrast by this percentage",
			},
			"save_as": {
				Type: schema.String,
				Desc: "output file format",
				Enum: formats,
			},
		}),
	}
}

// ParseArguments turns the arguments of a transform_image call into a
// validated plan.
func ParseArguments(argumentsInJSON string) (*model.TransformPlan, error) {
	plan, err := model.ParsePlan([]byte(argumentsInJSON))
	if err != nil {
		return nil, fmt.Errorf("%s arguments: %w", TransformImageToolName, err)
	}
	return plan, nil
}
