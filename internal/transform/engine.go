package transform

import (
	"fmt"

	"imgedit-backend/internal/model"
)

// MaxPixels bounds both decoded images and resize targets. Larger buffers
// would exhaust memory, which the runtime cannot recover from.
const MaxPixels = 89478485

func exceedsMaxPixels(width, height int) bool {
	return width > MaxPixels || height > MaxPixels || int64(width)*int64(height) > MaxPixels
}

func checkTargetSize(width, height int) error {
	if exceedsMaxPixels(width, height) {
		return fmt.Errorf("%w: resize to %dx%d exceeds the %d pixel limit", model.ErrInvalidPlan, width, height, MaxPixels)
	}
	return nil
}

// Result is the transformed picture together with the plan that produced it.
type Result struct {
	Picture *Picture
	Plan    *model.TransformPlan
}

// Apply runs plan against pic in a fixed order: resize, grayscale,
// transparency color, transparency threshold, brightness, contrast. pic is
// never modified.
func Apply(pic *Picture, plan *model.TransformPlan) (*Result, error) {
	if plan == nil {
		plan = &model.TransformPlan{}
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}

	img := pic.Clone()
	var err error

	if r := plan.Resize; r != nil {
		switch {
		case r.Scale != nil:
			if err := checkTargetSize(r.Scale.Width, r.Scale.Height); err != nil {
				return nil, err
			}
			img = scale(img, *r.Scale)
		case r.Crop != nil:
			if err := checkTargetSize(r.Crop.Width, r.Crop.Height); err != nil {
				return nil, err
			}
			img = crop(img, *r.Crop)
		}
	}

	if plan.MakeGrayscale != nil && *plan.MakeGrayscale {
		if img, err = img.Convert(ModeL); err != nil {
			return nil, fmt.Errorf("grayscale: %w", err)
		}
	}

	if plan.TransparencyColor != nil {
		bg, err := model.ParseColor(*plan.TransparencyColor)
		if err != nil {
			return nil, err
		}
		if img, err = flatten(img, bg); err != nil {
			return nil, fmt.Errorf("transparency color: %w", err)
		}
	}

	if plan.TransparencyThreshold != nil {
		if img, err = thresholdTransparency(img, *plan.TransparencyThreshold); err != nil {
			return nil, fmt.Errorf("transparency threshold: %w", err)
		}
	}

	if b := plan.BrightnessAdjustmentPercentage; b != nil {
		img = brightness(img, 1+*b/100)
	}

	if c := plan.ContrastAdjustmentPercentage; c != nil {
		if img, err = contrast(img, 1+*c/100); err != nil {
			return nil, fmt.Errorf("contrast: %w", err)
		}
	}

	return &Result{Picture: img, Plan: plan}, nil
}
