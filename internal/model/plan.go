package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"math"
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

var ErrInvalidPlan = errors.New("invalid transform plan")

// OutputFormat is one of the formats a plan may ask the result to be saved as.
type OutputFormat string

const (
	FormatPNG OutputFormat = "PNG"
	FormatJPG OutputFormat = "JPG"
	FormatBMP OutputFormat = "BMP"
)

var OutputFormats = []OutputFormat{FormatPNG, FormatJPG, FormatBMP}

func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "PNG":
		return FormatPNG, nil
	case "JPG", "JPEG":
		return FormatJPG, nil
	case "BMP":
		return FormatBMP, nil
	}
	return "", fmt.Errorf("%w: save_as must be one of PNG, JPG, BMP, got %q", ErrInvalidPlan, s)
}

func (f *OutputFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: save_as: %v", ErrInvalidPlan, err)
	}
	parsed, err := ParseOutputFormat(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ScaleImage stretches the whole image to exactly Width x Height.
type ScaleImage struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropImage cuts the box (X, Y, X+Width, Y+Height). The box is not checked
// against the image bounds.
type CropImage struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	X      int `json:"x"`
	Y      int `json:"y"`
}

// Resize holds exactly one of Scale or Crop.
type Resize struct {
	Scale *ScaleImage
	Crop  *CropImage
}

func (r Resize) MarshalJSON() ([]byte, error) {
	if r.Crop != nil {
		return json.Marshal(r.Crop)
	}
	return json.Marshal(r.Scale)
}

// UnmarshalJSON picks the crop variant when both x and y are present and
// falls back to scaling otherwise.
func (r *Resize) UnmarshalJSON(data []byte) error {
	var raw struct {
		Width  *int `json:"width"`
		Height *int `json:"height"`
		X      *int `json:"x"`
		Y      *int `json:"y"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: resize: %v", ErrInvalidPlan, err)
	}
	if raw.Width == nil || raw.Height == nil {
		return fmt.Errorf("%w: resize needs width and height", ErrInvalidPlan)
	}
	if raw.X != nil && raw.Y != nil {
		*r = Resize{Crop: &CropImage{Width: *raw.Width, Height: *raw.Height, X: *raw.X, Y: *raw.Y}}
		return nil
	}
	*r = Resize{Scale: &ScaleImage{Width: *raw.Width, Height: *raw.Height}}
	return nil
}

func (r *Resize) validate() error {
	switch {
	case r.Scale != nil && r.Crop != nil:
		return fmt.Errorf("%w: resize is either a scale or a crop", ErrInvalidPlan)
	case r.Scale != nil:
		if r.Scale.Width < 1 || r.Scale.Height < 1 {
			return fmt.Errorf("%w: scale dimensions must be positive, got %dx%d", ErrInvalidPlan, r.Scale.Width, r.Scale.Height)
		}
	case r.Crop != nil:
		if r.Crop.Width < 1 || r.Crop.Height < 1 {
			return fmt.Errorf("%w: crop dimensions must be positive, got %dx%d", ErrInvalidPlan, r.Crop.Width, r.Crop.Height)
		}
	default:
		return fmt.Errorf("%w: empty resize", ErrInvalidPlan)
	}
	return nil
}

// TransformPlan describes an image edit. Every field is optional; unset
// fields leave the image alone.
type TransformPlan struct {
	Resize                         *Resize       `json:"resize"`
	MakeGrayscale                  *bool         `json:"make_grayscale"`
	TransparencyColor              *string       `json:"transparency_color"`
	TransparencyThreshold          *int          `json:"transparency_threshold"`
	BrightnessAdjustmentPercentage *float64      `json:"brightness_adjustment_percentage"`
	ContrastAdjustmentPercentage   *float64      `json:"contrast_adjustment_percentage"`
	SaveAs                         *OutputFormat `json:"save_as"`
}

// UnmarshalJSON accepts transparency_threshold as any whole number, so 200.0
// is read as 200.
func (p *TransformPlan) UnmarshalJSON(data []byte) error {
	type plain TransformPlan
	aux := struct {
		*plain
		TransparencyThreshold *json.Number `json:"transparency_threshold"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.TransparencyThreshold == nil {
		p.TransparencyThreshold = nil
		return nil
	}
	f, err := aux.TransparencyThreshold.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return fmt.Errorf("%w: transparency_threshold must be an integer, got %s", ErrInvalidPlan, *aux.TransparencyThreshold)
	}
	t := int(f)
	p.TransparencyThreshold = &t
	return nil
}

// ParsePlan decodes and validates plan arguments produced by the model.
func ParsePlan(data []byte) (*TransformPlan, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		data = []byte("{}")
	}
	var plan TransformPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		if errors.Is(err, ErrInvalidPlan) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidPlan, err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

func (p *TransformPlan) Validate() error {
	if p.Resize != nil {
		if err := p.Resize.validate(); err != nil {
			return err
		}
	}
	if p.TransparencyColor != nil {
		if _, err := ParseColor(*p.TransparencyColor); err != nil {
			return err
		}
	}
	if t := p.TransparencyThreshold; t != nil && (*t < 0 || *t > 255) {
		return fmt.Errorf("%w: transparency_threshold must be within 0-255, got %d", ErrInvalidPlan, *t)
	}
	if err := checkPercentage("brightness_adjustment_percentage", p.BrightnessAdjustmentPercentage); err != nil {
		return err
	}
	if err := checkPercentage("contrast_adjustment_percentage", p.ContrastAdjustmentPercentage); err != nil {
		return err
	}
	if p.SaveAs != nil {
		if _, err := ParseOutputFormat(string(*p.SaveAs)); err != nil {
			return err
		}
	}
	return nil
}

func checkPercentage(field string, v *float64) error {
	if v != nil && (*v < 0 || *v > 100) {
		return fmt.Errorf("%w: %s must be within 0-100, got %g", ErrInvalidPlan, field, *v)
	}
	return nil
}

// ParseColor accepts #rgb / #rrggbb hex or an SVG color name.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if named, ok := colornames.Map[strings.ToLower(s)]; ok {
		return color.NRGBA{R: named.R, G: named.G, B: named.B, A: 255}, nil
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("%w: transparency_color %q is not a hex color or color name", ErrInvalidPlan, s)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// IsEmpty reports whether the plan leaves the image untouched.
func (p *TransformPlan) IsEmpty() bool {
	return p.Resize == nil &&
		(p.MakeGrayscale == nil || !*p.MakeGrayscale) &&
		p.TransparencyColor == nil &&
		p.TransparencyThreshold == nil &&
		p.BrightnessAdjustmentPercentage == nil &&
		p.ContrastAdjustmentPercentage == nil
}
