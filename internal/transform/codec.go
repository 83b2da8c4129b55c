package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"imgedit-backend/internal/model"

	"golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const jpegQuality = 75

// Decoded is an uploaded image after decoding.
type Decoded struct {
	Picture *Picture
	// Format is the upper-case codec name, e.g. PNG or JPEG.
	Format string
	// Mode describes the source pixel layout, before normalisation.
	Mode string
}

func Decode(r io.Reader) (*Decoded, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return DecodeBytes(data)
}

// DecodeBytes checks the dimensions in the header against MaxPixels before
// any pixel buffer is allocated.
func DecodeBytes(data []byte) (*Decoded, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if exceedsMaxPixels(cfg.Width, cfg.Height) {
		return nil, fmt.Errorf("%w: %dx%d exceeds the %d pixel limit", ErrInvalidImage, cfg.Width, cfg.Height, MaxPixels)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if b := img.Bounds(); b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}

	mode := DescribeMode(img)
	if format == "png" && pngColorType(data) == pngGrayAlpha {
		mode = "LA"
	}
	return &Decoded{
		Picture: FromImage(img),
		Format:  strings.ToUpper(format),
		Mode:    mode,
	}, nil
}

const pngGrayAlpha = 4

// pngColorType reads the color type byte of the IHDR chunk, which always
// directly follows the signature. The PNG decoder expands gray+alpha to
// NRGBA, so this is the only place the distinction survives.
func pngColorType(data []byte) int {
	const offset = 8 + 8 + 4 + 4 + 1
	if len(data) <= offset || string(data[12:16]) != "IHDR" {
		return -1
	}
	return int(data[offset])
}

// OutputFormat picks the format a result is written in: the plan's save_as,
// else the source format when it can be written, else PNG.
func OutputFormat(saveAs *model.OutputFormat, sourceFormat string) string {
	if saveAs != nil {
		return string(*saveAs)
	}
	switch f := strings.ToUpper(sourceFormat); f {
	case "PNG", "JPEG", "JPG", "BMP", "GIF":
		return f
	}
	return "PNG"
}

// Extension is the file extension used for a format name.
func Extension(format string) string {
	return strings.ToLower(format)
}

func Encode(w io.Writer, pic *Picture, format string) error {
	img := pic.Image()
	var err error
	switch strings.ToUpper(format) {
	case "PNG":
		err = png.Encode(w, img)
	case "JPG", "JPEG":
		if pic.Mode() == ModeRGBA {
			return fmt.Errorf("%w: cannot write mode RGBA as JPEG", ErrUnsupportedMode)
		}
		err = jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	case "BMP":
		err = bmp.Encode(w, img)
	case "GIF":
		err = gif.Encode(w, img, nil)
	default:
		return fmt.Errorf("%w: no encoder for format %s", ErrUnsupportedMode, format)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", format, err)
	}
	return nil
}

func EncodeBytes(pic *Picture, format string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, pic, format); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
