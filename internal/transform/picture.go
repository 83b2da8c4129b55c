package transform

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"
)

// Mode is the pixel layout of a Picture.
type Mode string

const (
	ModeL    Mode = "L"
	ModeRGB  Mode = "RGB"
	ModeRGBA Mode = "RGBA"
)

// Picture is an image normalised to one of the working modes, anchored at
// the origin. L pictures are backed by *image.Gray; RGB and RGBA by
// *image.NRGBA, where RGB pixels always carry alpha 255.
type Picture struct {
	mode Mode
	gray *image.Gray
	rgba *image.NRGBA
}

// NewGray wraps img as an L picture. img must start at the origin.
func NewGray(img *image.Gray) *Picture {
	return &Picture{mode: ModeL, gray: img}
}

// NewRGBA wraps img as an RGBA picture. img must start at the origin.
func NewRGBA(img *image.NRGBA) *Picture {
	return &Picture{mode: ModeRGBA, rgba: img}
}

// NewRGB wraps img as an RGB picture, forcing every pixel opaque.
func NewRGB(img *image.NRGBA) *Picture {
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return &Picture{mode: ModeRGB, rgba: img}
}

func (p *Picture) Mode() Mode {
	return p.mode
}

func (p *Picture) Image() image.Image {
	if p.mode == ModeL {
		return p.gray
	}
	return p.rgba
}

func (p *Picture) Bounds() image.Rectangle {
	return p.Image().Bounds()
}

func (p *Picture) Width() int {
	return p.Bounds().Dx()
}

func (p *Picture) Height() int {
	return p.Bounds().Dy()
}

func (p *Picture) Clone() *Picture {
	out := &Picture{mode: p.mode}
	if p.gray != nil {
		g := image.NewGray(p.gray.Rect)
		copy(g.Pix, p.gray.Pix)
		out.gray = g
	}
	if p.rgba != nil {
		n := image.NewNRGBA(p.rgba.Rect)
		copy(n.Pix, p.rgba.Pix)
		out.rgba = n
	}
	return out
}

// blank returns a zero-filled picture of the same mode; RGB stays opaque.
func (p *Picture) blank(width, height int) *Picture {
	r := image.Rect(0, 0, width, height)
	switch p.mode {
	case ModeL:
		return NewGray(image.NewGray(r))
	case ModeRGB:
		return NewRGB(image.NewNRGBA(r))
	default:
		return NewRGBA(image.NewNRGBA(r))
	}
}

func (p *Picture) pix() (pix []uint8, stride, bpp int) {
	if p.mode == ModeL {
		return p.gray.Pix, p.gray.Stride, 1
	}
	return p.rgba.Pix, p.rgba.Stride, 4
}

// FromImage normalises a decoded image. Grayscale images become L; palette
// images become RGBA when any palette entry is translucent, RGB otherwise;
// everything else becomes RGB or RGBA depending on whether it can carry
// transparency.
func FromImage(img image.Image) *Picture {
	b := img.Bounds()
	switch src := img.(type) {
	case *image.Gray:
		dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return NewGray(dst)
	case *image.Gray16:
		dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return NewGray(dst)
	case *image.NRGBA:
		dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		for y := 0; y < b.Dy(); y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+4*b.Dx()], src.Pix[src.PixOffset(b.Min.X, b.Min.Y+y):])
		}
		return NewRGBA(dst)
	case *image.Paletted:
		if paletteHasAlpha(src.Palette) {
			return NewRGBA(toNRGBA(src))
		}
		return NewRGB(toNRGBA(src))
	case *image.RGBA:
		// The PNG decoder yields *image.RGBA for truecolor images without alpha.
		if src.Opaque() {
			return NewRGB(toNRGBA(src))
		}
		return NewRGBA(toNRGBA(src))
	case *image.RGBA64:
		// 16-bit truecolor PNGs without alpha decode as an opaque RGBA64.
		if src.Opaque() {
			return NewRGB(toNRGBA(src))
		}
		return NewRGBA(toNRGBA(src))
	case *image.NRGBA64:
		if src.Opaque() {
			return NewRGB(toNRGBA(src))
		}
		return NewRGBA(toNRGBA(src))
	default:
		return NewRGB(toNRGBA(src))
	}
}

func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func paletteHasAlpha(p color.Palette) bool {
	for _, c := range p {
		if _, _, _, a := c.RGBA(); a != 0xffff {
			return true
		}
	}
	return false
}

// DescribeMode names the pixel layout of a decoded image the way image
// tooling usually reports it.
func DescribeMode(img image.Image) string {
	switch src := img.(type) {
	case *image.Gray:
		return "L"
	case *image.Gray16:
		return "I;16"
	case *image.Paletted:
		return "P"
	case *image.CMYK:
		return "CMYK"
	case *image.RGBA:
		if src.Opaque() {
			return "RGB"
		}
		return "RGBA"
	case *image.NRGBA64:
		if src.Opaque() {
			return "RGB"
		}
		return "RGBA"
	case *image.RGBA64:
		if src.Opaque() {
			return "RGB"
		}
		return "RGBA"
	case *image.NRGBA:
		return "RGBA"
	default:
		return "RGB"
	}
}

func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

// Convert returns a copy of p in the given mode. Converting RGBA to RGB drops
// the alpha channel without compositing.
func (p *Picture) Convert(mode Mode) (*Picture, error) {
	if mode == p.mode {
		return p.Clone(), nil
	}

	w, h := p.Width(), p.Height()
	switch mode {
	case ModeL:
		dst := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			src := p.rgba.Pix[y*p.rgba.Stride : y*p.rgba.Stride+4*w]
			row := dst.Pix[y*dst.Stride : y*dst.Stride+w]
			for x := range row {
				row[x] = luma(src[4*x], src[4*x+1], src[4*x+2])
			}
		}
		return NewGray(dst), nil
	case ModeRGB, ModeRGBA:
		var dst *image.NRGBA
		if p.mode == ModeL {
			dst = image.NewNRGBA(image.Rect(0, 0, w, h))
			for y := 0; y < h; y++ {
				src := p.gray.Pix[y*p.gray.Stride : y*p.gray.Stride+w]
				row := dst.Pix[y*dst.Stride : y*dst.Stride+4*w]
				for x, v := range src {
					row[4*x], row[4*x+1], row[4*x+2], row[4*x+3] = v, v, v, 0xff
				}
			}
		} else {
			dst = p.Clone().rgba
		}
		if mode == ModeRGB {
			return NewRGB(dst), nil
		}
		return NewRGBA(dst), nil
	}
	return nil, fmt.Errorf("%w: cannot convert %s to %s", ErrUnsupportedMode, p.mode, mode)
}
