package transform

import (
	"image"
	"image/color"

	"imgedit-backend/internal/model"

	"github.com/nfnt/resize"
)

// scale stretches p to exactly width x height using bicubic interpolation.
func scale(p *Picture, s model.ScaleImage) *Picture {
	if p.Width() == s.Width && p.Height() == s.Height {
		return p.Clone()
	}

	resized := resize.Resize(uint(s.Width), uint(s.Height), p.Image(), resize.Bicubic)
	switch p.mode {
	case ModeL:
		if g, ok := resized.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
			return NewGray(g)
		}
		return FromImage(resized)
	case ModeRGB:
		return NewRGB(toNRGBA(resized))
	default:
		if n, ok := resized.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
			return NewRGBA(n)
		}
		return NewRGBA(toNRGBA(resized))
	}
}

// crop cuts the box (x, y, x+w, y+h). Parts of the box outside p are left
// zero: black, or transparent black for RGBA.
func crop(p *Picture, c model.CropImage) *Picture {
	dst := p.blank(c.Width, c.Height)
	srcPix, srcStride, bpp := p.pix()
	dstPix, dstStride, _ := dst.pix()

	x0, x1 := max(c.X, 0), min(c.X+c.Width, p.Width())
	if x0 >= x1 {
		return dst
	}
	for y := 0; y < c.Height; y++ {
		sy := c.Y + y
		if sy < 0 || sy >= p.Height() {
			continue
		}
		from := srcPix[sy*srcStride+x0*bpp : sy*srcStride+x1*bpp]
		copy(dstPix[y*dstStride+(x0-c.X)*bpp:], from)
	}
	return dst
}

// flatten composites p over an opaque canvas of bg, using p's alpha as the
// mask. The result is RGB.
func flatten(p *Picture, bg color.NRGBA) (*Picture, error) {
	src, err := p.Convert(ModeRGBA)
	if err != nil {
		return nil, err
	}
	pix := src.rgba.Pix
	back := [3]uint32{uint32(bg.R), uint32(bg.G), uint32(bg.B)}
	for i := 0; i < len(pix); i += 4 {
		a := uint32(pix[i+3])
		for c := 0; c < 3; c++ {
			tmp := a*uint32(pix[i+c]) + (255-a)*back[c] + 128
			pix[i+c] = uint8((tmp + (tmp >> 8)) >> 8)
		}
	}
	return NewRGB(src.rgba), nil
}

// thresholdTransparency makes every pixel whose channel sum exceeds
// threshold*3 fully transparent white. Other pixels are kept as they are.
func thresholdTransparency(p *Picture, threshold int) (*Picture, error) {
	out, err := p.Convert(ModeRGBA)
	if err != nil {
		return nil, err
	}
	limit := threshold * 3
	pix := out.rgba.Pix
	for i := 0; i < len(pix); i += 4 {
		if int(pix[i])+int(pix[i+1])+int(pix[i+2]) > limit {
			pix[i], pix[i+1], pix[i+2], pix[i+3] = 0xff, 0xff, 0xff, 0
		}
	}
	return out, nil
}

func clip8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(v)
}

// blendColor moves every color channel from base towards it by factor:
// base + factor*(v-base). Alpha is untouched.
func blendColor(p *Picture, base, factor float64) *Picture {
	out := p.Clone()
	pix, _, bpp := out.pix()
	for i := 0; i < len(pix); i += bpp {
		channels := bpp
		if bpp == 4 {
			channels = 3
		}
		for c := 0; c < channels; c++ {
			pix[i+c] = clip8(base + factor*(float64(pix[i+c])-base))
		}
	}
	return out
}

func brightness(p *Picture, factor float64) *Picture {
	return blendColor(p, 0, factor)
}

func contrast(p *Picture, factor float64) (*Picture, error) {
	gray, err := p.Convert(ModeL)
	if err != nil {
		return nil, err
	}
	var sum uint64
	for _, v := range gray.gray.Pix {
		sum += uint64(v)
	}
	mean := 0.0
	if n := len(gray.gray.Pix); n > 0 {
		mean = float64(int(float64(sum)/float64(n) + 0.5))
	}
	return blendColor(p, mean, factor), nil
}
