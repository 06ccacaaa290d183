package imageprocessor

import (
	"fmt"
	"image"
	"image/color"

	"trianglefinder/types"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// DrawResampler warps images in pure Go using golang.org/x/image/draw
type DrawResampler struct {
	Interpolator draw.Interpolator
}

// NewDrawResampler creates a bilinear resampler
func NewDrawResampler() *DrawResampler {
	return &DrawResampler{Interpolator: draw.BiLinear}
}

// Resample maps src into a w x h buffer. Pixels outside the source stay black.
func (r *DrawResampler) Resample(src types.ImageBuffer, m Affine, w, h int) (types.ImageBuffer, error) {
	if w <= 0 || h <= 0 {
		return types.ImageBuffer{}, fmt.Errorf("invalid output size %dx%d", w, h)
	}
	srcImg, err := ToImage(src)
	if err != nil {
		return types.ImageBuffer{}, err
	}

	interp := r.Interpolator
	if interp == nil {
		interp = draw.BiLinear
	}

	var dst draw.Image
	if src.Channels == 1 {
		dst = image.NewGray(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	}

	interp.Transform(dst, pixelCenterAffine(m), srcImg, srcImg.Bounds(), draw.Src, nil)

	return FromImage(dst, src.Channels), nil
}

// pixelCenterAffine converts m, which treats integer coordinates as pixel
// centres (as warpAffine does), to the x/image/draw convention where pixel
// centres sit at +0.5: T(+0.5) * m * T(-0.5).
func pixelCenterAffine(m Affine) f64.Aff3 {
	return f64.Aff3{
		m[0], m[1], m[2] + 0.5 - 0.5*(m[0]+m[1]),
		m[3], m[4], m[5] + 0.5 - 0.5*(m[3]+m[4]),
	}
}

// ToImage wraps a buffer as an image.Image
func ToImage(b types.ImageBuffer) (image.Image, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	rect := image.Rect(0, 0, b.Width, b.Height)

	switch b.Channels {
	case 1:
		return &image.Gray{Pix: b.Pix, Stride: b.Width, Rect: rect}, nil
	case 4:
		return &image.NRGBA{Pix: b.Pix, Stride: b.Width * 4, Rect: rect}, nil
	}

	rgba := image.NewRGBA(rect)
	for i, j := 0, 0; i < len(b.Pix); i, j = i+3, j+4 {
		rgba.Pix[j] = b.Pix[i]
		rgba.Pix[j+1] = b.Pix[i+1]
		rgba.Pix[j+2] = b.Pix[i+2]
		rgba.Pix[j+3] = 0xff
	}
	return rgba, nil
}

// FromImage copies an image into a buffer with the requested channel count (1, 3 or 4)
func FromImage(img image.Image, channels int) types.ImageBuffer {
	bounds := img.Bounds()
	out := types.NewImageBuffer(bounds.Dx(), bounds.Dy(), channels)

	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			switch channels {
			case 1:
				out.Pix[idx] = color.GrayModel.Convert(c).(color.Gray).Y
			case 3:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				out.Pix[idx], out.Pix[idx+1], out.Pix[idx+2] = n.R, n.G, n.B
			default:
				n := color.NRGBAModel.Convert(c).(color.NRGBA)
				out.Pix[idx], out.Pix[idx+1], out.Pix[idx+2], out.Pix[idx+3] = n.R, n.G, n.B, n.A
			}
			idx += channels
		}
	}
	return out
}

// ToGray converts a buffer to a single channel buffer
func ToGray(b types.ImageBuffer) (types.ImageBuffer, error) {
	if b.Channels == 1 {
		return b, b.Validate()
	}
	img, err := ToImage(b)
	if err != nil {
		return types.ImageBuffer{}, err
	}
	return FromImage(img, 1), nil
}
