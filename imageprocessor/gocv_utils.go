package imageprocessor

import (
	"fmt"
	"image"
	"image/color"

	"trianglefinder/types"

	"gocv.io/x/gocv"
)

// GocvResampler warps images with OpenCV's warpAffine
type GocvResampler struct{}

// Resample maps src into a w x h buffer with bilinear interpolation and a black border
func (GocvResampler) Resample(src types.ImageBuffer, m Affine, w, h int) (types.ImageBuffer, error) {
	mat, err := MatFromBuffer(src)
	if err != nil {
		return types.ImageBuffer{}, err
	}
	defer mat.Close()

	transformMat := gocv.NewMatWithSize(2, 3, gocv.MatTypeCV64F)
	defer transformMat.Close()
	for i, v := range m {
		transformMat.SetDoubleAt(i/3, i%3, v)
	}

	dst := gocv.NewMat()
	defer dst.Close()
	gocv.WarpAffineWithParams(mat, &dst, transformMat, image.Point{X: w, Y: h},
		gocv.InterpolationLinear, gocv.BorderConstant, color.RGBA{})

	if dst.Empty() {
		return types.ImageBuffer{}, fmt.Errorf("warpAffine produced an empty image")
	}
	return BufferFromMat(dst)
}

// MatFromBuffer copies a buffer into a new gocv.Mat; the caller must Close it
func MatFromBuffer(b types.ImageBuffer) (gocv.Mat, error) {
	if err := b.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	var matType gocv.MatType
	switch b.Channels {
	case 1:
		matType = gocv.MatTypeCV8UC1
	case 3:
		matType = gocv.MatTypeCV8UC3
	default:
		matType = gocv.MatTypeCV8UC4
	}

	// NewMatFromBytes borrows the slice, so take an owned copy
	borrowed, err := gocv.NewMatFromBytes(b.Height, b.Width, matType, b.Pix)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer borrowed.Close()
	return borrowed.Clone(), nil
}

// BufferFromMat copies an 8 bit Mat into a buffer
func BufferFromMat(m gocv.Mat) (types.ImageBuffer, error) {
	if m.Empty() {
		return types.ImageBuffer{}, fmt.Errorf("cannot convert empty mat")
	}
	data := m.ToBytes()
	buf := types.ImageBuffer{
		Width:    m.Cols(),
		Height:   m.Rows(),
		Channels: m.Channels(),
		Pix:      make([]uint8, len(data)),
	}
	copy(buf.Pix, data)
	return buf, buf.Validate()
}

// grayMat converts a buffer to a single channel Mat; the caller must Close it
func grayMat(b types.ImageBuffer) (gocv.Mat, error) {
	mat, err := MatFromBuffer(b)
	if err != nil {
		return mat, err
	}
	if b.Channels == 1 {
		return mat, nil
	}
	defer mat.Close()

	gray := gocv.NewMat()
	code := gocv.ColorRGBToGray
	if b.Channels == 4 {
		code = gocv.ColorRGBAToGray
	}
	gocv.CvtColor(mat, &gray, code)
	return gray, nil
}
