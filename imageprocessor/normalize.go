package imageprocessor

import (
	"errors"
	"fmt"

	"trianglefinder/logging"
	"trianglefinder/types"
)

const (
	// NumRotations is the number of vertex bases tried per triangle
	NumRotations = 3

	DefaultFragmentWidth  = 51 // int(60 * 0.86)
	DefaultFragmentHeight = 60
)

// Fragment is a triangle's image region mapped into the canonical frame
type Fragment struct {
	ImageName string
	Image     types.ImageBuffer
	// Shape is the vertex order used to derive the transform
	Shape    [3]types.Keypoint
	Rotation int
}

// Normalizer maps triangles onto the fixed target triangle
type Normalizer struct {
	Resampler Resampler
	Width     int
	Height    int
}

// NewNormalizer creates a normalizer with the default fragment size
func NewNormalizer(resampler Resampler) *Normalizer {
	return &Normalizer{
		Resampler: resampler,
		Width:     DefaultFragmentWidth,
		Height:    DefaultFragmentHeight,
	}
}

// RotationShape returns the canonically wound vertex order for one rotation
func RotationShape(tri types.Triangle, rotation int) [3]types.Keypoint {
	return CanonicalWinding(tri.Rotated(rotation).Points)
}

// Normalize produces up to NumRotations fragments of Width x Height for tri.
// A rotation whose transform is singular is dropped; the others still run.
func (n *Normalizer) Normalize(imageName string, img types.ImageBuffer, tri types.Triangle) ([]Fragment, error) {
	if n.Resampler == nil {
		return nil, fmt.Errorf("normalizer has no resampler")
	}

	fragments := make([]Fragment, 0, NumRotations)
	for r := 0; r < NumRotations; r++ {
		shape := RotationShape(tri, r)

		m, err := TransformFor(shape, float64(n.Width), float64(n.Height))
		if errors.Is(err, ErrSingularTransform) {
			logging.DebugLog("Skipping rotation %d of triangle %v: %v", r, tri, err)
			continue
		}

		out, err := n.Resampler.Resample(img, m, n.Width, n.Height)
		if err != nil {
			return nil, fmt.Errorf("cannot resample rotation %d of %v: %w", r, tri, err)
		}

		fragments = append(fragments, Fragment{
			ImageName: imageName,
			Image:     out,
			Shape:     shape,
			Rotation:  r,
		})
	}

	return fragments, nil
}
