// Package imageprocessor turns (image, triangle) pairs into canonical,
// rotation and scale free fragments and derives bit fingerprints from them.
//
// The pixel level primitives (loading, affine resampling, hash bit
// generation, keypoint detection) sit behind small interfaces so the geometry
// can be exercised without an image processing backend.
package imageprocessor

import "trianglefinder/types"

// ImageLoader is the interface that all image loaders must implement
type ImageLoader interface {
	// CanLoad checks if the loader can handle the given file
	CanLoad(path string) bool

	// LoadImage loads and returns the image
	LoadImage(path string) (types.ImageBuffer, error)
}

// Resampler warps src through the affine map m into a w x h buffer
type Resampler interface {
	Resample(src types.ImageBuffer, m Affine, w, h int) (types.ImageBuffer, error)
}

// BitHasher computes a fixed width perceptual bit vector for an image
type BitHasher interface {
	ComputeBits(img types.ImageBuffer) ([]bool, error)
	// Bits is the width of every vector the hasher produces
	Bits() int
}

// Detector finds keypoints in an image
type Detector interface {
	Detect(img types.ImageBuffer) ([]types.Keypoint, error)
}
