// Package fingerprint runs the per-triangle normalize and hash pipeline.
package fingerprint

import (
	"context"
	"fmt"
	"runtime"

	"trianglefinder/imageprocessor"
	"trianglefinder/logging"
	"trianglefinder/triangles"
	"trianglefinder/types"

	"golang.org/x/sync/errgroup"
)

// Pair links a fingerprint to the triangle it was taken from
type Pair struct {
	Triangle types.Triangle
	Hash     imageprocessor.FragmentHash
}

// Fingerprinter normalizes triangles and hashes the resulting fragments
type Fingerprinter struct {
	Normalizer *imageprocessor.Normalizer
	Hasher     *imageprocessor.Hasher
	Triangles  triangles.Options
	Workers    int
}

// New creates a fingerprinter with default triangle options
func New(normalizer *imageprocessor.Normalizer, hasher *imageprocessor.Hasher, workers int) *Fingerprinter {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	opts := triangles.DefaultOptions()
	opts.Workers = workers
	return &Fingerprinter{
		Normalizer: normalizer,
		Hasher:     hasher,
		Triangles:  opts,
		Workers:    workers,
	}
}

type slot struct {
	pair Pair
	ok   bool
}

// Fingerprint hashes every rotation of every triangle. Task i owns the output
// slots [i*NumRotations, (i+1)*NumRotations) so no locking is needed; slots of
// dropped rotations are compacted away afterwards.
func (f *Fingerprinter) Fingerprint(ctx context.Context, imageName string, img types.ImageBuffer, tris []types.Triangle) ([]Pair, error) {
	slots := make([]slot, len(tris)*imageprocessor.NumRotations)

	group, ctx := errgroup.WithContext(ctx)
	if f.Workers > 0 {
		group.SetLimit(f.Workers)
	}

	for i := range tris {
		i := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tri := tris[i]
			fragments, err := f.Normalizer.Normalize(imageName, img, tri)
			if err != nil {
				return err
			}
			for _, frag := range fragments {
				hash, err := f.Hasher.Hash(frag)
				if err != nil {
					return fmt.Errorf("cannot hash fragment of %v: %w", tri, err)
				}
				slots[i*imageprocessor.NumRotations+frag.Rotation] = slot{
					pair: Pair{Triangle: tri, Hash: hash},
					ok:   true,
				}
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	pairs := make([]Pair, 0, len(slots))
	for _, s := range slots {
		if s.ok {
			pairs = append(pairs, s.pair)
		}
	}
	return pairs, nil
}

// Image builds the triangles for keypoints and fingerprints them
func (f *Fingerprinter) Image(ctx context.Context, imageName string, img types.ImageBuffer, keypoints []types.Keypoint) ([]Pair, error) {
	tris, err := triangles.Build(ctx, keypoints, f.Triangles)
	if err != nil {
		return nil, err
	}
	logging.DebugLog("%s: %d keypoints, %d triangles", imageName, len(keypoints), len(tris))

	pairs, err := f.Fingerprint(ctx, imageName, img, tris)
	if err != nil {
		return nil, err
	}
	logging.LogImageProcessed(imageName, len(pairs), nil)
	return pairs, nil
}
