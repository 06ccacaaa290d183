// Package triangles enumerates local reference triangles from detected keypoints.
package triangles

import (
	"context"

	"trianglefinder/logging"
	"trianglefinder/types"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultLowerDist = 50.0
	DefaultUpperDist = 400.0
	DefaultMinArea   = 1300.0
)

// Options controls candidate generation
type Options struct {
	LowerDist float64
	UpperDist float64
	MinArea   float64
	// Workers bounds the number of centers searched concurrently; <= 0 means one per center
	Workers int
	// Dedup removes triangles that describe the same point set
	Dedup bool
}

// DefaultOptions returns the distance band and area threshold used by the CLI
func DefaultOptions() Options {
	return Options{
		LowerDist: DefaultLowerDist,
		UpperDist: DefaultUpperDist,
		MinArea:   DefaultMinArea,
	}
}

func (o Options) inBand(d float64) bool {
	return d > o.LowerDist && d < o.UpperDist
}

// Build enumerates triangles whose three sides all lie strictly inside
// (LowerDist, UpperDist) and whose area exceeds MinArea.
//
// Keypoints before a center in the input order are treated as settled and
// never revisited, which removes most but not all duplicate triangles. Set
// Options.Dedup to get a strictly deduplicated result.
func Build(ctx context.Context, keypoints []types.Keypoint, opts Options) ([]types.Triangle, error) {
	if len(keypoints) < 3 {
		return nil, nil
	}

	// one slot per center keeps the output order independent of scheduling
	perCenter := make([][]types.Triangle, len(keypoints))

	group, ctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		group.SetLimit(opts.Workers)
	}

	for i := range keypoints {
		i := i
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			perCenter[i] = buildForCenter(i, keypoints, opts)
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	var result []types.Triangle
	for _, local := range perCenter {
		result = append(result, local...)
	}

	if opts.Dedup {
		before := len(result)
		result = Dedupe(result)
		logging.DebugLog("Triangle dedup removed %d of %d candidates", before-len(result), before)
	}

	return result, nil
}

// buildForCenter collects the triangles anchored on keypoints[center].
// keypoints[:center] are settled and take no further part.
func buildForCenter(center int, keypoints []types.Keypoint, opts Options) []types.Triangle {
	c := keypoints[center]
	settled := keypoints[:center]

	var result []types.Triangle
	var processed []types.Keypoint

	for _, neighbor := range keypoints {
		if containsPoint(settled, neighbor) || neighbor.Equal(c) {
			continue
		}

		if opts.inBand(neighbor.Distance(c)) {
			for _, third := range keypoints {
				if !opts.inBand(third.Distance(c)) || !opts.inBand(third.Distance(neighbor)) {
					continue
				}
				if containsPoint(settled, third) || containsPoint(processed, third) ||
					third.Equal(c) || third.Equal(neighbor) {
					continue
				}

				tri := types.NewTriangle(c, neighbor, third)
				if tri.Area() > opts.MinArea {
					result = append(result, tri)
				}
			}
		}
		processed = append(processed, neighbor)
	}

	return result
}

func containsPoint(list []types.Keypoint, kp types.Keypoint) bool {
	for _, p := range list {
		if p.Equal(kp) {
			return true
		}
	}
	return false
}

// Dedupe drops triangles whose point set was already seen, keeping first occurrences
func Dedupe(tris []types.Triangle) []types.Triangle {
	seen := make(map[string]struct{}, len(tris))
	out := tris[:0:0]
	for _, t := range tris {
		key := t.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}
