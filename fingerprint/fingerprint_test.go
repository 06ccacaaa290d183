package fingerprint

import (
	"context"
	"errors"
	"testing"

	"trianglefinder/imageprocessor"
	"trianglefinder/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type blankResampler struct{}

func (blankResampler) Resample(src types.ImageBuffer, _ imageprocessor.Affine, w, h int) (types.ImageBuffer, error) {
	return types.NewImageBuffer(w, h, src.Channels), nil
}

type constBits struct{ err error }

func (c constBits) ComputeBits(types.ImageBuffer) ([]bool, error) {
	if c.err != nil {
		return nil, c.err
	}
	return []bool{true, false, true, false, true, false, true, false}, nil
}

func (constBits) Bits() int { return 8 }

func newTestFingerprinter(workers int, bits imageprocessor.BitHasher) *Fingerprinter {
	return New(imageprocessor.NewNormalizer(blankResampler{}), imageprocessor.NewHasher(bits), workers)
}

func TestFingerprintOrderAndCount(t *testing.T) {
	tris := []types.Triangle{
		types.NewTriangle(types.Keypoint{X: 0, Y: 0}, types.Keypoint{X: 100, Y: 0}, types.Keypoint{X: 50, Y: 90}),
		// collinear: every rotation is singular
		types.NewTriangle(types.Keypoint{X: 0, Y: 0}, types.Keypoint{X: 10, Y: 10}, types.Keypoint{X: 20, Y: 20}),
		types.NewTriangle(types.Keypoint{X: 200, Y: 200}, types.Keypoint{X: 260, Y: 230}, types.Keypoint{X: 210, Y: 300}),
	}

	for _, workers := range []int{1, 4} {
		fp := newTestFingerprinter(workers, constBits{})
		pairs, err := fp.Fingerprint(context.Background(), "img", types.NewImageBuffer(400, 400, 1), tris)
		require.NoError(t, err)
		require.Len(t, pairs, 2*imageprocessor.NumRotations)

		for r := 0; r < imageprocessor.NumRotations; r++ {
			first := pairs[r]
			second := pairs[imageprocessor.NumRotations+r]

			assert.Equal(t, tris[0], first.Triangle)
			assert.Equal(t, imageprocessor.RotationShape(tris[0], r), first.Hash.Shape)
			assert.Equal(t, tris[2], second.Triangle)
			assert.Equal(t, imageprocessor.RotationShape(tris[2], r), second.Hash.Shape)
			assert.Equal(t, "aa", first.Hash.Hex())
		}
	}
}

func TestFingerprintEmpty(t *testing.T) {
	fp := newTestFingerprinter(2, constBits{})
	pairs, err := fp.Fingerprint(context.Background(), "img", types.NewImageBuffer(10, 10, 1), nil)
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestFingerprintHashError(t *testing.T) {
	boom := errors.New("boom")
	fp := newTestFingerprinter(2, constBits{err: boom})

	tris := []types.Triangle{
		types.NewTriangle(types.Keypoint{X: 0, Y: 0}, types.Keypoint{X: 100, Y: 0}, types.Keypoint{X: 50, Y: 90}),
	}
	_, err := fp.Fingerprint(context.Background(), "img", types.NewImageBuffer(200, 200, 1), tris)
	assert.ErrorIs(t, err, boom)
}

func TestImageBuildsTriangles(t *testing.T) {
	fp := newTestFingerprinter(0, constBits{})
	assert.Greater(t, fp.Workers, 0)

	kps := []types.Keypoint{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 90}}
	pairs, err := fp.Image(context.Background(), "img", types.NewImageBuffer(200, 200, 1), kps)
	require.NoError(t, err)
	assert.Len(t, pairs, imageprocessor.NumRotations)

	pairs, err = fp.Image(context.Background(), "img", types.NewImageBuffer(200, 200, 1), kps[:2])
	require.NoError(t, err)
	assert.Empty(t, pairs)
}
