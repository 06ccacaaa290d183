package imageprocessor

import (
	"errors"
	"math"
	"testing"

	"trianglefinder/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingResampler struct {
	transforms []Affine
	err        error
}

func (r *recordingResampler) Resample(src types.ImageBuffer, m Affine, w, h int) (types.ImageBuffer, error) {
	if r.err != nil {
		return types.ImageBuffer{}, r.err
	}
	r.transforms = append(r.transforms, m)
	return types.NewImageBuffer(w, h, src.Channels), nil
}

// patternImage fills a gray image with p(x-dx, y-dy), zero outside the pattern
func patternImage(w, h, dx, dy int) types.ImageBuffer {
	buf := types.NewImageBuffer(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			px, py := x-dx, y-dy
			if px < 0 || py < 0 || px >= 200 || py >= 200 {
				continue
			}
			buf.Pix[y*w+x] = uint8((px*7 + py*3 + (px*py)/5) % 256)
		}
	}
	return buf
}

// smoothImage samples a smooth gray pattern at (x/scale, y/scale)
func smoothImage(w, h int, scale float64) types.ImageBuffer {
	buf := types.NewImageBuffer(w, h, 1)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fx, fy := float64(x)/scale, float64(y)/scale
			v := 128 + 55*math.Sin(fx/9+0.3) + 45*math.Cos(fy/7) + 20*math.Sin((fx+2*fy)/15)
			buf.Pix[y*w+x] = uint8(math.Round(v))
		}
	}
	return buf
}

// rotate90 turns a gray buffer a quarter turn: (x, y) -> (h-1-y, x)
func rotate90(b types.ImageBuffer) types.ImageBuffer {
	out := types.NewImageBuffer(b.Height, b.Width, 1)
	for y := 0; y < b.Height; y++ {
		for x := 0; x < b.Width; x++ {
			out.Pix[x*out.Width+(b.Height-1-y)] = b.Pix[y*b.Width+x]
		}
	}
	return out
}

func rotateKeypoint(kp types.Keypoint, height int) types.Keypoint {
	return types.Keypoint{X: float64(height-1) - kp.Y, Y: kp.X}
}

func scaleKeypoint(kp types.Keypoint, s float64) types.Keypoint {
	return types.Keypoint{X: kp.X * s, Y: kp.Y * s}
}

func hashHexes(t *testing.T, frags []Fragment) []string {
	t.Helper()
	hasher := NewHasher(DCTHasher{})
	hexes := make([]string, len(frags))
	for i, frag := range frags {
		h, err := hasher.Hash(frag)
		require.NoError(t, err)
		hexes[i] = h.Hex()
	}
	return hexes
}

func TestNormalizeProducesThreeFragments(t *testing.T) {
	res := &recordingResampler{}
	n := NewNormalizer(res)

	tri := types.NewTriangle(types.Keypoint{X: 10, Y: 10}, types.Keypoint{X: 120, Y: 30}, types.Keypoint{X: 60, Y: 110})
	frags, err := n.Normalize("img.png", types.NewImageBuffer(200, 200, 3), tri)
	require.NoError(t, err)
	require.Len(t, frags, NumRotations)
	require.Len(t, res.transforms, NumRotations)

	for r, frag := range frags {
		assert.Equal(t, "img.png", frag.ImageName)
		assert.Equal(t, r, frag.Rotation)
		assert.Equal(t, DefaultFragmentWidth, frag.Image.Width)
		assert.Equal(t, DefaultFragmentHeight, frag.Image.Height)
		assert.Equal(t, RotationShape(tri, r), frag.Shape)
		assert.True(t, tri.Equal(types.Triangle{Points: frag.Shape}))
	}

	// each rotation starts from a different vertex
	assert.NotEqual(t, frags[0].Shape[0], frags[1].Shape[0])
	assert.NotEqual(t, frags[1].Shape[0], frags[2].Shape[0])
}

func TestNormalizeDropsSingularRotations(t *testing.T) {
	res := &recordingResampler{}
	n := NewNormalizer(res)

	collinear := types.NewTriangle(types.Keypoint{X: 0, Y: 0}, types.Keypoint{X: 50, Y: 50}, types.Keypoint{X: 100, Y: 100})
	frags, err := n.Normalize("img.png", types.NewImageBuffer(10, 10, 1), collinear)
	require.NoError(t, err)
	assert.Empty(t, frags)
	assert.Empty(t, res.transforms)
}

func TestNormalizeResampleError(t *testing.T) {
	boom := errors.New("boom")
	n := NewNormalizer(&recordingResampler{err: boom})

	tri := types.NewTriangle(types.Keypoint{X: 10, Y: 10}, types.Keypoint{X: 120, Y: 30}, types.Keypoint{X: 60, Y: 110})
	_, err := n.Normalize("img.png", types.NewImageBuffer(200, 200, 1), tri)
	assert.ErrorIs(t, err, boom)
}

func TestNormalizeIsTranslationInvariant(t *testing.T) {
	n := NewNormalizer(NewDrawResampler())

	tri := types.NewTriangle(types.Keypoint{X: 90, Y: 90}, types.Keypoint{X: 112, Y: 95}, types.Keypoint{X: 100, Y: 118})
	shifted := types.NewTriangle(
		types.Keypoint{X: 110, Y: 100}, types.Keypoint{X: 132, Y: 105}, types.Keypoint{X: 120, Y: 128})

	a, err := n.Normalize("a", patternImage(200, 200, 0, 0), tri)
	require.NoError(t, err)
	b, err := n.Normalize("b", patternImage(240, 220, 20, 10), shifted)
	require.NoError(t, err)
	require.Len(t, a, NumRotations)
	require.Len(t, b, NumRotations)

	for r := range a {
		assertPixelsClose(t, a[r].Image, b[r].Image)
	}
}

func TestNormalizeIsRotationInvariant(t *testing.T) {
	n := NewNormalizer(NewDrawResampler())

	img := smoothImage(300, 280, 1)
	a, b, c := types.Keypoint{X: 120, Y: 110}, types.Keypoint{X: 185, Y: 125}, types.Keypoint{X: 140, Y: 180}
	tri := types.NewTriangle(a, b, c)
	rotated := types.NewTriangle(rotateKeypoint(a, img.Height), rotateKeypoint(b, img.Height), rotateKeypoint(c, img.Height))

	want, err := n.Normalize("a", img, tri)
	require.NoError(t, err)
	got, err := n.Normalize("b", rotate90(img), rotated)
	require.NoError(t, err)
	require.Len(t, want, NumRotations)
	require.Len(t, got, NumRotations)

	// a quarter turn keeps the winding, so fragments line up per rotation
	for r := range want {
		assertPixelsClose(t, want[r].Image, got[r].Image)
	}
	assert.Equal(t, hashHexes(t, want), hashHexes(t, got))
}

func TestNormalizeIsScaleInvariant(t *testing.T) {
	n := NewNormalizer(NewDrawResampler())

	a, b, c := types.Keypoint{X: 120, Y: 110}, types.Keypoint{X: 185, Y: 125}, types.Keypoint{X: 140, Y: 180}
	tri := types.NewTriangle(a, b, c)
	doubled := types.NewTriangle(scaleKeypoint(a, 2), scaleKeypoint(b, 2), scaleKeypoint(c, 2))

	want, err := n.Normalize("a", smoothImage(300, 280, 1), tri)
	require.NoError(t, err)
	got, err := n.Normalize("b", smoothImage(600, 560, 2), doubled)
	require.NoError(t, err)
	require.Len(t, want, NumRotations)
	require.Len(t, got, NumRotations)

	hasher := NewHasher(DCTHasher{})
	for r := range want {
		assertPixelsWithin(t, want[r].Image, got[r].Image, 3)

		hw, err := hasher.Hash(want[r])
		require.NoError(t, err)
		hg, err := hasher.Hash(got[r])
		require.NoError(t, err)
		dist, err := HammingDistance(hw, hg)
		require.NoError(t, err)
		assert.LessOrEqual(t, dist, 3, "rotation %d: %s vs %s", r, hw.Hex(), hg.Hex())
	}
}

func assertPixelsClose(t *testing.T, want, got types.ImageBuffer) {
	t.Helper()
	assertPixelsWithin(t, want, got, 1)
}

func assertPixelsWithin(t *testing.T, want, got types.ImageBuffer, tolerance int) {
	t.Helper()
	require.Equal(t, want.Width, got.Width)
	require.Equal(t, want.Height, got.Height)
	require.Equal(t, len(want.Pix), len(got.Pix))
	for i := range want.Pix {
		diff := int(want.Pix[i]) - int(got.Pix[i])
		if diff < -tolerance || diff > tolerance {
			t.Fatalf("pixel %d differs: %d vs %d", i, want.Pix[i], got.Pix[i])
		}
	}
}

func TestDrawResamplerIdentity(t *testing.T) {
	src := patternImage(40, 30, 0, 0)
	out, err := NewDrawResampler().Resample(src, Affine{1, 0, 0, 0, 1, 0}, 40, 30)
	require.NoError(t, err)
	assertPixelsClose(t, src, out)
}

func TestDrawResamplerRotatesAboutPixelCentres(t *testing.T) {
	src := patternImage(40, 30, 0, 0)
	// quarter turn (x, y) -> (29-y, x) in pixel centre coordinates
	m := Affine{0, -1, 29, 1, 0, 0}

	out, err := NewDrawResampler().Resample(src, m, 30, 40)
	require.NoError(t, err)
	assert.Equal(t, rotate90(src).Pix, out.Pix)
}

func TestDrawResamplerKeepsChannels(t *testing.T) {
	src := types.NewImageBuffer(20, 20, 3)
	for i := range src.Pix {
		src.Pix[i] = 200
	}
	out, err := NewDrawResampler().Resample(src, Affine{0.5, 0, 0, 0, 0.5, 0}, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, out.Channels)
	assert.InDelta(t, 200, int(out.Pix[0]), 1)
	assert.InDelta(t, 200, int(out.Pix[len(out.Pix)/2]), 1)

	_, err = NewDrawResampler().Resample(src, Affine{1, 0, 0, 0, 1, 0}, 0, 10)
	assert.Error(t, err)
}
