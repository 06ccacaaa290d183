package imageprocessor

import (
	"bytes"
	"image"
	"strings"
	"testing"

	"trianglefinder/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadKeypointsJSON(t *testing.T) {
	in := `{"output": {"keypoints": [{"x": 10, "y": 20.5}, {"x": 3, "y": 4}]}}`
	kps, err := ReadKeypointsJSON(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, []types.Keypoint{{X: 10, Y: 20.5}, {X: 3, Y: 4}}, kps)

	_, err = ReadKeypointsJSON(strings.NewReader(`{"output":`))
	assert.Error(t, err)
}

func TestKeypointsJSONRoundTrip(t *testing.T) {
	kps := []types.Keypoint{{X: 1, Y: 2}, {X: 300, Y: 400}}

	var buf bytes.Buffer
	require.NoError(t, WriteKeypointsJSON(&buf, kps))
	got, err := ReadKeypointsJSON(&buf)
	require.NoError(t, err)
	assert.Equal(t, kps, got)

	buf.Reset()
	require.NoError(t, WriteKeypointsJSON(&buf, nil))
	assert.JSONEq(t, `{"output":{"keypoints":[]}}`, buf.String())
}

func TestPolygonCentroid(t *testing.T) {
	square := []image.Point{{10, 10}, {30, 10}, {30, 30}, {10, 30}}
	kp, ok := polygonCentroid(square)
	require.True(t, ok)
	assert.Equal(t, types.Keypoint{X: 20, Y: 20}, kp)

	// fractional centroids are truncated
	tri := []image.Point{{0, 0}, {10, 0}, {0, 10}}
	kp, ok = polygonCentroid(tri)
	require.True(t, ok)
	assert.Equal(t, types.Keypoint{X: 3, Y: 3}, kp)

	_, ok = polygonCentroid([]image.Point{{0, 0}, {5, 5}})
	assert.False(t, ok)
	_, ok = polygonCentroid([]image.Point{{0, 0}, {5, 5}, {10, 10}})
	assert.False(t, ok)
}

func TestFormats(t *testing.T) {
	assert.True(t, IsImageFile("a/b/C.JPG"))
	assert.True(t, IsImageFile("x.webp"))
	assert.False(t, IsImageFile("notes.txt"))
	assert.Equal(t, FormatTIFF, GetFileFormat("scan.tif"))
	assert.Contains(t, GetSupportedExtensions(), ".png")
}
