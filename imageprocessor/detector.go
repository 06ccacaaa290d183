package imageprocessor

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"trianglefinder/logging"
	"trianglefinder/types"

	"gocv.io/x/gocv"
)

// ContourDetector places a keypoint at the centroid of every sizeable blob
// of a blurred, thresholded grayscale image.
type ContourDetector struct {
	BlurSize       int
	Threshold      float32
	MinContourArea float64
}

// NewContourDetector returns a detector with the usual settings
func NewContourDetector() *ContourDetector {
	return &ContourDetector{
		BlurSize:       21,
		Threshold:      127,
		MinContourArea: 400,
	}
}

// Detect implements Detector
func (d *ContourDetector) Detect(buf types.ImageBuffer) ([]types.Keypoint, error) {
	gray, err := grayMat(buf)
	if err != nil {
		return nil, err
	}
	defer gray.Close()

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: d.BlurSize, Y: d.BlurSize}, 0, 0, gocv.BorderDefault)

	binary := gocv.NewMat()
	defer binary.Close()
	gocv.Threshold(blurred, &binary, d.Threshold, 255, gocv.ThresholdBinary)

	contours := gocv.FindContours(binary, gocv.RetrievalTree, gocv.ChainApproxSimple)
	defer contours.Close()

	var keypoints []types.Keypoint
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		if gocv.ContourArea(contour) <= d.MinContourArea {
			continue
		}
		if kp, ok := polygonCentroid(contour.ToPoints()); ok {
			keypoints = append(keypoints, kp)
		}
	}

	logging.DebugLog("Detected %d keypoints from %d contours", len(keypoints), contours.Size())
	return keypoints, nil
}

// polygonCentroid computes the area centroid of a closed polygon, truncated to whole pixels
func polygonCentroid(pts []image.Point) (types.Keypoint, bool) {
	if len(pts) < 3 {
		return types.Keypoint{}, false
	}

	var m00, m10, m01 float64
	for i := range pts {
		p, q := pts[i], pts[(i+1)%len(pts)]
		cross := float64(p.X*q.Y - q.X*p.Y)
		m00 += cross
		m10 += cross * float64(p.X+q.X)
		m01 += cross * float64(p.Y+q.Y)
	}
	if m00 == 0 {
		return types.Keypoint{}, false
	}

	// m00 carries the 1/2 area factor, the first moments 1/6
	cx := m10 / (3 * m00)
	cy := m01 / (3 * m00)
	return types.Keypoint{X: math.Trunc(cx), Y: math.Trunc(cy)}, true
}

type keypointsFile struct {
	Output struct {
		Keypoints []types.Keypoint `json:"keypoints"`
	} `json:"output"`
}

// ReadKeypointsJSON reads keypoints from {"output": {"keypoints": [{"x":..,"y":..}]}}
func ReadKeypointsJSON(r io.Reader) ([]types.Keypoint, error) {
	var f keypointsFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("cannot decode keypoints: %w", err)
	}
	return f.Output.Keypoints, nil
}

// ReadKeypointsFile reads a keypoints JSON file from disk
func ReadKeypointsFile(path string) ([]types.Keypoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadKeypointsJSON(f)
}

// WriteKeypointsJSON writes keypoints in the format read by ReadKeypointsJSON
func WriteKeypointsJSON(w io.Writer, keypoints []types.Keypoint) error {
	var f keypointsFile
	f.Output.Keypoints = keypoints
	if f.Output.Keypoints == nil {
		f.Output.Keypoints = []types.Keypoint{}
	}
	return json.NewEncoder(w).Encode(f)
}
