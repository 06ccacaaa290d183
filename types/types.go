package types

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Keypoint is a 2D feature location reported by a detector
type Keypoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Equal reports exact coordinate equality
func (k Keypoint) Equal(other Keypoint) bool {
	return k.X == other.X && k.Y == other.Y
}

// Sub returns the vector k - other
func (k Keypoint) Sub(other Keypoint) Keypoint {
	return Keypoint{X: k.X - other.X, Y: k.Y - other.Y}
}

// Distance returns the euclidean distance between two keypoints
func (k Keypoint) Distance(other Keypoint) float64 {
	return math.Hypot(k.X-other.X, k.Y-other.Y)
}

// Cross returns the z component of the cross product of two vectors
func Cross(a, b Keypoint) float64 {
	return a.X*b.Y - a.Y*b.X
}

func (k Keypoint) String() string {
	return fmt.Sprintf("kp[%g, %g]", k.X, k.Y)
}

// Triangle is an unordered set of three distinct keypoints.
// Points keeps the order the triangle was built in; that order matters only
// for geometric processing, never for identity.
type Triangle struct {
	Points [3]Keypoint
}

// NewTriangle creates a triangle from three keypoints
func NewTriangle(a, b, c Keypoint) Triangle {
	return Triangle{Points: [3]Keypoint{a, b, c}}
}

// Area returns the unsigned area of the triangle
func (t Triangle) Area() float64 {
	p := t.Points
	return math.Abs(p[0].X*(p[1].Y-p[2].Y)+p[1].X*(p[2].Y-p[0].Y)+p[2].X*(p[0].Y-p[1].Y)) / 2
}

// Contains reports whether kp is one of the triangle's vertices
func (t Triangle) Contains(kp Keypoint) bool {
	for _, p := range t.Points {
		if p.Equal(kp) {
			return true
		}
	}
	return false
}

// Equal compares two triangles as point sets, ignoring vertex order
func (t Triangle) Equal(other Triangle) bool {
	for _, p := range t.Points {
		if !other.Contains(p) {
			return false
		}
	}
	for _, p := range other.Points {
		if !t.Contains(p) {
			return false
		}
	}
	return true
}

// Key returns an order independent identity key for the triangle
func (t Triangle) Key() string {
	pts := t.Points
	sort.Slice(pts[:], func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	parts := make([]string, 0, 6)
	for _, p := range pts {
		parts = append(parts,
			strconv.FormatFloat(p.X, 'g', -1, 64),
			strconv.FormatFloat(p.Y, 'g', -1, 64))
	}
	return strings.Join(parts, ",")
}

// Rotated returns a copy whose vertex list is cyclically shifted left by shift
func (t Triangle) Rotated(shift int) Triangle {
	var out Triangle
	for i := 0; i < 3; i++ {
		out.Points[i] = t.Points[(i+shift)%3]
	}
	return out
}

func (t Triangle) String() string {
	return fmt.Sprintf("%s, %s, %s", t.Points[0], t.Points[1], t.Points[2])
}

// FingerprintRecord is the value stored under a fingerprint key in the index
type FingerprintRecord struct {
	ImageName string      `json:"imageName"`
	Triangle  [3]Keypoint `json:"triangle"`
}

// MatchAggregate counts matched fingerprint occurrences per image name
type MatchAggregate map[string]int

// ImageMatch is one row of a MatchAggregate
type ImageMatch struct {
	ImageName string
	Count     int
}

// Total returns the sum of all counts
func (m MatchAggregate) Total() int {
	total := 0
	for _, n := range m {
		total += n
	}
	return total
}

// Sorted returns the aggregate ordered by count (highest first), then name
func (m MatchAggregate) Sorted() []ImageMatch {
	matches := make([]ImageMatch, 0, len(m))
	for name, n := range m {
		matches = append(matches, ImageMatch{ImageName: name, Count: n})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Count != matches[j].Count {
			return matches[i].Count > matches[j].Count
		}
		return matches[i].ImageName < matches[j].ImageName
	})
	return matches
}

// ImageBuffer is an opaque pixel handle: row-major, interleaved channels
type ImageBuffer struct {
	Width    int
	Height   int
	Channels int
	Pix      []uint8
}

// NewImageBuffer allocates a zeroed buffer
func NewImageBuffer(width, height, channels int) ImageBuffer {
	return ImageBuffer{
		Width:    width,
		Height:   height,
		Channels: channels,
		Pix:      make([]uint8, width*height*channels),
	}
}

// Empty reports whether the buffer holds no pixels
func (b ImageBuffer) Empty() bool {
	return b.Width <= 0 || b.Height <= 0 || len(b.Pix) == 0
}

// Validate checks that the pixel slice matches the declared geometry
func (b ImageBuffer) Validate() error {
	switch b.Channels {
	case 1, 3, 4:
	default:
		return fmt.Errorf("unsupported channel count: %d", b.Channels)
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("pixel data length %d does not match %dx%dx%d",
			len(b.Pix), b.Width, b.Height, b.Channels)
	}
	return nil
}
