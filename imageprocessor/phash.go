package imageprocessor

import (
	"fmt"
	"image"
	"math"
	"sort"

	"trianglefinder/types"

	"github.com/corona10/goimagehash"
	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

const (
	hashSize      = 8
	highFreqScale = 4
	dctInputSize  = hashSize * highFreqScale
)

// DCTHasher is a pure Go perceptual hash: 32x32 grayscale DCT, the 8x8 low
// frequency block with the DC term zeroed, one bit per coefficient above the block mean.
type DCTHasher struct{}

// Bits implements BitHasher
func (DCTHasher) Bits() int { return hashSize * hashSize }

// ComputeBits implements BitHasher
func (DCTHasher) ComputeBits(img types.ImageBuffer) ([]bool, error) {
	src, err := ToImage(img)
	if err != nil {
		return nil, err
	}

	gray := image.NewGray(image.Rect(0, 0, dctInputSize, dctInputSize))
	draw.BiLinear.Scale(gray, gray.Bounds(), src, src.Bounds(), draw.Src, nil)

	pixels := make([]float64, dctInputSize*dctInputSize)
	for i, p := range gray.Pix {
		pixels[i] = float64(p)
	}

	lowFreq := lowFrequencyDCT(pixels, dctInputSize, hashSize)
	lowFreq[0] = 0

	var sum float64
	for _, v := range lowFreq {
		sum += v
	}
	mean := sum / float64(len(lowFreq))

	bits := make([]bool, len(lowFreq))
	for i, v := range lowFreq {
		bits[i] = v > mean
	}
	return bits, nil
}

// lowFrequencyDCT returns the top-left keep x keep block of the orthonormal
// 2D DCT-II of an n x n row-major matrix, row-major.
func lowFrequencyDCT(pixels []float64, n, keep int) []float64 {
	cosines := make([][]float64, keep)
	for u := 0; u < keep; u++ {
		cosines[u] = make([]float64, n)
		for x := 0; x < n; x++ {
			cosines[u][x] = math.Cos(math.Pi * float64(u) * (2*float64(x) + 1) / (2 * float64(n)))
		}
	}
	scale := func(u int) float64 {
		if u == 0 {
			return math.Sqrt(1 / float64(n))
		}
		return math.Sqrt(2 / float64(n))
	}

	// rows first: rowPass[y][v]
	rowPass := make([]float64, n*keep)
	for y := 0; y < n; y++ {
		for v := 0; v < keep; v++ {
			var s float64
			for x := 0; x < n; x++ {
				s += pixels[y*n+x] * cosines[v][x]
			}
			rowPass[y*keep+v] = s * scale(v)
		}
	}

	out := make([]float64, keep*keep)
	for u := 0; u < keep; u++ {
		for v := 0; v < keep; v++ {
			var s float64
			for y := 0; y < n; y++ {
				s += rowPass[y*keep+v] * cosines[u][y]
			}
			out[u*keep+v] = s * scale(u)
		}
	}
	return out
}

// GoImageHasher uses goimagehash's 64 bit perception hash
type GoImageHasher struct{}

// Bits implements BitHasher
func (GoImageHasher) Bits() int { return 64 }

// ComputeBits implements BitHasher
func (GoImageHasher) ComputeBits(img types.ImageBuffer) ([]bool, error) {
	src, err := ToImage(img)
	if err != nil {
		return nil, err
	}
	h, err := goimagehash.PerceptionHash(src)
	if err != nil {
		return nil, fmt.Errorf("cannot compute perception hash: %w", err)
	}
	return uint64ToBits(h.GetHash()), nil
}

func uint64ToBits(v uint64) []bool {
	bits := make([]bool, 64)
	for i := range bits {
		bits[i] = (v>>uint(63-i))&1 == 1
	}
	return bits
}

// GocvHasher computes a DCT based perceptual hash with OpenCV, thresholding
// the 8x8 low frequency block at its median.
type GocvHasher struct{}

// Bits implements BitHasher
func (GocvHasher) Bits() int { return hashSize * hashSize }

// ComputeBits implements BitHasher
func (GocvHasher) ComputeBits(buf types.ImageBuffer) ([]bool, error) {
	gray, err := grayMat(buf)
	if err != nil {
		return nil, err
	}
	defer gray.Close()
	if gray.Empty() {
		return nil, fmt.Errorf("cannot compute hash for empty image")
	}

	// Resize to 32x32 for DCT
	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(gray, &resized, image.Point{X: dctInputSize, Y: dctInputSize}, 0, 0, gocv.InterpolationLinear)

	// Convert to float for DCT
	floatImg := gocv.NewMat()
	defer floatImg.Close()
	resized.ConvertTo(&floatImg, gocv.MatTypeCV32F)

	dct := gocv.NewMat()
	defer dct.Close()
	gocv.DCT(floatImg, &dct, 0)
	if dct.Empty() {
		return nil, fmt.Errorf("DCT produced an empty matrix")
	}

	// Extract 8x8 low frequency components
	lowFreq := dct.Region(image.Rect(0, 0, hashSize, hashSize))
	defer lowFreq.Close()

	values := make([]float32, 0, hashSize*hashSize)
	for y := 0; y < lowFreq.Rows(); y++ {
		for x := 0; x < lowFreq.Cols(); x++ {
			values = append(values, lowFreq.GetFloatAt(y, x))
		}
	}

	median := calculateMedian(values)
	bits := make([]bool, len(values))
	for i, v := range values {
		bits[i] = v >= median
	}
	return bits, nil
}

// calculateMedian calculates the median value of a float32 array
func calculateMedian(values []float32) float32 {
	// Make a copy to avoid modifying the original slice
	valuesCopy := make([]float32, len(values))
	copy(valuesCopy, values)

	sort.Slice(valuesCopy, func(i, j int) bool {
		return valuesCopy[i] < valuesCopy[j]
	})

	length := len(valuesCopy)
	if length == 0 {
		return 0
	} else if length%2 == 0 {
		return (valuesCopy[length/2-1] + valuesCopy[length/2]) / 2
	}
	return valuesCopy[length/2]
}

// NewBitHasher returns the primitive registered under name
func NewBitHasher(name string) (BitHasher, error) {
	switch name {
	case "", "dct":
		return DCTHasher{}, nil
	case "goimagehash":
		return GoImageHasher{}, nil
	case "gocv":
		return GocvHasher{}, nil
	}
	return nil, fmt.Errorf("unknown hasher: %s", name)
}

// NewResampler returns the resampler registered under name
func NewResampler(name string) (Resampler, error) {
	switch name {
	case "", "draw":
		return NewDrawResampler(), nil
	case "gocv":
		return GocvResampler{}, nil
	}
	return nil, fmt.Errorf("unknown resampler: %s", name)
}
