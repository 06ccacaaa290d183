package imageprocessor

import (
	"errors"
	"fmt"
	"math"

	"trianglefinder/types"

	"gonum.org/v1/gonum/mat"
)

// ErrSingularTransform is returned when a shape's edge vectors are (nearly) collinear
var ErrSingularTransform = errors.New("singular transformation matrix")

// singularEpsilon is the smallest edge determinant accepted for inversion
const singularEpsilon = 1e-9

// Affine is a 2x3 row-major affine matrix: x' = A[0]x + A[1]y + A[2], y' = A[3]x + A[4]y + A[5]
type Affine [6]float64

// Apply maps a point through the transform
func (a Affine) Apply(kp types.Keypoint) types.Keypoint {
	return types.Keypoint{
		X: a[0]*kp.X + a[1]*kp.Y + a[2],
		Y: a[3]*kp.X + a[4]*kp.Y + a[5],
	}
}

// TargetTriangle is the fixed triangle every shape is mapped onto
func TargetTriangle(width, height float64) [3]types.Keypoint {
	return [3]types.Keypoint{
		{X: 0, Y: 0},
		{X: 0.5 * width, Y: height},
		{X: width, Y: 0},
	}
}

// CanonicalWinding orders p1 and p2 so the shape winds the same way as
// TargetTriangle, i.e. cross(p1-p0, p2-p0) is not positive.
func CanonicalWinding(shape [3]types.Keypoint) [3]types.Keypoint {
	e1 := shape[1].Sub(shape[0])
	e2 := shape[2].Sub(shape[0])
	if types.Cross(e1, e2) > 0 {
		shape[1], shape[2] = shape[2], shape[1]
	}
	return shape
}

// TransformFor derives the affine map taking shape[i] onto the target
// triangle's vertex i for a width x height output.
func TransformFor(shape [3]types.Keypoint, width, height float64) (Affine, error) {
	target := TargetTriangle(width, height)

	p0 := shape[0]
	e1 := shape[1].Sub(p0)
	e2 := shape[2].Sub(p0)

	edges := mat.NewDense(2, 2, []float64{
		e1.X, e2.X,
		e1.Y, e2.Y,
	})
	if det := mat.Det(edges); math.Abs(det) < singularEpsilon || math.IsNaN(det) {
		return Affine{}, fmt.Errorf("%w: det=%g for %v", ErrSingularTransform, det, shape)
	}

	var inv mat.Dense
	if err := inv.Inverse(edges); err != nil {
		return Affine{}, fmt.Errorf("%w: %v", ErrSingularTransform, err)
	}

	targetEdges := mat.NewDense(2, 2, []float64{
		target[1].X, target[2].X,
		target[1].Y, target[2].Y,
	})

	var linear mat.Dense
	linear.Mul(targetEdges, &inv)

	a, b := linear.At(0, 0), linear.At(0, 1)
	c, d := linear.At(1, 0), linear.At(1, 1)

	// translation of -p0 folded into the last column
	return Affine{
		a, b, -(a*p0.X + b*p0.Y),
		c, d, -(c*p0.X + d*p0.Y),
	}, nil
}
