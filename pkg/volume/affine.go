package volume

import (
	"gonum.org/v1/gonum/mat"
)

// Identity returns a 4x4 identity affine (1 mm isotropic voxels at the origin).
func Identity() *mat.Dense {
	a := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		a.Set(i, i, 1)
	}
	return a
}

// Scaling returns an affine with the given voxel spacing in mm along each axis
// and the given origin.
func Scaling(spacing, origin [3]float64) *mat.Dense {
	a := Identity()
	for i := 0; i < 3; i++ {
		a.Set(i, i, spacing[i])
		a.Set(i, 3, origin[i])
	}
	return a
}

// VoxelToWorld maps voxel indices to physical coordinates using affine.
func VoxelToWorld(affine mat.Matrix, i, j, k int) [3]float64 {
	v := mat.NewVecDense(4, []float64{float64(i), float64(j), float64(k), 1})
	var w mat.VecDense
	w.MulVec(affine, v)
	return [3]float64{w.AtVec(0), w.AtVec(1), w.AtVec(2)}
}

// SameAffine reports whether a and b are exactly equal 4x4 affines.
func SameAffine(a, b mat.Matrix) bool {
	if isNil(a) || isNil(b) {
		return isNil(a) && isNil(b)
	}
	return mat.Equal(a, b)
}

// normalizeAffine copies affine, or returns the identity for nil.
func normalizeAffine(affine mat.Matrix) (*mat.Dense, error) {
	if isNil(affine) {
		return Identity(), nil
	}
	r, c := affine.Dims()
	if r != 4 || c != 4 {
		return nil, ErrBadAffine
	}
	return mat.DenseCopyOf(affine), nil
}

func isNil(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	d, ok := m.(*mat.Dense)
	return ok && d == nil
}
