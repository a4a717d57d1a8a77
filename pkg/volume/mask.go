package volume

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Mask is a 3D boolean array marking the voxels that take part in an analysis.
type Mask struct {
	Shape  [3]int
	Data   []bool
	Affine *mat.Dense
}

// NewMask returns an all-false mask. A nil affine means identity.
func NewMask(shape [3]int, affine mat.Matrix) (*Mask, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	a, err := normalizeAffine(affine)
	if err != nil {
		return nil, err
	}
	return &Mask{Shape: shape, Data: make([]bool, shape[0]*shape[1]*shape[2]), Affine: a}, nil
}

// FullMask returns a mask selecting every voxel.
func FullMask(shape [3]int, affine mat.Matrix) (*Mask, error) {
	m, err := NewMask(shape, affine)
	if err != nil {
		return nil, err
	}
	for i := range m.Data {
		m.Data[i] = true
	}
	return m, nil
}

// At reports whether voxel (i, j, k) is selected. Out-of-bounds voxels are not.
func (m *Mask) At(i, j, k int) bool {
	if !m.Contains(i, j, k) {
		return false
	}
	return m.Data[flatIndex(m.Shape, i, j, k)]
}

// Set marks voxel (i, j, k).
func (m *Mask) Set(i, j, k int, v bool) {
	m.Data[flatIndex(m.Shape, i, j, k)] = v
}

// Contains reports whether (i, j, k) lies inside the grid.
func (m *Mask) Contains(i, j, k int) bool {
	return i >= 0 && j >= 0 && k >= 0 && i < m.Shape[0] && j < m.Shape[1] && k < m.Shape[2]
}

// Count returns the number of selected voxels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Data {
		if v {
			n++
		}
	}
	return n
}

// Indices returns the C-order flat indices of the selected voxels.
func (m *Mask) Indices() []int {
	out := make([]int, 0, m.Count())
	for v, ok := range m.Data {
		if ok {
			out = append(out, v)
		}
	}
	return out
}

// Coord converts a flat C-order index into voxel coordinates.
func (m *Mask) Coord(v int) [3]int {
	k := v % m.Shape[2]
	j := (v / m.Shape[2]) % m.Shape[1]
	i := v / (m.Shape[1] * m.Shape[2])
	return [3]int{i, j, k}
}

// Coords returns the coordinates of the selected voxels in C order.
func (m *Mask) Coords() [][3]int {
	idx := m.Indices()
	out := make([][3]int, len(idx))
	for c, v := range idx {
		out[c] = m.Coord(v)
	}
	return out
}

// Compatible checks that a volume with the given shape and affine is aligned
// with m.
func (m *Mask) Compatible(shape [3]int, affine mat.Matrix) error {
	if m.Shape != shape {
		return fmt.Errorf("%w: mask %v, volume %v", ErrShapeMismatch, m.Shape, shape)
	}
	if !SameAffine(m.Affine, affine) {
		return ErrAffineMismatch
	}
	return nil
}

// SubsetOf reports whether every voxel selected by m is selected by other.
// Masks of different shapes are never subsets of each other.
func (m *Mask) SubsetOf(other *Mask) bool {
	if m.Shape != other.Shape {
		return false
	}
	for v, ok := range m.Data {
		if ok && !other.Data[v] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of m.
func (m *Mask) Clone() *Mask {
	data := make([]bool, len(m.Data))
	copy(data, m.Data)
	return &Mask{Shape: m.Shape, Data: data, Affine: mat.DenseCopyOf(m.Affine)}
}
