package searchlight

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"mrisearchlight/pkg/volume"
)

// ScoreMap holds the fold scores of one metric for every voxel of the grid.
// Voxels outside the process mask have no scores.
type ScoreMap struct {
	Shape  [3]int
	Affine *mat.Dense

	// Folds is indexed by C-order voxel index
	Folds [][]float64
}

func newScoreMap(shape [3]int, affine *mat.Dense) *ScoreMap {
	a := volume.Identity()
	if affine != nil {
		a = mat.DenseCopyOf(affine)
	}
	return &ScoreMap{
		Shape:  shape,
		Affine: a,
		Folds:  make([][]float64, shape[0]*shape[1]*shape[2]),
	}
}

func (m *ScoreMap) index(i, j, k int) int {
	return (i*m.Shape[1]+j)*m.Shape[2] + k
}

// At returns the fold scores at voxel (i, j, k), or nil outside the process mask.
func (m *ScoreMap) At(i, j, k int) []float64 {
	return m.Folds[m.index(i, j, k)]
}

// MeanAt returns the mean fold score at voxel (i, j, k); 0 outside the
// process mask.
func (m *ScoreMap) MeanAt(i, j, k int) float64 {
	return meanOrZero(m.Folds[m.index(i, j, k)])
}

// Mean returns the 3D image of mean fold scores.
func (m *ScoreMap) Mean() *volume.Image {
	data := make([]float64, len(m.Folds))
	for v, folds := range m.Folds {
		data[v] = meanOrZero(folds)
	}
	return &volume.Image{Shape: m.Shape, Samples: 1, Data: data, Affine: mat.DenseCopyOf(m.Affine)}
}

// CountEqual returns the number of scored voxels whose mean score equals v.
func (m *ScoreMap) CountEqual(v float64) int {
	n := 0
	for _, folds := range m.Folds {
		if folds != nil && meanOrZero(folds) == v {
			n++
		}
	}
	return n
}

// Argmax returns the scored voxel with the highest mean score, the first in
// C order on ties. ok is false when no voxel was scored.
func (m *ScoreMap) Argmax() (voxel [3]int, score float64, ok bool) {
	best := -1
	score = math.Inf(-1)
	for v, folds := range m.Folds {
		if folds == nil {
			continue
		}
		if s := meanOrZero(folds); s > score || best < 0 {
			best, score = v, s
		}
	}
	if best < 0 {
		return voxel, 0, false
	}
	voxel[2] = best % m.Shape[2]
	voxel[1] = (best / m.Shape[2]) % m.Shape[1]
	voxel[0] = best / (m.Shape[1] * m.Shape[2])
	return voxel, score, true
}

func meanOrZero(folds []float64) float64 {
	if len(folds) == 0 {
		return 0
	}
	return stat.Mean(folds, nil)
}
