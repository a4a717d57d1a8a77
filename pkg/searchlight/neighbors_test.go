package searchlight

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mrisearchlight/pkg/volume"
)

func fullMask(t *testing.T, shape [3]int) *volume.Mask {
	t.Helper()
	m, err := volume.FullMask(shape, nil)
	require.NoError(t, err)
	return m
}

func column(shape [3]int, i, j, k int) int {
	return (i*shape[1]+j)*shape[2] + k
}

func TestBallFinderBruteForce(t *testing.T) {
	shape := [3]int{6, 5, 4}
	mask := fullMask(t, shape)
	mask.Set(1, 1, 1, false)
	mask.Set(3, 2, 0, false)
	finder := NewBallFinder(mask)
	coords := mask.Coords()
	require.Equal(t, len(coords), finder.Len())

	for _, radius := range []float64{0.5, 1, 1.5, 2, 2.3} {
		for _, center := range [][3]int{{0, 0, 0}, {2, 2, 2}, {1, 1, 1}, {5, 4, 3}} {
			var want []int
			for col, c := range coords {
				dx := float64(c[0] - center[0])
				dy := float64(c[1] - center[1])
				dz := float64(c[2] - center[2])
				if dx*dx+dy*dy+dz*dz <= radius*radius {
					want = append(want, col)
				}
			}
			got := finder.Neighbors(center, radius)
			if want == nil {
				assert.Empty(t, got, "centre %v radius %g", center, radius)
				continue
			}
			assert.Equal(t, want, got, "centre %v radius %g", center, radius)
		}
	}
}

func TestBallFinderSubVoxelRadius(t *testing.T) {
	shape := [3]int{5, 5, 5}
	mask := fullMask(t, shape)
	finder := NewBallFinder(mask)
	assert.Equal(t, []int{column(shape, 2, 2, 2)}, finder.Neighbors([3]int{2, 2, 2}, 0.5))

	mask.Set(2, 2, 2, false)
	assert.Empty(t, NewBallFinder(mask).Neighbors([3]int{2, 2, 2}, 0.5))
}

func TestBallFinderUsesAffine(t *testing.T) {
	// 2 mm along x, 1 mm along y and z
	mask, err := volume.FullMask([3]int{5, 5, 5}, volume.Scaling([3]float64{2, 1, 1}, [3]float64{-10, 3, 7}))
	require.NoError(t, err)
	ball := NewBallFinder(mask).Neighbors([3]int{2, 2, 2}, 1.5)

	// centre, four face neighbours in y/z and four y/z diagonals at sqrt(2)
	assert.Len(t, ball, 9)
	for _, col := range ball {
		assert.Equal(t, 2, mask.Coords()[col][0])
	}
}

func TestBallFinderEmptyMask(t *testing.T) {
	mask, err := volume.NewMask([3]int{3, 3, 3}, nil)
	require.NoError(t, err)
	finder := NewBallFinder(mask)
	assert.Zero(t, finder.Len())
	assert.Empty(t, finder.Neighbors([3]int{1, 1, 1}, 10))
}

func TestBuildNeighborhoods(t *testing.T) {
	shape := [3]int{5, 5, 5}
	mask := fullMask(t, shape)
	process, err := volume.NewMask(shape, nil)
	require.NoError(t, err)
	process.Set(0, 0, 0, true)
	process.Set(2, 2, 2, true)

	hoods, err := BuildNeighborhoods(mask, process, 1)
	require.NoError(t, err)
	assert.Len(t, hoods.Columns, 125)
	assert.Equal(t, [][3]int{{0, 0, 0}, {2, 2, 2}}, hoods.Centers)
	assert.Equal(t, []int{4, 7}, hoods.Sizes())
	assert.Equal(t, []int{0, 1, 5, 25}, hoods.Balls[0])

	hoods, err = BuildNeighborhoods(mask, nil, 2)
	require.NoError(t, err)
	assert.Len(t, hoods.Balls, 125)
	assert.Len(t, hoods.Balls[column(shape, 2, 2, 2)], 33)
}

func TestBuildNeighborhoodsErrors(t *testing.T) {
	mask := fullMask(t, [3]int{5, 5, 5})

	_, err := BuildNeighborhoods(nil, nil, 1)
	require.ErrorIs(t, err, ErrNoMask)

	for _, r := range []float64{0, -1} {
		_, err = BuildNeighborhoods(mask, nil, r)
		require.ErrorIs(t, err, ErrInvalidRadius)
	}

	other, err := volume.FullMask([3]int{5, 5, 5}, volume.Scaling([3]float64{1, 1, 1}, [3]float64{0, 0, 1}))
	require.NoError(t, err)
	_, err = BuildNeighborhoods(mask, other, 1)
	require.ErrorIs(t, err, volume.ErrAffineMismatch)
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "neighbourhoods", cfgErr.Op)

	hole := mask.Clone()
	hole.Set(4, 4, 4, false)
	process, err := volume.NewMask(mask.Shape, nil)
	require.NoError(t, err)
	process.Set(4, 4, 4, true)
	_, err = BuildNeighborhoods(hole, process, 0.9)
	require.ErrorIs(t, err, ErrEmptyBall)
}
