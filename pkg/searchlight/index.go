package searchlight

import (
	"fmt"
	"math"

	"mrisearchlight/pkg/volume"
)

// Neighborhoods is the spatial index of one fit.
type Neighborhoods struct {
	// Columns lists the data-mask voxels in C order; entry c is the voxel
	// behind column c of the sample matrix
	Columns [][3]int

	// Balls holds one ascending list of column indices per centre
	Balls [][]int

	// Centers holds the process-mask voxels in C order, aligned with Balls
	Centers [][3]int
}

// BuildNeighborhoods computes the ball of every process-mask voxel over the
// voxels of the data mask. Both masks must share shape and affine, and
// every ball must be non-empty.
func BuildNeighborhoods(mask, processMask *volume.Mask, radius float64) (*Neighborhoods, error) {
	if mask == nil {
		return nil, configError("neighbourhoods", ErrNoMask)
	}
	if processMask == nil {
		processMask = mask
	}
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, configError("neighbourhoods", fmt.Errorf("%w: %v", ErrInvalidRadius, radius))
	}
	if err := mask.Compatible(processMask.Shape, processMask.Affine); err != nil {
		return nil, configError("neighbourhoods", fmt.Errorf("process mask: %w", err))
	}

	finder := NewBallFinder(mask)
	centers := processMask.Coords()
	balls := make([][]int, len(centers))
	for i, c := range centers {
		balls[i] = finder.Neighbors(c, radius)
		if len(balls[i]) == 0 {
			return nil, configError("neighbourhoods", fmt.Errorf("%w: centre %v has no data-mask voxel within %g", ErrEmptyBall, c, radius))
		}
	}

	return &Neighborhoods{
		Columns: mask.Coords(),
		Balls:   balls,
		Centers: centers,
	}, nil
}

// Sizes returns the number of voxels in each ball.
func (n *Neighborhoods) Sizes() []int {
	out := make([]int, len(n.Balls))
	for i, b := range n.Balls {
		out[i] = len(b)
	}
	return out
}
