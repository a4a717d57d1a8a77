package searchlight

import (
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"mrisearchlight/pkg/volume"
)

// voxelPoint is a data-mask voxel at its world coordinate, tagged with its
// column in the sample matrix.
type voxelPoint struct {
	pos    [3]float64
	column int
}

// Compare implements the kdtree.Comparable interface
func (p voxelPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(voxelPoint)
	return p.pos[d] - q.pos[d]
}

// Dims returns the number of dimensions for the KD-tree
func (p voxelPoint) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p voxelPoint) Distance(c kdtree.Comparable) float64 {
	q := c.(voxelPoint)
	dx := p.pos[0] - q.pos[0]
	dy := p.pos[1] - q.pos[1]
	dz := p.pos[2] - q.pos[2]
	return dx*dx + dy*dy + dz*dz
}

// voxelPoints is a collection of voxelPoint that satisfies kdtree.Interface
type voxelPoints []voxelPoint

func (p voxelPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p voxelPoints) Len() int                              { return len(p) }
func (p voxelPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p voxelPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(voxelPlane{voxelPoints: p, Dim: d}, kdtree.MedianOfRandoms(voxelPlane{voxelPoints: p, Dim: d}, 100))
}

// voxelPlane implements sort.Interface and kdtree.SortSlicer for voxelPoints
type voxelPlane struct {
	voxelPoints
	kdtree.Dim
}

func (p voxelPlane) Less(i, j int) bool {
	return p.voxelPoints[i].pos[p.Dim] < p.voxelPoints[j].pos[p.Dim]
}

func (p voxelPlane) Slice(start, end int) kdtree.SortSlicer {
	return voxelPlane{voxelPoints: p.voxelPoints[start:end], Dim: p.Dim}
}

func (p voxelPlane) Swap(i, j int) {
	p.voxelPoints[i], p.voxelPoints[j] = p.voxelPoints[j], p.voxelPoints[i]
}

// BallFinder answers radius queries over the voxels of a data mask in world
// coordinates. It is read-only after construction and safe for concurrent use.
type BallFinder struct {
	affine mat.Matrix
	tree   *kdtree.Tree
	size   int
}

// NewBallFinder indexes every voxel of mask. Column c of the result of
// Neighbors refers to the c-th selected voxel of mask in C order.
func NewBallFinder(mask *volume.Mask) *BallFinder {
	var affine mat.Matrix = mask.Affine
	if mask.Affine == nil {
		affine = volume.Identity()
	}

	coords := mask.Coords()
	points := make(voxelPoints, len(coords))
	for col, c := range coords {
		points[col] = voxelPoint{pos: volume.VoxelToWorld(affine, c[0], c[1], c[2]), column: col}
	}
	return &BallFinder{
		affine: affine,
		tree:   kdtree.New(points, false),
		size:   len(points),
	}
}

// Len returns the number of indexed voxels.
func (b *BallFinder) Len() int { return b.size }

// Neighbors returns, in ascending order, the columns of all indexed voxels
// whose world distance to center is at most radius. The centre need not be
// part of the mask.
func (b *BallFinder) Neighbors(center [3]int, radius float64) []int {
	q := voxelPoint{pos: volume.VoxelToWorld(b.affine, center[0], center[1], center[2])}
	keeper := kdtree.NewDistKeeper(radius * radius)
	b.tree.NearestSet(keeper, q)

	ball := make([]int, 0, keeper.Len())
	for _, item := range keeper.Heap {
		if item.Comparable == nil {
			continue
		}
		ball = append(ball, item.Comparable.(voxelPoint).column)
	}
	sort.Ints(ball)
	return ball
}
