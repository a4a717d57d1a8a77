// Package volume provides the voxel data model used by the searchlight:
// 3D/4D images with an affine, boolean masks, and the masking operation
// that flattens an image into a samples x voxels matrix.
package volume

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrShapeMismatch is returned when two volumes do not share a spatial shape.
	ErrShapeMismatch = errors.New("volume: spatial shape mismatch")

	// ErrAffineMismatch is returned when two volumes do not share an affine.
	ErrAffineMismatch = errors.New("volume: affine mismatch")

	// ErrBadAffine is returned for affines that are not 4x4.
	ErrBadAffine = errors.New("volume: affine must be 4x4")

	// ErrBadShape is returned for non-positive dimensions or data of the wrong length.
	ErrBadShape = errors.New("volume: invalid shape")

	// ErrEmptyMask is returned when a mask selects no voxels.
	ErrEmptyMask = errors.New("volume: mask selects no voxels")

	// ErrNoImages is returned when Concat is called without images.
	ErrNoImages = errors.New("volume: no images")
)

// Image is a dense 3D (one sample) or 4D (space x samples) voxel array
// paired with a 4x4 affine mapping voxel indices to millimetres.
type Image struct {
	// Shape is the spatial size (x, y, z) in voxels
	Shape [3]int

	// Samples is the number of volumes (time points); 1 for a 3D image
	Samples int

	// Data holds the intensities sample-major: Data[t*Voxels()+v], where v
	// is the C-order voxel index (i*ny+j)*nz+k
	Data []float64

	// Affine maps (i, j, k, 1) to physical coordinates
	Affine *mat.Dense
}

// NewImage allocates a zero-filled image. A nil affine means identity.
func NewImage(shape [3]int, samples int, affine mat.Matrix) (*Image, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	if samples < 1 {
		return nil, fmt.Errorf("%w: %d samples", ErrBadShape, samples)
	}
	a, err := normalizeAffine(affine)
	if err != nil {
		return nil, err
	}
	return &Image{
		Shape:   shape,
		Samples: samples,
		Data:    make([]float64, samples*shape[0]*shape[1]*shape[2]),
		Affine:  a,
	}, nil
}

// NewImageFromData wraps data (sample-major, C-order voxels) without copying.
func NewImageFromData(shape [3]int, samples int, data []float64, affine mat.Matrix) (*Image, error) {
	if err := checkShape(shape); err != nil {
		return nil, err
	}
	if samples < 1 || len(data) != samples*shape[0]*shape[1]*shape[2] {
		return nil, fmt.Errorf("%w: %d values for shape %v x %d", ErrBadShape, len(data), shape, samples)
	}
	a, err := normalizeAffine(affine)
	if err != nil {
		return nil, err
	}
	return &Image{Shape: shape, Samples: samples, Data: data, Affine: a}, nil
}

func checkShape(shape [3]int) error {
	for _, d := range shape {
		if d < 1 {
			return fmt.Errorf("%w: %v", ErrBadShape, shape)
		}
	}
	return nil
}

// Voxels returns the number of voxels in one sample.
func (img *Image) Voxels() int {
	return img.Shape[0] * img.Shape[1] * img.Shape[2]
}

// Index returns the C-order flat index of voxel (i, j, k).
func (img *Image) Index(i, j, k int) int {
	return flatIndex(img.Shape, i, j, k)
}

// At returns the intensity of voxel (i, j, k) in sample t.
func (img *Image) At(i, j, k, t int) float64 {
	return img.Data[t*img.Voxels()+img.Index(i, j, k)]
}

// Set assigns the intensity of voxel (i, j, k) in sample t.
func (img *Image) Set(i, j, k, t int, v float64) {
	img.Data[t*img.Voxels()+img.Index(i, j, k)] = v
}

// Sample returns a copy of sample t as a 3D image.
func (img *Image) Sample(t int) *Image {
	n := img.Voxels()
	data := make([]float64, n)
	copy(data, img.Data[t*n:(t+1)*n])
	return &Image{Shape: img.Shape, Samples: 1, Data: data, Affine: mat.DenseCopyOf(img.Affine)}
}

// Split returns one 3D image per sample.
func (img *Image) Split() []*Image {
	out := make([]*Image, img.Samples)
	for t := range out {
		out[t] = img.Sample(t)
	}
	return out
}

// Concat stacks images along the sample axis. A single image is returned
// as is. All images must share shape and affine.
func Concat(imgs []*Image) (*Image, error) {
	if len(imgs) == 0 {
		return nil, ErrNoImages
	}
	for i, img := range imgs {
		if img == nil {
			return nil, fmt.Errorf("%w: image %d is nil", ErrNoImages, i)
		}
	}
	if len(imgs) == 1 {
		return imgs[0], nil
	}

	first := imgs[0]
	total := 0
	for i, img := range imgs {
		if img.Shape != first.Shape {
			return nil, fmt.Errorf("%w: image %d has shape %v, expected %v", ErrShapeMismatch, i, img.Shape, first.Shape)
		}
		if !SameAffine(img.Affine, first.Affine) {
			return nil, fmt.Errorf("%w: image %d", ErrAffineMismatch, i)
		}
		total += img.Samples
	}

	data := make([]float64, 0, total*first.Voxels())
	for _, img := range imgs {
		data = append(data, img.Data...)
	}
	return &Image{Shape: first.Shape, Samples: total, Data: data, Affine: mat.DenseCopyOf(first.Affine)}, nil
}

// ApplyMask flattens img into a samples x voxels matrix whose columns are the
// in-mask voxels in C order.
func ApplyMask(img *Image, m *Mask) (*mat.Dense, error) {
	if err := m.Compatible(img.Shape, img.Affine); err != nil {
		return nil, err
	}
	columns := m.Indices()
	if len(columns) == 0 {
		return nil, ErrEmptyMask
	}

	n := img.Voxels()
	x := mat.NewDense(img.Samples, len(columns), nil)
	for t := 0; t < img.Samples; t++ {
		row := x.RawRowView(t)
		sample := img.Data[t*n : (t+1)*n]
		for c, v := range columns {
			row[c] = sample[v]
		}
	}
	return x, nil
}

func flatIndex(shape [3]int, i, j, k int) int {
	return (i*shape[1]+j)*shape[2] + k
}
