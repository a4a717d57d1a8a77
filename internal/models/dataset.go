package models

import (
	"fmt"
	"math/rand"

	"mrisearchlight/pkg/volume"
)

// SyntheticParams describes a toy decoding dataset: uniform noise in every
// voxel, two balanced classes, and a single voxel carrying the class signal.
type SyntheticParams struct {
	// Shape is the spatial size of the volume in voxels
	Shape [3]int

	// Samples is the number of volumes (time points); the first half is
	// class 0 and the second half class 1
	Samples int

	// Signal is the voxel whose value encodes the class: 0 for class 0 and
	// Amplitude for class 1
	Signal [3]int

	// Amplitude is the signal value of class 1
	Amplitude float64

	// Seed makes noise and groups reproducible
	Seed int64
}

// Synthetic is a generated dataset ready to be fed to a searchlight.
type Synthetic struct {
	Params SyntheticParams

	// Image is the 4D volume, one sample per time point
	Image *volume.Image

	// Mask selects every voxel of the volume
	Mask *volume.Mask

	// Labels holds the class of each sample
	Labels []float64

	// Groups splits the samples into two runs, 0 and 1, in random order
	Groups []int
}

// NewSynthetic generates a dataset with identity affine.
func NewSynthetic(params SyntheticParams) (*Synthetic, error) {
	img, err := volume.NewImage(params.Shape, params.Samples, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate image: %w", err)
	}
	s := params.Signal
	if s[0] < 0 || s[1] < 0 || s[2] < 0 || s[0] >= params.Shape[0] || s[1] >= params.Shape[1] || s[2] >= params.Shape[2] {
		return nil, fmt.Errorf("signal voxel %v outside shape %v", s, params.Shape)
	}
	mask, err := volume.FullMask(params.Shape, img.Affine)
	if err != nil {
		return nil, fmt.Errorf("failed to create mask: %w", err)
	}

	rng := rand.New(rand.NewSource(params.Seed))
	for i := range img.Data {
		img.Data[i] = rng.Float64()
	}

	labels := make([]float64, params.Samples)
	half := params.Samples / 2
	for t := range labels {
		if t >= half {
			labels[t] = 1
		}
		img.Set(s[0], s[1], s[2], t, labels[t]*params.Amplitude)
	}

	groups := make([]int, params.Samples)
	for t := range groups {
		if t > half {
			groups[t] = 1
		}
	}
	rng.Shuffle(len(groups), func(i, j int) { groups[i], groups[j] = groups[j], groups[i] })

	return &Synthetic{
		Params: params,
		Image:  img,
		Mask:   mask,
		Labels: labels,
		Groups: groups,
	}, nil
}

// Volumes returns the dataset as a list of 3D images, one per sample.
func (s *Synthetic) Volumes() []*volume.Image {
	return s.Image.Split()
}

// ClassCounts returns the number of samples of class 0 and class 1.
func (s *Synthetic) ClassCounts() (zeros, ones int) {
	for _, l := range s.Labels {
		if l == 0 {
			zeros++
		} else {
			ones++
		}
	}
	return zeros, ones
}
