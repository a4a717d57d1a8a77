package searchlight

import "gonum.org/v1/gonum/mat"

// selectColumns copies the given columns of x into a new matrix.
func selectColumns(x *mat.Dense, cols []int) *mat.Dense {
	r, _ := x.Dims()
	out := mat.NewDense(r, len(cols), nil)
	for i := 0; i < r; i++ {
		src := x.RawRowView(i)
		dst := out.RawRowView(i)
		for j, c := range cols {
			dst[j] = src[c]
		}
	}
	return out
}

// selectRows copies the given rows of x into a new matrix.
func selectRows(x *mat.Dense, rows []int) *mat.Dense {
	_, c := x.Dims()
	out := mat.NewDense(len(rows), c, nil)
	for i, r := range rows {
		copy(out.RawRowView(i), x.RawRowView(r))
	}
	return out
}

func pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = v[j]
	}
	return out
}
