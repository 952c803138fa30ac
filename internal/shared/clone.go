// Package shared provides helpers used across the neuroforge packages.
package shared

// CloneVector returns an independent copy of v. A nil input stays nil.
func CloneVector(v []float64) []float64 {
	if v == nil {
		return nil
	}
	cloned := make([]float64, len(v))
	copy(cloned, v)
	return cloned
}

// CloneMatrix performs a deep copy of a row-major matrix.
func CloneMatrix(m [][]float64) [][]float64 {
	if m == nil {
		return nil
	}
	cloned := make([][]float64, len(m))
	for i, row := range m {
		cloned[i] = CloneVector(row)
	}
	return cloned
}

// CloneInts returns an independent copy of v.
func CloneInts(v []int) []int {
	if v == nil {
		return nil
	}
	cloned := make([]int, len(v))
	copy(cloned, v)
	return cloned
}
