package embeddings

import "math"

// Normalize returns a unit-length copy of v. A zero or empty vector is
// returned unchanged (there is nothing meaningful to scale).
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}

	return out
}

// MeanUnit computes the elementwise mean of several vectors (e.g. one per
// photo of the same item) and L2-normalizes the result. Returns an empty
// vector for empty input. Vectors of mismatched length are skipped.
func MeanUnit(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return []float32{}
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	n := 0

	for _, v := range vectors {
		if len(v) != dim {
			continue
		}
		for i, x := range v {
			sum[i] += float64(x)
		}
		n++
	}

	if n == 0 {
		return []float32{}
	}

	out := make([]float32, dim)
	for i := range sum {
		out[i] = float32(sum[i] / float64(n))
	}

	return Normalize(out)
}

// Cosine computes cosine similarity between two vectors. Returns 0 for
// mismatched lengths or zero vectors, so an item with no embedding simply
// carries no signal instead of breaking the scan.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
