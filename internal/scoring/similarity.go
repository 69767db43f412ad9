package scoring

import "math"

// CosineSimilarity returns the cosine of the angle between a and b. Both
// vectors are normalized first. Mismatched lengths, empty vectors and
// zero-norm vectors yield 0.0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0.0
	}

	var normA, normB float64
	for i := range a {
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	normA = math.Sqrt(normA)
	normB = math.Sqrt(normB)

	var dot float64
	for i := range a {
		dot += (float64(a[i]) / normA) * (float64(b[i]) / normB)
	}

	// Guard against rounding just outside [-1, 1]
	return math.Max(-1, math.Min(1, dot))
}
