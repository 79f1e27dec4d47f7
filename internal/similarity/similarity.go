// Package similarity scores embedding vectors against each other using
// cosine similarity. Scores are magnitudes in [0,1]; the sign of the cosine
// carries no meaning for patent text comparison, so negative values are
// reported as their absolute value. Malformed input never panics or errors:
// it scores as Unscorable.
package similarity

import "math"

// Unscorable marks a pair that cannot be compared: nil or empty vectors,
// mismatched dimensionality, or NaN content.
const Unscorable = -1.0

// Score returns the cosine similarity between a and b as a magnitude.
// It returns Unscorable when either vector is nil or empty, when the lengths
// differ, when either vector contains NaN, or when either vector has zero
// norm (the cosine is undefined).
func Score(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return Unscorable
	}
	var dot, normA, normB float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			return Unscorable
		}
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return Unscorable
	}
	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	return math.Abs(score)
}

// BulkScore scores each candidate against the reference vector. The result
// always has exactly one entry per candidate, in candidate order; a candidate
// that cannot be scored holds Unscorable in its slot. An invalid reference
// (nil, empty, or NaN-containing) short-circuits: every slot is Unscorable
// and no per-candidate work is done.
func BulkScore(reference []float64, candidates [][]float64) []float64 {
	scores := make([]float64, len(candidates))
	if !validVector(reference) {
		for i := range scores {
			scores[i] = Unscorable
		}
		return scores
	}
	for i, candidate := range candidates {
		scores[i] = Score(reference, candidate)
	}
	return scores
}

func validVector(v []float64) bool {
	if len(v) == 0 {
		return false
	}
	for _, x := range v {
		if math.IsNaN(x) {
			return false
		}
	}
	return true
}
