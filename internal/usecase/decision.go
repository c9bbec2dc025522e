package usecase

// NeedsClarification decides between answering and asking for clarification.
// The single best match is the strongest evidence that the corpus contains
// relevant material: a weak best match means the corpus cannot ground an
// answer and clarification is safer than hallucination. No retrieval results
// at all always means clarification, regardless of the threshold.
func NeedsClarification(distances []float64, threshold float64) bool {
	if len(distances) == 0 {
		return true
	}
	return MinDistance(distances, 0) > threshold
}

// MinDistance returns the smallest distance, or fallback when the sequence
// is empty.
func MinDistance(distances []float64, fallback float64) float64 {
	if len(distances) == 0 {
		return fallback
	}
	min := distances[0]
	for _, d := range distances[1:] {
		if d < min {
			min = d
		}
	}
	return min
}
