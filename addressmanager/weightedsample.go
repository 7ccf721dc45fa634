package addressmanager

import "math/rand/v2"

// weightedSampleWithoutReplacement returns a permutation of
// 0..len(weights): at each step it draws index i with probability
// weights[i]/sum(weights), then zeroes that weight so it can't be drawn
// again. This is the same algorithm the original directory draws from
// rand::distributions::WeightedIndex inside its sampling loop (a fresh
// distribution built from scratch on every draw, since the crate has no
// cheap "remove and renormalize" primitive either) - reimplemented here
// over math/rand/v2 rather than adding a dependency for one ~15-line
// function.
//
// Every weight passed in is strictly positive (64 raised to a positive
// exponent), so 0 is a safe sentinel for "already drawn".
func weightedSampleWithoutReplacement(weights []float64) []int {
	working := append([]float64{}, weights...)
	order := make([]int, 0, len(weights))

	for range weights {
		total := 0.0
		for _, w := range working {
			total += w
		}
		if total <= 0 {
			break
		}

		target := rand.Float64() * total
		cursor := 0.0
		chosen := 0
		for i, w := range working {
			cursor += w
			if target <= cursor {
				chosen = i
				break
			}
		}

		order = append(order, chosen)
		working[chosen] = 0
	}
	return order
}
