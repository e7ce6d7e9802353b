// Package verify implements the three identity resolvers that map
// caller-supplied facts onto a customer record: exact phone lookup, exact
// email lookup, and fuzzy name plus date-of-birth matching.
package verify

// Scorer rates how close two normalized strings are, in [0,1]. The fuzzy
// resolver's matching policy is swappable through this interface.
type Scorer interface {
	Score(a, b string) float64
}

// EditDistanceScorer scores by Levenshtein distance normalized to the longer
// string's length, so 1.0 is identical and 0.0 is a full rewrite.
type EditDistanceScorer struct{}

func (EditDistanceScorer) Score(a, b string) float64 {
	longer, shorter := a, b
	if len(shorter) > len(longer) {
		longer, shorter = shorter, longer
	}
	if len(longer) == 0 {
		return 1.0
	}
	dist := levenshtein(longer, shorter)
	return float64(len(longer)-dist) / float64(len(longer))
}

// levenshtein computes edit distance with a single rolling cost row.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	costs := make([]int, len(rb)+1)
	for j := range costs {
		costs[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		prev := costs[0]
		costs[0] = i
		for j := 1; j <= len(rb); j++ {
			cur := costs[j]
			if ra[i-1] == rb[j-1] {
				costs[j] = prev
			} else {
				costs[j] = min3(prev, costs[j-1], costs[j]) + 1
			}
			prev = cur
		}
	}

	return costs[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
