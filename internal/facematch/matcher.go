// Package facematch implements nearest-neighbor matching of a probe face
// embedding against the enrolled registry under a distance tolerance.
package facematch

// ResultKind classifies the outcome of a match attempt.
type ResultKind string

const (
	// KindMatched means the best distance was within tolerance.
	KindMatched ResultKind = "matched"
	// KindUnmatched means a best distance was computed but exceeded tolerance.
	// Kept distinct from KindNoCandidate for diagnostics; both surface as
	// "unknown" to callers.
	KindUnmatched ResultKind = "unmatched"
	// KindNoCandidate means the registry was empty or the probe was empty.
	KindNoCandidate ResultKind = "no_candidate"
)

// Candidate is an enrolled identity as seen by the matcher. An identity
// with several vectors contributes its minimum distance.
type Candidate struct {
	ID      int64
	Name    string
	Vectors [][]float32
}

// Result describes the best candidate for a probe vector.
type Result struct {
	Kind       ResultKind
	ID         int64
	Name       string
	Distance   float64
	Confidence float64
}

// Matcher searches candidates with a fixed distance tolerance.
type Matcher struct {
	Tolerance float64
}

// NewMatcher creates a matcher with the given tolerance.
func NewMatcher(tolerance float64) *Matcher {
	return &Matcher{Tolerance: tolerance}
}

// Match scans every vector of every candidate and selects the global
// minimum distance. Ties at the exact minimum resolve to the first
// candidate in iteration order, so repeated calls with the same inputs
// always return the same identity.
func (m *Matcher) Match(probe []float32, candidates []Candidate) Result {
	if len(probe) == 0 || len(candidates) == 0 {
		return Result{Kind: KindNoCandidate}
	}

	bestDistance := -1.0
	bestIndex := -1
	for i := range candidates {
		for _, vec := range candidates[i].Vectors {
			if len(vec) == 0 {
				continue
			}
			d := EuclideanDistance(probe, vec)
			if bestIndex == -1 || d < bestDistance {
				bestDistance = d
				bestIndex = i
			}
		}
	}

	if bestIndex == -1 {
		// Candidates existed but none carried a usable vector.
		return Result{Kind: KindNoCandidate}
	}

	if bestDistance >= m.Tolerance {
		return Result{
			Kind:     KindUnmatched,
			Distance: bestDistance,
		}
	}

	return Result{
		Kind:       KindMatched,
		ID:         candidates[bestIndex].ID,
		Name:       candidates[bestIndex].Name,
		Distance:   bestDistance,
		Confidence: Confidence(bestDistance),
	}
}
