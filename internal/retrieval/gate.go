package retrieval

import "phytovet/internal/types"

// SelectBest returns the top-ranked candidate when its score clears the
// confidence threshold, nil otherwise. Candidates must already be sorted
// by score descending; only the head of the list is considered, so a
// strong second candidate never rescues a weak first one.
func SelectBest(candidates []types.Candidate, threshold float64) *types.Candidate {
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	if best.Score < threshold {
		return nil
	}
	return &best
}
