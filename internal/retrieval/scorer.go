package retrieval

import (
	"regexp"
	"strings"

	"phytovet/internal/config"
	"phytovet/internal/types"
)

// nameTokenMinLen is the minimum token length when tokenizing database
// names for overlap scoring.
const nameTokenMinLen = 2

var nameSplit = regexp.MustCompile(`[^\w]+`)

// TokenizeName tokenizes a database name into a lowercase token set.
func TokenizeName(name string) map[string]struct{} {
	parts := nameSplit.Split(strings.ToLower(name), -1)
	set := make(map[string]struct{}, len(parts))
	for _, t := range parts {
		if len(t) >= nameTokenMinLen {
			set[t] = struct{}{}
		}
	}
	return set
}

// Scorer assigns a relevance score to a candidate name for a query.
//
// The base signal is token overlap between the query and the name,
// normalized by query size. On top of that: a fixed bonus when the host
// crop appears in the name, a proportional bonus for matched plant-part
// terms, and a bonus for taxonomic types that usually hold disease
// entries (animal/fungal records over plant records). The sum is capped.
type Scorer struct {
	hostBonus         float64
	locationBonusMult float64
	preferredDTCode   string
	secondaryDTCodes  map[string]struct{}
	dtcodeBonusPri    float64
	dtcodeBonusSec    float64
	maxScoreCap       float64
}

// NewScorer creates a Scorer from the retrieval config.
func NewScorer(cfg config.RetrievalConfig) *Scorer {
	s := &Scorer{
		hostBonus:         cfg.HostBonus,
		locationBonusMult: cfg.LocationBonusMultiplier,
		preferredDTCode:   cfg.PreferredDTCode,
		secondaryDTCodes:  make(map[string]struct{}, len(cfg.SecondaryDTCodes)),
		dtcodeBonusPri:    cfg.DTCodeBonusPrimary,
		dtcodeBonusSec:    cfg.DTCodeBonusSecondary,
		maxScoreCap:       cfg.MaxScoreCap,
	}
	for _, c := range cfg.SecondaryDTCodes {
		s.secondaryDTCodes[c] = struct{}{}
	}
	return s
}

// Score computes (score, tokenOverlap, hostMatch) for one candidate name.
func (s *Scorer) Score(dtCode, fullName string, norm types.NormalizedLabel) (float64, int, bool) {
	nameTokens := TokenizeName(fullName)

	querySet := make(map[string]struct{}, len(norm.Tokens))
	for _, t := range norm.Tokens {
		querySet[t] = struct{}{}
	}
	overlap := overlapCount(querySet, nameTokens)

	hostMatch := false
	for _, h := range norm.HostCandidates {
		if _, ok := nameTokens[h]; ok {
			hostMatch = true
			break
		}
	}

	locationMatch := 0.0
	if len(norm.LocationTerms) > 0 {
		locSet := make(map[string]struct{}, len(norm.LocationTerms))
		for _, t := range norm.LocationTerms {
			locSet[t] = struct{}{}
		}
		locationMatch = float64(overlapCount(locSet, nameTokens)) / float64(len(locSet))
	}

	queryLen := len(querySet)
	if queryLen < 1 {
		queryLen = 1
	}

	score := float64(overlap) / float64(queryLen)
	if hostMatch {
		score += s.hostBonus
	}
	score += s.locationBonusMult * locationMatch

	switch {
	case dtCode == s.preferredDTCode:
		score += s.dtcodeBonusPri
	default:
		if _, ok := s.secondaryDTCodes[dtCode]; ok {
			score += s.dtcodeBonusSec
		}
	}

	if score > s.maxScoreCap {
		score = s.maxScoreCap
	}

	return score, overlap, hostMatch
}
