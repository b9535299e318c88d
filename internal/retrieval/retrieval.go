// Package retrieval matches normalized disease labels against the EPPO
// reference store and ranks the results. Matching is deliberately lexical:
// candidate rows are pulled by substring, scored on token overlap plus a
// few domain heuristics, and gated on a confidence threshold before any
// network or LLM spend happens downstream.
package retrieval

import (
	"fmt"
	"sort"

	"phytovet/internal/config"
	"phytovet/internal/logging"
	"phytovet/internal/store"
	"phytovet/internal/types"
)

// Retriever queries the reference store and scores candidate codes.
type Retriever struct {
	store         *store.RefStore
	scorer        *Scorer
	maxCandidates int
}

// New creates a Retriever backed by the given store.
func New(st *store.RefStore, cfg config.RetrievalConfig) *Retriever {
	return &Retriever{
		store:         st,
		scorer:        NewScorer(cfg),
		maxCandidates: cfg.MaxCandidates,
	}
}

// Retrieve returns scored candidates for a normalized label, sorted by
// score descending and capped at the configured maximum. An empty token
// list returns no candidates without touching the store.
func (r *Retriever) Retrieve(norm types.NormalizedLabel) ([]types.Candidate, error) {
	if len(norm.Tokens) == 0 {
		return nil, nil
	}

	rows, err := r.store.SearchNames(norm.Tokens)
	if err != nil {
		return nil, fmt.Errorf("candidate search failed: %w", err)
	}

	deduped := dedupeRows(rows, norm.Tokens)

	candidates := make([]types.Candidate, 0, len(deduped))
	for _, row := range deduped {
		score, overlap, hostMatch := r.scorer.Score(row.DTCode, row.FullName, norm)
		candidates = append(candidates, types.Candidate{
			EPPOCode:     row.EPPOCode,
			DTCode:       row.DTCode,
			FullName:     row.FullName,
			Score:        score,
			TokenOverlap: overlap,
			HostMatch:    hostMatch,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > r.maxCandidates {
		candidates = candidates[:r.maxCandidates]
	}

	logging.PipelineDebug("Retrieved %d candidates for %q (from %d rows)",
		len(candidates), norm.Original, len(rows))

	return candidates, nil
}

// dedupeRows collapses rows to one name per (eppocode, dtcode) pair. The
// kept name is the one with the larger query-token overlap; on a tie the
// longer name wins. First-seen order is preserved so equal-score
// candidates rank deterministically later.
func dedupeRows(rows []store.NameRow, queryTokens []string) []store.NameRow {
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, t := range queryTokens {
		querySet[t] = struct{}{}
	}

	type key struct{ eppoCode, dtCode string }
	best := make(map[key]string, len(rows))
	order := make([]key, 0, len(rows))

	for _, row := range rows {
		k := key{row.EPPOCode, row.DTCode}
		overlap := overlapCount(querySet, TokenizeName(row.FullName))

		prevName, seen := best[k]
		prevOverlap := -1
		if prevName != "" {
			prevOverlap = overlapCount(querySet, TokenizeName(prevName))
		}

		if !seen {
			order = append(order, k)
			best[k] = row.FullName
			continue
		}
		if overlap > prevOverlap || (overlap == prevOverlap && len(row.FullName) > len(prevName)) {
			best[k] = row.FullName
		}
	}

	out := make([]store.NameRow, 0, len(order))
	for _, k := range order {
		out = append(out, store.NameRow{EPPOCode: k.eppoCode, DTCode: k.dtCode, FullName: best[k]})
	}
	return out
}

func overlapCount(query map[string]struct{}, name map[string]struct{}) int {
	n := 0
	for t := range name {
		if _, ok := query[t]; ok {
			n++
		}
	}
	return n
}
