package retrieval

import (
	"math"
	"reflect"
	"sort"
	"testing"

	"phytovet/internal/config"
	"phytovet/internal/types"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTokenizeName(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"Pyricularia oryzae (RICE)", []string{"oryzae", "pyricularia", "rice"}},
		{"Rice blast, rice blast", []string{"blast", "rice"}},
		{"a b", []string{}},
		{"", []string{}},
	}

	for _, tt := range tests {
		set := TokenizeName(tt.name)
		got := make([]string, 0, len(set))
		for tok := range set {
			got = append(got, tok)
		}
		sort.Strings(got)
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("TokenizeName(%q) = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	s := NewScorer(config.DefaultConfig().Retrieval)

	riceLeafBlast := types.NormalizedLabel{
		Original:          "Rice leaf blast",
		Tokens:            []string{"rice", "leaf", "blast"},
		HostCandidates:    []string{"rice"},
		SymptomCandidates: []string{"leaf", "blast"},
		LocationTerms:     []string{"leaf"},
	}

	tests := []struct {
		name        string
		dtCode      string
		fullName    string
		norm        types.NormalizedLabel
		wantScore   float64
		wantOverlap int
		wantHost    bool
	}{
		{
			name:        "full overlap with every bonus hits the cap",
			dtCode:      "GAF",
			fullName:    "Rice Blast (leaf)",
			norm:        riceLeafBlast,
			wantScore:   1.5, // 3/3 + 0.2 + 0.3 + 0.15 = 1.65, capped
			wantOverlap: 3,
			wantHost:    true,
		},
		{
			name:        "partial overlap without host",
			dtCode:      "GAF",
			fullName:    "Wheat Blast",
			norm:        riceLeafBlast,
			wantScore:   1.0/3.0 + 0.15,
			wantOverlap: 1,
			wantHost:    false,
		},
		{
			name:        "host and overlap without location",
			dtCode:      "GAF",
			fullName:    "Rice blast",
			norm:        riceLeafBlast,
			wantScore:   2.0/3.0 + 0.2 + 0.15,
			wantOverlap: 2,
			wantHost:    true,
		},
		{
			name:        "secondary type bonus",
			dtCode:      "SFT",
			fullName:    "Rice blast",
			norm:        riceLeafBlast,
			wantScore:   2.0/3.0 + 0.2 + 0.05,
			wantOverlap: 2,
			wantHost:    true,
		},
		{
			name:        "unranked type gets no bonus",
			dtCode:      "PFL",
			fullName:    "Rice blast",
			norm:        riceLeafBlast,
			wantScore:   2.0/3.0 + 0.2,
			wantOverlap: 2,
			wantHost:    true,
		},
		{
			name:     "no overlap at all",
			dtCode:   "PFL",
			fullName: "Daucus carota",
			norm:     riceLeafBlast,
		},
		{
			name:      "empty query tokens still earn the type bonus",
			dtCode:    "GAF",
			fullName:  "Rice blast",
			norm:      types.NormalizedLabel{},
			wantScore: 0.15,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			score, overlap, host := s.Score(tt.dtCode, tt.fullName, tt.norm)
			if !almostEqual(score, tt.wantScore) {
				t.Fatalf("score = %v, want %v", score, tt.wantScore)
			}
			if overlap != tt.wantOverlap {
				t.Fatalf("overlap = %d, want %d", overlap, tt.wantOverlap)
			}
			if host != tt.wantHost {
				t.Fatalf("hostMatch = %v, want %v", host, tt.wantHost)
			}
		})
	}
}

func TestScore_BoundedByCap(t *testing.T) {
	s := NewScorer(config.DefaultConfig().Retrieval)

	norms := []types.NormalizedLabel{
		{Tokens: []string{"rice"}, HostCandidates: []string{"rice"}, LocationTerms: []string{"leaf"}},
		{Tokens: []string{"rice", "leaf", "blast"}, HostCandidates: []string{"rice"}, LocationTerms: []string{"leaf"}},
		{},
	}
	names := []string{"Rice leaf blast", "rice", "unrelated species", ""}
	dtCodes := []string{"GAF", "SFT", "PFL", ""}

	for _, norm := range norms {
		for _, name := range names {
			for _, dt := range dtCodes {
				score, _, _ := s.Score(dt, name, norm)
				if score < 0 || score > 1.5 {
					t.Fatalf("Score(%q, %q) = %v, outside [0, 1.5]", dt, name, score)
				}
			}
		}
	}
}

func TestScore_DuplicateQueryTokensCollapse(t *testing.T) {
	// The ratio denominator is the query token SET, so repeated tokens
	// do not dilute the score.
	s := NewScorer(config.DefaultConfig().Retrieval)

	norm := types.NormalizedLabel{Tokens: []string{"blast", "blast", "blast"}}
	score, overlap, _ := s.Score("", "blast fungus", norm)
	if overlap != 1 {
		t.Fatalf("overlap = %d, want 1", overlap)
	}
	if !almostEqual(score, 1.0) {
		t.Fatalf("score = %v, want 1.0", score)
	}
}
