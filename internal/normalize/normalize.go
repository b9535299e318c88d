// Package normalize turns raw vision-model disease labels into a structured
// form the retrieval stages can work with. Labels arrive as free text
// ("Tomato leaf curl virus", "Rice Blast (leaf)") and leave as lowercase
// token lists with host, symptom, and plant-part components split out.
package normalize

import (
	"regexp"
	"strings"

	"phytovet/internal/config"
	"phytovet/internal/types"
)

// nonWord matches runs of characters that separate tokens.
var nonWord = regexp.MustCompile(`[^\w]+`)

// Normalizer tokenizes labels and extracts host, symptom, and plant-part
// candidates. It is stateless after construction and safe for concurrent use.
type Normalizer struct {
	minTokenLen   int
	genericTerms  map[string]struct{}
	locationTerms map[string]struct{}
}

// New creates a Normalizer from the normalization config.
func New(cfg config.NormalizeConfig) *Normalizer {
	n := &Normalizer{
		minTokenLen:   cfg.MinTokenLength,
		genericTerms:  make(map[string]struct{}, len(cfg.GenericTerms)),
		locationTerms: make(map[string]struct{}, len(cfg.LocationTerms)),
	}
	for _, t := range cfg.GenericTerms {
		n.genericTerms[t] = struct{}{}
	}
	for _, t := range cfg.LocationTerms {
		n.locationTerms[t] = struct{}{}
	}
	return n
}

// Tokenize splits text into lowercase word tokens of minimum length.
func (n *Normalizer) Tokenize(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	parts := nonWord.Split(text, -1)
	tokens := make([]string, 0, len(parts))
	for _, t := range parts {
		if len(t) >= n.minTokenLen {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// Normalize converts a raw CV label into its structured form.
//
// Plant-part terms are collected before generic-term filtering so a label
// like "spot on the leaf" still reports "leaf" even if filtering reshapes
// the token list. When every token is generic the unfiltered tokens are
// kept rather than returning an empty label.
func (n *Normalizer) Normalize(label string) types.NormalizedLabel {
	original := strings.TrimSpace(label)
	tokens := n.Tokenize(original)

	var locations []string
	for _, t := range tokens {
		if _, ok := n.locationTerms[t]; ok {
			locations = append(locations, t)
		}
	}

	meaningful := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, ok := n.genericTerms[t]; !ok {
			meaningful = append(meaningful, t)
		}
	}
	if len(meaningful) == 0 {
		meaningful = tokens
	}

	// The leading token is conventionally the host crop; everything after
	// it describes the condition. A single-token label has to serve as
	// both.
	var hosts []string
	if len(meaningful) > 0 {
		hosts = []string{meaningful[0]}
	}
	symptoms := meaningful
	if len(meaningful) > 1 {
		symptoms = meaningful[1:]
	}

	return types.NormalizedLabel{
		Original:          original,
		Tokens:            meaningful,
		HostCandidates:    hosts,
		SymptomCandidates: symptoms,
		LocationTerms:     locations,
	}
}
