// Package validate gates diagnoses on lexical agreement between fetched
// facts and the original label. The check is deliberately weak: it
// catches total mismatches, not wrong-but-related identifications.
package validate

import (
	"regexp"
	"strings"

	"phytovet/internal/config"
	"phytovet/internal/types"
)

const textTokenMinLen = 2

var textSplit = regexp.MustCompile(`[^\w]+`)

func tokenizeText(text string) map[string]struct{} {
	parts := textSplit.Split(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(parts))
	for _, t := range parts {
		if len(t) >= textTokenMinLen {
			set[t] = struct{}{}
		}
	}
	return set
}

// Validator checks fetched facts against a normalized label.
type Validator struct {
	minTokenOverlap int
}

// New creates a Validator from the validation config.
func New(cfg config.ValidationConfig) *Validator {
	return &Validator{minTokenOverlap: cfg.MinTokenOverlap}
}

// Validate reports whether the facts lexically support the label.
// It fails when the label has no tokens, the overview is absent, or the
// facts contain no text at all. Otherwise the overview preferred name,
// every alternate name, and every host name are pooled into one blob,
// tokenized with the label's rule, and required to share at least the
// configured number of tokens with the label.
func (v *Validator) Validate(facts types.Facts, norm types.NormalizedLabel) bool {
	if len(norm.Tokens) == 0 {
		return false
	}
	if !facts.HasOverview() {
		return false
	}

	texts := textsFromFacts(facts)
	if len(texts) == 0 {
		return false
	}

	combined := tokenizeText(strings.Join(texts, " "))
	overlap := 0
	seen := make(map[string]struct{}, len(norm.Tokens))
	for _, t := range norm.Tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := combined[t]; ok {
			overlap++
		}
	}

	return overlap >= v.minTokenOverlap
}

// textsFromFacts collects every name string the facts carry.
func textsFromFacts(facts types.Facts) []string {
	var texts []string

	if facts.Overview != nil && facts.Overview.PrefName != "" {
		texts = append(texts, facts.Overview.PrefName)
	}
	for _, n := range facts.Names {
		if n.FullName != "" {
			texts = append(texts, n.FullName)
		}
	}
	for _, h := range facts.Hosts {
		if h.PrefName != "" {
			texts = append(texts, h.PrefName)
		}
	}

	return texts
}
