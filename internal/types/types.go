// Package types provides shared type definitions used across phytovet packages.
// This package exists to break import cycles between the pipeline stages and
// their collaborators. Types in this package are foundational data structures
// with no complex dependencies.
package types

import (
	"encoding/json"
	"fmt"
)

// =============================================================================
// LABEL NORMALIZATION
// =============================================================================

// NormalizedLabel is a classifier label decomposed into matchable terms.
//
// Tokens are lower-cased, order-preserving, and at least the configured
// minimum length. LocationTerms are captured before generic-term filtering so
// anatomical vocabulary survives even when the filter would drop everything
// else.
type NormalizedLabel struct {
	Original          string   `json:"original"`
	Tokens            []string `json:"tokens"`
	HostCandidates    []string `json:"host_candidates"`
	SymptomCandidates []string `json:"symptom_candidates"`
	LocationTerms     []string `json:"location_terms"`
}

// =============================================================================
// RETRIEVAL CANDIDATES
// =============================================================================

// Candidate is a reference record scored against a normalized label.
// At most one Candidate exists per (EPPOCode, DTCode) pair.
type Candidate struct {
	EPPOCode     string  `json:"eppocode"`
	DTCode       string  `json:"dtcode"`
	FullName     string  `json:"fullname"`
	Score        float64 `json:"score"`
	TokenOverlap int     `json:"token_overlap"`
	HostMatch    bool    `json:"host_match"`
}

// =============================================================================
// EPPO FACTS
// =============================================================================

// CodeRef is an EPPO code reference. The API serializes it either as a bare
// string or as an object carrying its own "eppocode" field; both decode to
// the plain code.
type CodeRef string

// UnmarshalJSON accepts "GIBBFU" and {"eppocode": "GIBBFU"}.
func (c *CodeRef) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = CodeRef(s)
		return nil
	}
	var obj struct {
		EPPOCode string `json:"eppocode"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("code reference is neither string nor object: %w", err)
	}
	*c = CodeRef(obj.EPPOCode)
	return nil
}

// String returns the bare code.
func (c CodeRef) String() string { return string(c) }

// TaxonOverview is the overview record for one EPPO code.
type TaxonOverview struct {
	PrefName string  `json:"prefname"`
	EPPOCode CodeRef `json:"eppocode"`
}

// TaxonName is one alternate-name record from the names endpoint.
type TaxonName struct {
	FullName  string `json:"fullname"`
	Language  string `json:"lang,omitempty"`
	Preferred int    `json:"preferred,omitempty"`
}

// TaxonHost is one affected-host record from the hosts endpoint.
type TaxonHost struct {
	PrefName   string `json:"prefname"`
	ClassLabel string `json:"class_label,omitempty"`
}

// Facts groups the supporting data retrieved for one EPPO code.
// A nil Overview means the overview could not be retrieved and is a terminal
// signal downstream; absent Names/Hosts normalize to empty slices.
type Facts struct {
	Overview *TaxonOverview `json:"overview"`
	Names    []TaxonName    `json:"names"`
	Hosts    []TaxonHost    `json:"hosts"`
}

// HasOverview reports whether the overview endpoint produced a record.
func (f Facts) HasOverview() bool { return f.Overview != nil }

// =============================================================================
// DIAGNOSIS RESULTS
// =============================================================================

// RefusalReason identifies why the pipeline declined to produce a diagnosis.
// The set is closed: every refusal maps to exactly one of these.
type RefusalReason string

const (
	RefusalNone             RefusalReason = ""
	RefusalNoCandidates     RefusalReason = "no_candidates"
	RefusalLowConfidence    RefusalReason = "low_confidence"
	RefusalFactsUnavailable RefusalReason = "facts_unavailable"
	RefusalValidationFailed RefusalReason = "validation_failed"
)

// DiagnosisResult is the terminal value returned once per label.
// EPPOCode is empty and Confidence nil when the corresponding stage never
// produced them.
type DiagnosisResult struct {
	Refused    bool          `json:"refused"`
	Reason     RefusalReason `json:"reason,omitempty"`
	Message    string        `json:"message"`
	EPPOCode   string        `json:"eppocode,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
}
