// Package pipeline sequences a single diagnosis from a raw vision label
// to a verified answer or a refusal.
//
// The flow is strictly fail-closed: normalize the label, retrieve and
// score reference candidates, gate on confidence, fetch EPPO facts,
// validate the facts against the label, and only then hand the evidence
// to the language model. A stage that cannot produce evidence stops the
// run with a refusal; generation never sees an unverified label.
package pipeline

import (
	"context"

	"github.com/google/uuid"

	"phytovet/internal/config"
	"phytovet/internal/logging"
	"phytovet/internal/normalize"
	"phytovet/internal/retrieval"
	"phytovet/internal/store"
	"phytovet/internal/types"
	"phytovet/internal/validate"
)

// Refusal messages returned verbatim to the caller. Fixed strings keep
// the refusal surface auditable and free of model output.
const (
	MsgNoCandidates     = "I cannot verify this diagnosis: no matching EPPO record was found for this label."
	MsgLowConfidence    = "I cannot verify this diagnosis: the match to EPPO data is too uncertain."
	MsgFactsUnavailable = "I cannot verify this diagnosis: EPPO data could not be retrieved."
	MsgValidationFailed = "I cannot verify this diagnosis: the retrieved EPPO data does not support this label."
)

// FactsFetcher retrieves supporting facts for an accepted EPPO code.
type FactsFetcher interface {
	FetchFacts(ctx context.Context, code string) types.Facts
}

// AnswerGenerator produces the advisory answer from verified facts.
type AnswerGenerator interface {
	Generate(ctx context.Context, label string, facts types.Facts) string
}

// Pipeline wires the diagnosis stages around a shared reference store
// and the two external collaborators (EPPO API, LLM provider).
type Pipeline struct {
	cfg        *config.Config
	normalizer *normalize.Normalizer
	retriever  *retrieval.Retriever
	validator  *validate.Validator
	facts      FactsFetcher
	generator  AnswerGenerator
}

// New assembles a pipeline on top of an opened reference store. The
// facts fetcher and generator are injected so that batch runs share
// their caches and counters across labels.
func New(cfg *config.Config, st *store.RefStore, facts FactsFetcher, gen AnswerGenerator) *Pipeline {
	return &Pipeline{
		cfg:        cfg,
		normalizer: normalize.New(cfg.Normalize),
		retriever:  retrieval.New(st, cfg.Retrieval),
		validator:  validate.New(cfg.Validation),
		facts:      facts,
		generator:  gen,
	}
}

// Diagnose runs one label through the full flow and always returns a
// result: either a generated answer backed by validated EPPO facts, or
// a refusal naming the stage that stopped the run. Failures below the
// pipeline (store queries, API outages) degrade into refusals rather
// than aborting the process.
func (p *Pipeline) Diagnose(ctx context.Context, label string) types.DiagnosisResult {
	runID := uuid.New().String()[:8]
	timer := logging.StartTimer(logging.CategoryPipeline, "diagnose["+runID+"]")
	defer timer.Stop()

	logging.Pipeline("[%s] diagnosing %q", runID, label)

	// === STEP 1: NORMALIZE ===
	norm := p.normalizer.Normalize(label)
	if len(norm.Tokens) == 0 {
		logging.PipelineWarn("[%s] no usable tokens in label", runID)
		return types.DiagnosisResult{
			Refused: true,
			Reason:  types.RefusalNoCandidates,
			Message: MsgNoCandidates,
		}
	}
	logging.PipelineDebug("[%s] tokens=%v hosts=%v locations=%v", runID, norm.Tokens, norm.HostCandidates, norm.LocationTerms)

	// === STEP 2: RETRIEVE CANDIDATES ===
	candidates, err := p.retriever.Retrieve(norm)
	if err != nil {
		// A failed store query leaves us with no evidence, which is
		// the same refusal as an empty result set.
		logging.PipelineWarn("[%s] candidate query failed: %v", runID, err)
		candidates = nil
	}

	// === STEP 3: CONFIDENCE GATE ===
	best := retrieval.SelectBest(candidates, p.cfg.Retrieval.ConfidenceThreshold)
	if best == nil {
		res := types.DiagnosisResult{
			Refused: true,
			Reason:  types.RefusalLowConfidence,
			Message: MsgLowConfidence,
		}
		if len(candidates) > 0 {
			score := candidates[0].Score
			res.Confidence = &score
			logging.Pipeline("[%s] best score %.3f below threshold %.3f", runID, score, p.cfg.Retrieval.ConfidenceThreshold)
		} else {
			logging.Pipeline("[%s] no candidates retrieved", runID)
		}
		return res
	}
	logging.Pipeline("[%s] selected %s %q (dtcode=%s score=%.3f)", runID, best.EPPOCode, best.FullName, best.DTCode, best.Score)

	// === STEP 4: FETCH FACTS ===
	facts := p.facts.FetchFacts(ctx, best.EPPOCode)
	if !facts.HasOverview() {
		logging.PipelineWarn("[%s] no overview retrieved for %s", runID, best.EPPOCode)
		return types.DiagnosisResult{
			Refused:  true,
			Reason:   types.RefusalFactsUnavailable,
			Message:  MsgFactsUnavailable,
			EPPOCode: best.EPPOCode,
		}
	}

	// === STEP 5: VALIDATE ===
	if !p.validator.Validate(facts, norm) {
		logging.PipelineWarn("[%s] facts for %s do not overlap label", runID, best.EPPOCode)
		return types.DiagnosisResult{
			Refused:  true,
			Reason:   types.RefusalValidationFailed,
			Message:  MsgValidationFailed,
			EPPOCode: best.EPPOCode,
		}
	}

	// === STEP 6: GENERATE ===
	// The generator sees the raw label, not the normalized form, so the
	// model can quote the prediction exactly as the vision stage made it.
	answer := p.generator.Generate(ctx, label, facts)
	score := best.Score
	return types.DiagnosisResult{
		Message:    answer,
		EPPOCode:   best.EPPOCode,
		Confidence: &score,
	}
}
