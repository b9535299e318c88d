// Package generation synthesizes the final advisory answer from verified
// EPPO facts. Everything upstream decided whether to answer; this package
// only decides what the answer says. Generation problems never become
// errors: they degrade to fixed fallback messages so a batch keeps moving.
package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"phytovet/internal/config"
	"phytovet/internal/logging"
	"phytovet/internal/types"
)

// Fallback messages for degraded generation.
const (
	// MsgNoFactsAvailable is returned when the fetched facts format to
	// an empty prompt section.
	MsgNoFactsAvailable = "I cannot provide a diagnosis: no EPPO-backed facts are available for this label."

	// MsgEmptyCompletion is returned when the provider answers with an
	// empty completion.
	MsgEmptyCompletion = "I could not generate a response from the provided facts."
)

// Prompt caps keep the facts section bounded for codes with hundreds of
// recorded names or hosts.
const (
	maxNamesInPrompt = 5
	maxHostsInPrompt = 10
)

const systemPrompt = `You are an expert plant pathologist and agricultural advisor. Your expertise includes disease diagnosis, treatment protocols, and integrated pest management.

Your communication style:
- Clear, concise, and action-oriented
- Use simple language accessible to farmers and gardeners
- Provide specific, practical advice (not vague generalities)
- Include dosages, timing, and application methods when relevant
- Acknowledge limitations or uncertainties honestly

Your response structure:
1. Confirmation: State clearly if prediction matches EPPO data (Yes/No + reasoning)
2. Disease Overview: Explain cause, symptoms, and impact in 2-3 sentences
3. Treatment: Provide 3-5 concrete actions with implementation details
4. Prevention: List 3-5 preventive measures in priority order

Avoid:
- Generic advice like "maintain good hygiene" without specifics
- Overly technical jargon without explanation
- Unverified information not supported by EPPO data
- Recommending products without active ingredients`

const userPromptTemplate = `Vision Model Prediction: "%s"

=== EPPO DATABASE INFORMATION ===
%s

=== YOUR TASK ===
Analyze the prediction against EPPO data and provide a structured response:

**1. CONFIRMATION**
   - Does the prediction match the EPPO disease? (YES/NO)
   - Explain your reasoning (2-3 sentences)
   - If NO, specify what the prediction likely refers to

**2. DISEASE OVERVIEW**
   - Causative agent (pathogen type and scientific name)
   - Primary symptoms (visible signs on plant)
   - Economic/agricultural impact

**3. TREATMENT OPTIONS** (in order of effectiveness)
   - Option 1: [Method] - [Active ingredient/approach] - [Application timing]
   - Option 2: [Method] - [Active ingredient/approach] - [Application timing]
   - Option 3: [Method] - [Active ingredient/approach] - [Application timing]

**4. PREVENTION STRATEGIES** (proactive measures)
   - Priority 1: [Most critical preventive action]
   - Priority 2: [Second most important]
   - Priority 3: [Additional preventive measure]

Keep each section concise (3-5 bullet points max). Focus on what farmers can DO, not just what to know.`

// Stats counts generation activity. CallCount includes failed requests.
type Stats struct {
	CallCount int64 `json:"call_count"`
}

// Generator composes advisory answers through a completion provider.
type Generator struct {
	client   LLMClient
	provider string

	mu        sync.Mutex
	callCount int64
}

// New creates a Generator for the configured provider. A missing or
// unusable API key is not fatal here: the generator degrades to a fixed
// key-not-set message at call time, which keeps verification-only runs
// usable.
func New(cfg config.GenerationConfig) *Generator {
	g := &Generator{provider: cfg.Provider}

	if cfg.APIKey == "" {
		return g
	}

	client, err := NewLLMClient(cfg)
	if err != nil {
		logging.LLMError("Provider %s unavailable: %v", cfg.Provider, err)
		return g
	}
	g.client = client
	return g
}

// NewWithClient creates a Generator around an existing client.
func NewWithClient(client LLMClient, provider string) *Generator {
	return &Generator{client: client, provider: provider}
}

// Generate composes the advisory answer for a verified label. The return
// value is always a user-facing string; provider failures degrade to
// fallback messages rather than errors.
func (g *Generator) Generate(ctx context.Context, label string, facts types.Facts) string {
	formatted := formatFacts(facts)
	if strings.TrimSpace(formatted) == "" {
		return MsgNoFactsAvailable
	}

	if g.client == nil {
		return fmt.Sprintf("I cannot generate a response: %s API key is not set.", providerDisplayName(g.provider))
	}

	g.mu.Lock()
	g.callCount++
	g.mu.Unlock()

	userPrompt := fmt.Sprintf(userPromptTemplate, label, formatted)

	answer, err := g.client.CompleteWithSystem(ctx, systemPrompt, userPrompt)
	if err != nil {
		logging.LLMError("Generation for %q failed: %v", label, err)
		return fmt.Sprintf("I cannot generate a response: %v", err)
	}
	if answer == "" {
		return MsgEmptyCompletion
	}
	return answer
}

// Stats returns a snapshot of the generation counters.
func (g *Generator) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return Stats{CallCount: g.callCount}
}

// formatFacts renders the facts block of the prompt. An empty string
// means there is nothing defensible to show the model.
func formatFacts(facts types.Facts) string {
	var parts []string

	if facts.Overview != nil {
		if facts.Overview.PrefName != "" {
			parts = append(parts, "Disease/Pest: "+facts.Overview.PrefName)
		}
		if code := facts.Overview.EPPOCode.String(); code != "" {
			parts = append(parts, "EPPO Code: "+code)
		}
	}

	var commonNames []string
	for _, n := range facts.Names {
		if n.FullName != "" {
			commonNames = append(commonNames, n.FullName)
		}
	}
	if len(commonNames) > 0 {
		if len(commonNames) > maxNamesInPrompt {
			commonNames = commonNames[:maxNamesInPrompt]
		}
		parts = append(parts, "Also known as: "+strings.Join(commonNames, ", "))
	}

	var hosts []string
	for _, h := range facts.Hosts {
		if h.PrefName == "" {
			continue
		}
		if h.ClassLabel != "" {
			hosts = append(hosts, fmt.Sprintf("%s (%s)", h.PrefName, h.ClassLabel))
		} else {
			hosts = append(hosts, h.PrefName)
		}
	}
	if len(hosts) > 0 {
		if len(hosts) > maxHostsInPrompt {
			hosts = hosts[:maxHostsInPrompt]
		}
		parts = append(parts, "Commonly affects: "+strings.Join(hosts, ", "))
	}

	return strings.Join(parts, "\n")
}
