package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"phytovet/internal/eppo"
	"phytovet/internal/generation"
	"phytovet/internal/pipeline"
	"phytovet/internal/store"
	"phytovet/internal/types"
)

var (
	// Diagnose flags
	labelsFile string
	parallel   int
	jsonOutput bool
)

// diagnoseCmd verifies labels against EPPO data and generates advice
var diagnoseCmd = &cobra.Command{
	Use:   "diagnose [label]...",
	Short: "Verify disease labels against EPPO data and generate advice",
	Long: `Runs each label through the verification gate: normalization,
reference-store lookup, confidence scoring, EPPO fact retrieval, and
lexical validation. Only labels that survive every stage reach the
language model; everything else returns a fixed refusal message.

Labels come from the command line, from --file (one per line), or both.

Examples:
  phytovet diagnose "Rice leaf blast"
  phytovet diagnose --file labels.txt --parallel 4
  phytovet diagnose --json "Tomato late blight" "Wheat leaf rust"`,
	RunE: runDiagnose,
}

func init() {
	diagnoseCmd.Flags().StringVarP(&labelsFile, "file", "f", "", "Read labels from a file, one per line")
	diagnoseCmd.Flags().IntVarP(&parallel, "parallel", "p", 1, "Number of labels to diagnose concurrently")
	diagnoseCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit results as JSON instead of text")
}

// labeledResult pairs a diagnosis with the label that produced it.
type labeledResult struct {
	Label string `json:"label"`
	types.DiagnosisResult
}

func runDiagnose(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	labels := append([]string(nil), args...)
	if labelsFile != "" {
		fromFile, err := readLabels(labelsFile)
		if err != nil {
			return err
		}
		labels = append(labels, fromFile...)
	}
	if len(labels) == 0 {
		return fmt.Errorf("no labels to diagnose: pass labels as arguments or use --file")
	}
	if parallel < 1 {
		parallel = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open reference store: %w", err)
	}
	defer st.Close()

	client := eppo.New(cfg)
	gen := generation.New(cfg.Generation)
	pipe := pipeline.New(cfg, st, client, gen)

	logger.Info("Diagnosing labels",
		zap.Int("count", len(labels)),
		zap.Int("parallel", parallel),
		zap.String("provider", cfg.Generation.Provider))

	if !jsonOutput {
		fmt.Println("phytovet - plant disease diagnosis")
		fmt.Println(strings.Repeat("=", 80))
		fmt.Printf("Database:  %s\n", cfg.Store.Path)
		fmt.Printf("Threshold: %.2f\n", cfg.Retrieval.ConfidenceThreshold)
		fmt.Printf("Model:     %s (%s)\n", cfg.Generation.Model, cfg.Generation.Provider)
		fmt.Println(strings.Repeat("=", 80))
	}

	results := make([]types.DiagnosisResult, len(labels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, label := range labels {
		g.Go(func() error {
			results[i] = pipe.Diagnose(gctx, label)
			return nil // A refusal is a result, not a group failure.
		})
	}
	_ = g.Wait()

	if jsonOutput {
		out := make([]labeledResult, len(labels))
		for i, label := range labels {
			out[i] = labeledResult{Label: label, DiagnosisResult: results[i]}
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	for i, label := range labels {
		printResult(label, results[i])
	}
	printSummary(results, client, gen)
	return nil
}

// readLabels loads labels from a file, one per line. Blank lines and
// lines starting with # are skipped.
func readLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	var labels []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		labels = append(labels, line)
	}
	return labels, nil
}

func printResult(label string, res types.DiagnosisResult) {
	status := "VERIFIED"
	if res.Refused {
		status = "REFUSED"
	}
	fmt.Printf("\n%s: %s\n", status, label)
	fmt.Println(strings.Repeat("-", 80))
	fmt.Println(res.Message)
	if res.EPPOCode != "" {
		fmt.Printf("\nEPPO code:  %s\n", res.EPPOCode)
	}
	if res.Confidence != nil {
		fmt.Printf("Confidence: %.2f%%\n", *res.Confidence*100)
	}
}

func printSummary(results []types.DiagnosisResult, client *eppo.Client, gen *generation.Generator) {
	verified := 0
	confSum := 0.0
	for _, res := range results {
		if !res.Refused {
			verified++
		}
		if res.Confidence != nil {
			confSum += *res.Confidence
		}
	}
	refused := len(results) - verified
	total := float64(len(results))

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SUMMARY")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Verified: %d/%d (%.1f%%)\n", verified, len(results), float64(verified)/total*100)
	fmt.Printf("Refused:  %d/%d (%.1f%%)\n", refused, len(results), float64(refused)/total*100)
	fmt.Printf("Average confidence: %.2f%%\n", confSum/total*100)

	eppoStats := client.Stats()
	fmt.Printf("\nEPPO cache: %d hits, %d misses, %d API calls\n",
		eppoStats.CacheHits, eppoStats.CacheMisses, eppoStats.APICalls)
	fmt.Printf("LLM calls:  %d\n", gen.Stats().CallCount)
}
