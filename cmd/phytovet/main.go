package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"phytovet/internal/config"
	"phytovet/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Loaded once in PersistentPreRunE and shared by all commands.
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "phytovet",
	Short: "phytovet - verified plant disease diagnosis from vision labels",
	Long: `phytovet turns noisy computer-vision disease labels into verified,
evidence-backed diagnoses.

Every label must earn its answer: it is normalized, matched against a
local copy of the EPPO code registry, scored for confidence, and the
facts retrieved from the EPPO Global Database are validated against the
label before any language model is allowed to speak. A label that fails
any stage gets a fixed refusal message instead of a generated answer.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		logOpts := logging.Options{
			DebugMode:  verbose || cfg.Logging.Level == "debug",
			Level:      cfg.Logging.Level,
			JSONFormat: cfg.Logging.JSONFormat,
		}
		if verbose {
			logOpts.Level = "debug"
		}
		if err := logging.Initialize(cfg.Logging.Dir, logOpts); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}

		logging.Boot("phytovet starting: config=%s db=%s provider=%s", configPath, cfg.Store.Path, cfg.Generation.Provider)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", filepath.Join(".phytovet", "config.yaml"), "Path to the YAML config file")

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
