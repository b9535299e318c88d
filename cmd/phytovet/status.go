package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"phytovet/internal/store"
)

// statusCmd shows configuration and reference store status
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and reference store status",
	RunE:  showStatus,
}

func showStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("phytovet status")
	fmt.Println("===============")
	fmt.Printf("Config:    %s\n", configPath)
	fmt.Printf("Provider:  %s (%s)\n", cfg.Generation.Provider, cfg.Generation.Model)
	fmt.Printf("Threshold: %.2f\n", cfg.Retrieval.ConfidenceThreshold)
	fmt.Printf("Cache dir: %s\n", cfg.EPPO.CacheDir)
	fmt.Println()

	// Stat before opening: Open would create an empty database file.
	if _, err := os.Stat(cfg.Store.Path); err != nil {
		fmt.Printf("✗ Reference store missing at %s (run 'phytovet import')\n", cfg.Store.Path)
	} else if st, err := store.Open(cfg.Store.Path); err != nil {
		fmt.Printf("✗ Reference store unreadable: %v\n", err)
	} else {
		codes, names, cerr := st.Counts()
		st.Close()
		if cerr != nil {
			fmt.Printf("✗ Reference store unreadable: %v\n", cerr)
		} else {
			fmt.Printf("✓ Reference store: %s (%d codes, %d names)\n", cfg.Store.Path, codes, names)
		}
	}

	if cfg.EPPO.APIKey != "" {
		fmt.Println("✓ EPPO API key configured")
	} else {
		fmt.Println("✗ EPPO API key not configured (set EPPO_API_KEY)")
	}
	if cfg.Generation.APIKey != "" {
		fmt.Println("✓ Generation API key configured")
	} else {
		fmt.Println("✗ Generation API key not configured (set GROQ_API_KEY or GEMINI_API_KEY)")
	}

	return nil
}
