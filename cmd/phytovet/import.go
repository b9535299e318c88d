package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phytovet/internal/store"
)

var (
	// Import flags
	codesCSV string
	namesCSV string
	dbPath   string
)

// importCmd loads the EPPO data-export CSVs into the reference store
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load the EPPO code and name tables from CSV exports",
	Long: `Loads the EPPO Global Database data-export CSVs into the local
reference store. The codes file carries the code registry
(codeid, eppocode, dtcode, status); the names file carries the full
names (codeid, fullname, status). Existing rows are replaced, so the
import can be re-run on a fresh export.

Example:
  phytovet import --codes t_codes.csv --names t_names.csv`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&codesCSV, "codes", "", "Path to the codes CSV export (required)")
	importCmd.Flags().StringVar(&namesCSV, "names", "", "Path to the names CSV export (required)")
	importCmd.Flags().StringVar(&dbPath, "db", "", "Reference store path (default: configured store path)")
	importCmd.MarkFlagRequired("codes")
	importCmd.MarkFlagRequired("names")
}

func runImport(cmd *cobra.Command, args []string) error {
	path := cfg.Store.Path
	if dbPath != "" {
		path = dbPath
	}

	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open reference store: %w", err)
	}
	defer st.Close()

	logger.Info("Importing reference data",
		zap.String("codes", codesCSV),
		zap.String("names", namesCSV),
		zap.String("db", path))

	stats, err := st.ImportCSV(codesCSV, namesCSV)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	codes, names, err := st.Counts()
	if err != nil {
		return fmt.Errorf("failed to count imported rows: %w", err)
	}

	fmt.Printf("Imported %d codes and %d names into %s\n", stats.Codes, stats.Names, path)
	fmt.Printf("Store now holds %d codes and %d names\n", codes, names)
	return nil
}
