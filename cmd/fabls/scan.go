package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/fabls"
	"github.com/jward/fabls/internal/store"
)

var (
	flagDB     string
	flagFormat string
)

var scanCmd = &cobra.Command{
	Use:   "scan [root...]",
	Short: "Index project trees offline and write a SQLite snapshot",
	Long:  "Walks the given roots (default: current directory) for .cfg build descriptors, indexes every source they reference, and writes the resulting symbol tables to a SQLite database.",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&flagDB, "db", "fabls.db", "database path for the symbol snapshot")
	scanCmd.Flags().StringVar(&flagFormat, "format", "text", "output format: json|text")
}

// scanSummary is what scan reports after a run.
type scanSummary struct {
	Roots    []string `json:"roots"`
	Files    int64    `json:"files"`
	Symbols  int64    `json:"symbols"`
	Database string   `json:"database"`
	Duration string   `json:"duration"`
}

func runScan(cmd *cobra.Command, args []string) error {
	if flagFormat != "json" && flagFormat != "text" {
		return fmt.Errorf("invalid format %q: must be json or text", flagFormat)
	}

	start := time.Now()

	roots, err := resolveRoots(args)
	if err != nil {
		return err
	}

	index := fabls.New(fabls.WithFallbackDir(resolveFallbackDir()))
	if err := index.RefreshWorkspace(context.Background(), roots, nil); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}

	dbPath, err := filepath.Abs(flagDB)
	if err != nil {
		return fmt.Errorf("resolving path %q: %w", flagDB, err)
	}
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()
	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	tables := index.Tables()
	paths := make([]string, 0, len(tables))
	for path := range tables {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		if _, err := st.WriteFileSymbols(path, tables[path]); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}

	files, symbols, err := st.Totals()
	if err != nil {
		return fmt.Errorf("reading totals: %w", err)
	}

	summary := scanSummary{
		Roots:    roots,
		Files:    files,
		Symbols:  symbols,
		Database: dbPath,
		Duration: time.Since(start).Round(time.Millisecond).String(),
	}

	if flagFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	fmt.Printf("Indexed %d files, %d symbols in %s\n", summary.Files, summary.Symbols, summary.Duration)
	fmt.Printf("Database: %s\n", summary.Database)
	return nil
}
