package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var flagFallbackDir string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "fabls",
	Short:         "Language intelligence for NesFab projects",
	Long:          "fabls indexes NesFab sources and their .cfg build descriptors, serving hover, go-to-definition, and completion over LSP or writing an offline SQLite snapshot of the symbol index.",
	SilenceErrors: true,
	SilenceUsage:  true,
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagFallbackDir, "fallback-dir", "",
		"base directory for config inputs that don't resolve relative to their .cfg file (default: $NESFAB)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
}

// resolveFallbackDir returns the --fallback-dir flag or the NESFAB
// environment variable, matching how the compiler locates its library
// sources. Empty means no fallback resolution.
func resolveFallbackDir() string {
	if flagFallbackDir != "" {
		return flagFallbackDir
	}
	return os.Getenv("NESFAB")
}

// resolveRoots turns positional root arguments into absolute existing
// directories. No arguments means the current directory.
func resolveRoots(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	roots := make([]string, 0, len(args))
	for _, arg := range args {
		abs, err := absDir(arg)
		if err != nil {
			return nil, err
		}
		roots = append(roots, abs)
	}
	return roots, nil
}

func absDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
