// Package depgraph builds the project dependency graph from NesFab build
// configuration files. Each .cfg file declares the .fab sources that belong
// to one build via "input = <path>" lines; the graph maps every config
// directory to the resolved set of those sources.
package depgraph

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

const (
	// ConfigExt marks per-directory build descriptor files.
	ConfigExt = ".cfg"
	// SourceExt marks NesFab source files. Include files (.macrofab) are
	// deliberately not dependencies: they never define module-scope symbols.
	SourceExt = ".fab"
)

// PathSet is a set of canonical file paths.
type PathSet map[string]struct{}

// Contains reports set membership.
func (s PathSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Graph maps a config file's containing directory to the source files that
// config declares as inputs. Directories without a config file are absent.
type Graph map[string]PathSet

// Builder resolves config input references. The zero value is usable; set
// FallbackDir to also try references relative to an installation directory
// (the original toolchain's NESFAB root) when they don't exist next to the
// config file.
type Builder struct {
	FallbackDir string
}

// Build scans every root recursively for config files and parses them in
// parallel. Per-file work shares nothing mutable, so the merge is a plain
// union. Unreadable configs and unresolvable references are dropped
// silently; the only returned error is context cancellation.
func (b *Builder) Build(ctx context.Context, roots []string) (Graph, error) {
	cfgFiles := collectConfigFiles(roots)

	graph := make(Graph, len(cfgFiles))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, cfgPath := range cfgFiles {
		cfgPath := cfgPath
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			refs, err := readInputs(cfgPath)
			if err != nil {
				return nil
			}
			dir, ok := Canonical(filepath.Dir(cfgPath))
			if !ok {
				return nil
			}
			deps := b.resolve(dir, refs)
			mu.Lock()
			graph[dir] = deps
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return graph, nil
}

// collectConfigFiles enumerates config files under each root, deduplicated.
// Unwalkable entries are skipped.
func collectConfigFiles(roots []string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, root := range roots {
		filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() || filepath.Ext(path) != ConfigExt {
				return nil
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				files = append(files, path)
			}
			return nil
		})
	}
	return files
}

// readInputs extracts the raw path references from one config file. A
// reference line has the form "input = <value>" with exactly one "=" and
// both sides trimmed.
func readInputs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var refs []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		parts := strings.Split(scanner.Text(), "=")
		if len(parts) != 2 {
			continue
		}
		if strings.TrimSpace(parts[0]) != "input" {
			continue
		}
		if value := strings.TrimSpace(parts[1]); value != "" {
			refs = append(refs, value)
		}
	}
	return refs, scanner.Err()
}

// resolve maps raw references to canonical existing source paths. Each
// reference is tried relative to the config directory first, then relative
// to the fallback directory; references that resolve nowhere, or to a
// non-source extension, are dropped.
func (b *Builder) resolve(cfgDir string, refs []string) PathSet {
	deps := make(PathSet, len(refs))
	for _, ref := range refs {
		candidates := []string{filepath.Join(cfgDir, ref)}
		if b.FallbackDir != "" {
			candidates = append(candidates, filepath.Join(b.FallbackDir, ref))
		}
		for _, candidate := range candidates {
			resolved, ok := Canonical(candidate)
			if !ok {
				continue
			}
			if filepath.Ext(resolved) == SourceExt {
				deps[resolved] = struct{}{}
			}
			break
		}
	}
	return deps
}

// Canonical returns the absolute, symlink-resolved form of path. ok is false
// when the path does not exist.
func Canonical(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", false
	}
	return resolved, true
}
