package fabls

import (
	"context"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/jward/fabls/internal/depgraph"
	"github.com/jward/fabls/internal/extract"
)

// bulkIndex reads, parses, and extracts every graph-referenced file that has
// no cached symbol table yet. Files are independent, so the work is
// data-parallel with no ordering guarantee; results merge additively into
// the stores. Per-file read, parse, and extraction failures are logged and
// skipped; a broken file on disk must not fail the whole refresh.
func (ix *Index) bulkIndex(ctx context.Context, graph map[string]depgraph.PathSet) error {
	var pending []string
	seen := make(map[string]struct{})
	for _, set := range graph {
		for path := range set {
			if _, dup := seen[path]; dup {
				continue
			}
			seen[path] = struct{}{}
			if !ix.symbols.Contains(path) {
				pending = append(pending, path)
			}
		}
	}
	if len(pending) == 0 {
		return nil
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > len(pending) {
		workers = len(pending)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, path := range pending {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ix.indexFromDisk(path)
			return nil
		})
	}
	return g.Wait()
}

// indexFromDisk loads one file and caches text, tree, and table together.
// Each call parses with its own parser instance.
func (ix *Index) indexFromDisk(path string) {
	src, err := os.ReadFile(path)
	if err != nil {
		log.Debugf("skip %s: %s", path, err.Error())
		return
	}
	tree, err := ix.parsers().Parse(src)
	if err != nil {
		log.Debugf("skip %s: %s", path, err.Error())
		return
	}
	table, err := extract.FromTree(src, tree)
	if err != nil {
		log.Debugf("skip %s: %s", path, err.Error())
		return
	}

	ix.sources.Set(path, src)
	ix.trees.Set(path, tree)
	ix.symbols.Set(path, table)
	log.Infof("symbol table cached: %s", path)
}
