package depgraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile creates a file with parent directories.
func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func canonical(t *testing.T, path string) string {
	t.Helper()
	resolved, ok := Canonical(path)
	require.True(t, ok, "canonicalize %s", path)
	return resolved
}

func TestBuild_ResolvesInputsRelativeToConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.fab"), "fn main()\n")
	writeFile(t, filepath.Join(root, "lib", "math.fab"), "fn add()\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = main.fab\ninput = lib/math.fab\n")

	var b Builder
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)

	dir := canonical(t, root)
	require.Contains(t, graph, dir)
	deps := graph[dir]
	assert.Len(t, deps, 2)
	assert.True(t, deps.Contains(canonical(t, filepath.Join(root, "main.fab"))))
	assert.True(t, deps.Contains(canonical(t, filepath.Join(root, "lib", "math.fab"))))
}

func TestBuild_FallbackDir(t *testing.T) {
	root := t.TempDir()
	install := t.TempDir()
	writeFile(t, filepath.Join(install, "lib", "nes.fab"), "fn ppu_reset()\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = lib/nes.fab\n")

	b := Builder{FallbackDir: install}
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)

	deps := graph[canonical(t, root)]
	require.Len(t, deps, 1)
	assert.True(t, deps.Contains(canonical(t, filepath.Join(install, "lib", "nes.fab"))))
}

func TestBuild_LocalWinsOverFallback(t *testing.T) {
	root := t.TempDir()
	install := t.TempDir()
	writeFile(t, filepath.Join(root, "nes.fab"), "// local\n")
	writeFile(t, filepath.Join(install, "nes.fab"), "// installed\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = nes.fab\n")

	b := Builder{FallbackDir: install}
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)

	deps := graph[canonical(t, root)]
	require.Len(t, deps, 1)
	assert.True(t, deps.Contains(canonical(t, filepath.Join(root, "nes.fab"))))
	assert.False(t, deps.Contains(canonical(t, filepath.Join(install, "nes.fab"))))
}

func TestBuild_DropsUnresolvableInputsSilently(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.fab"), "fn main()\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = main.fab\ninput = missing.fab\n")

	var b Builder
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)

	deps := graph[canonical(t, root)]
	assert.Len(t, deps, 1)
}

func TestBuild_ExcludesMacroIncludes(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "macros.macrofab"), "// macros\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = macros.macrofab\n")

	var b Builder
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)

	assert.Empty(t, graph[canonical(t, root)])
}

func TestBuild_IgnoresMalformedLines(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.fab"), "fn main()\n")
	writeFile(t, filepath.Join(root, "game.cfg"),
		"output = game.nes\ninput = main.fab\ninput = a = b\ninput =\n# comment\n")

	var b Builder
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)

	deps := graph[canonical(t, root)]
	require.Len(t, deps, 1)
	assert.True(t, deps.Contains(canonical(t, filepath.Join(root, "main.fab"))))
}

func TestBuild_MultipleConfigDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "a.fab"), "fn a()\n")
	writeFile(t, filepath.Join(root, "a", "a.cfg"), "input = a.fab\n")
	writeFile(t, filepath.Join(root, "b", "b.fab"), "fn b()\n")
	writeFile(t, filepath.Join(root, "b", "b.cfg"), "input = b.fab\n")

	var b Builder
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)

	assert.Len(t, graph, 2)
	assert.Contains(t, graph, canonical(t, filepath.Join(root, "a")))
	assert.Contains(t, graph, canonical(t, filepath.Join(root, "b")))
}

func TestBuild_NoConfigs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "orphan.fab"), "fn orphan()\n")

	var b Builder
	graph, err := b.Build(context.Background(), []string{root})
	require.NoError(t, err)
	assert.Empty(t, graph)
}

func TestBuild_CancelledContext(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "game.cfg"), "input = main.fab\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b Builder
	_, err := b.Build(ctx, []string{root})
	require.Error(t, err)
}

func TestCanonical_MissingPath(t *testing.T) {
	_, ok := Canonical(filepath.Join(t.TempDir(), "nope.fab"))
	assert.False(t, ok)
}
