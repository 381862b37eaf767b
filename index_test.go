package fabls

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/fabls/internal/depgraph"
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
	resolved, ok := depgraph.Canonical(path)
	require.True(t, ok, "canonicalize %s", path)
	return resolved
}

// newTestWorkspace lays out a project with two sources sharing one config
// and returns the root plus the source paths.
func newTestWorkspace(t *testing.T) (root, mainPath, playerPath string) {
	t.Helper()
	root = t.TempDir()
	mainPath = writeFile(t, filepath.Join(root, "main.fab"),
		"mode main()\n    update_player(1)\n")
	playerPath = writeFile(t, filepath.Join(root, "player.fab"),
		"// Moves the player.\nfn update_player(U dx)\n    px += dx\n\nvars\n    U px = 128\n")
	writeFile(t, filepath.Join(root, "game.cfg"),
		"input = main.fab\ninput = player.fab\n")
	return root, mainPath, playerPath
}

func TestUpdateFile_CachesSymbols(t *testing.T) {
	ix := New()

	err := ix.UpdateFile("game.fab", []byte("fn add(U a, U b)\n    return a + b\n"))
	require.NoError(t, err)

	assert.True(t, ix.IsIndexed("game.fab"))
	text, ok := ix.Text("game.fab")
	require.True(t, ok)
	assert.Equal(t, "fn add(U a, U b)\n    return a + b\n", text)

	tables := ix.Tables()
	require.Contains(t, tables, "game.fab")
	assert.NotNil(t, tables["game.fab"].Functions["add"])
}

func TestUpdateFile_Idempotent(t *testing.T) {
	ix := New()
	src := []byte("fn add(U a, U b)\n    return a + b\n")

	require.NoError(t, ix.UpdateFile("game.fab", src))
	require.NoError(t, ix.UpdateFile("game.fab", src))

	tables := ix.Tables()
	require.Contains(t, tables, "game.fab")
	assert.Len(t, tables["game.fab"].Functions, 1)
}

func TestUpdateFile_ParseFailureKeepsPreviousTable(t *testing.T) {
	ix := New()
	require.NoError(t, ix.UpdateFile("game.fab", []byte("fn add()\n    return\n")))

	err := ix.UpdateFile("game.fab", []byte("fn broken(\n"))
	require.Error(t, err)

	// The text store reflects the new content, the symbol table the last
	// good extraction.
	text, ok := ix.Text("game.fab")
	require.True(t, ok)
	assert.Equal(t, "fn broken(\n", text)

	tables := ix.Tables()
	require.Contains(t, tables, "game.fab")
	assert.NotNil(t, tables["game.fab"].Functions["add"])
}

func TestUpdateFile_ExtractFailureKeepsPreviousTable(t *testing.T) {
	ix := New()
	require.NoError(t, ix.UpdateFile("game.fab", []byte("fn add()\n    return\n")))

	// Parses, but the definition has no name.
	err := ix.UpdateFile("game.fab", []byte("fn ()\n    return\n"))
	require.Error(t, err)

	tables := ix.Tables()
	assert.NotNil(t, tables["game.fab"].Functions["add"])
}

func TestRefreshWorkspace_IndexesReferencedFiles(t *testing.T) {
	root, mainPath, playerPath := newTestWorkspace(t)
	ix := New()

	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))

	assert.True(t, ix.IsIndexed(mainPath))
	assert.True(t, ix.IsIndexed(playerPath))
	assert.Contains(t, ix.Roots(), canonical(t, root))

	deps := ix.Dependencies(mainPath)
	assert.ElementsMatch(t, []string{canonical(t, mainPath), canonical(t, playerPath)}, deps)
}

func TestRefreshWorkspace_SkipsBrokenFiles(t *testing.T) {
	root := t.TempDir()
	good := writeFile(t, filepath.Join(root, "good.fab"), "fn good()\n    return\n")
	bad := writeFile(t, filepath.Join(root, "bad.fab"), "fn broken(\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = good.fab\ninput = bad.fab\n")

	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))

	assert.True(t, ix.IsIndexed(good))
	assert.False(t, ix.IsIndexed(bad))
}

func TestRefreshWorkspace_RemoveRootEvictsDependencies(t *testing.T) {
	root, mainPath, _ := newTestWorkspace(t)
	other := t.TempDir()
	secret := writeFile(t, filepath.Join(other, "secret.fab"), "fn secret()\n    return\n")
	writeFile(t, filepath.Join(other, "other.cfg"), "input = secret.fab\n")

	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root, other}, nil))
	require.NotEmpty(t, ix.Dependencies(secret))

	require.NoError(t, ix.RefreshWorkspace(context.Background(), nil, []string{other}))

	// The graph entry is gone, but cached symbols are never evicted.
	assert.Empty(t, ix.Dependencies(secret))
	assert.True(t, ix.IsIndexed(secret))
	assert.NotEmpty(t, ix.Dependencies(mainPath))
	assert.NotContains(t, ix.Roots(), canonical(t, other))
}

func TestRefreshWorkspace_RescanOnReAdd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.fab"), "fn a()\n    return\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = a.fab\n")

	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))
	require.Len(t, ix.Dependencies(filepath.Join(root, "a.fab")), 1)

	// A grown config is picked up when the root is removed and re-added.
	b := writeFile(t, filepath.Join(root, "b.fab"), "fn b()\n    return\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = a.fab\ninput = b.fab\n")
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, []string{root}))

	assert.True(t, ix.IsIndexed(b))
	assert.Len(t, ix.Dependencies(b), 2)
}

func TestRefreshWorkspace_FallbackDir(t *testing.T) {
	install := t.TempDir()
	lib := writeFile(t, filepath.Join(install, "lib", "nes.fab"), "fn ppu_reset()\n    return\n")
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "game.cfg"), "input = lib/nes.fab\n")

	ix := New(WithFallbackDir(install))
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))

	assert.True(t, ix.IsIndexed(lib))
}

func TestText_Unknown(t *testing.T) {
	ix := New()
	_, ok := ix.Text("never-seen.fab")
	assert.False(t, ok)
}
