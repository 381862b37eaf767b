package fabls

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/fabls/internal/syntax"
)

func TestHoverAt_SameFile(t *testing.T) {
	ix := New()
	src := "// Adds two numbers.\nfn add(U a, U b)\n    return a + b\n\nmode main()\n    add(1, 2)\n"
	require.NoError(t, ix.UpdateFile("game.fab", []byte(src)))

	// Row 5 is "    add(1, 2)"; the cursor sits on the callee.
	hover, ok := ix.HoverAt("game.fab", syntax.Point{Row: 5, Column: 5})
	require.True(t, ok)
	assert.Equal(t, "// Adds two numbers.\nfn add(U a, U b)", hover.Description)
	assert.Equal(t, "game.fab", hover.Path)
}

func TestDefinitionAt_SameFile(t *testing.T) {
	ix := New()
	src := "fn add(U a, U b)\n    return a + b\n\nmode main()\n    add(1, 2)\n"
	require.NoError(t, ix.UpdateFile("game.fab", []byte(src)))

	def, ok := ix.DefinitionAt("game.fab", syntax.Point{Row: 4, Column: 5})
	require.True(t, ok)
	assert.Equal(t, "game.fab", def.Path)
	assert.Equal(t, uint32(0), def.Range.Start.Row)
}

func TestFindSymbol_UntypedSignature(t *testing.T) {
	ix := New()
	src := "fn add(a, b)\n    return a + b\n\nmode main()\n    add(1, 2)\n"
	require.NoError(t, ix.UpdateFile("game.fab", []byte(src)))

	_, sym, ok := ix.FindSymbol("game.fab", syntax.Point{Row: 4, Column: 5})
	require.True(t, ok)
	assert.Equal(t, "fn add(a, b)", sym.Description)
	assert.Equal(t, uint32(0), sym.Range.Start.Row)
}

func TestFindSymbol_CrossFile(t *testing.T) {
	root, mainPath, playerPath := newTestWorkspace(t)
	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))

	// Row 1 of main.fab is "    update_player(1)".
	defPath, sym, ok := ix.FindSymbol(mainPath, syntax.Point{Row: 1, Column: 8})
	require.True(t, ok)
	assert.Equal(t, canonical(t, playerPath), defPath)
	assert.Equal(t, "update_player", sym.Name)
	assert.Equal(t, "// Moves the player.\nfn update_player(U dx)", sym.Description)
}

func TestFindSymbol_CallSiteIgnoresVariables(t *testing.T) {
	ix := New()
	src := "vars\n    U draw = 0\n\nmode main()\n    draw()\n"
	require.NoError(t, ix.UpdateFile("game.fab", []byte(src)))

	// "draw" names a variable, but a call site resolves functions only.
	_, _, ok := ix.FindSymbol("game.fab", syntax.Point{Row: 4, Column: 5})
	assert.False(t, ok)
}

func TestFindSymbol_VariableReference(t *testing.T) {
	ix := New()
	src := "vars\n    U px = 128\n\nmode main()\n    px = 1\n"
	require.NoError(t, ix.UpdateFile("game.fab", []byte(src)))

	defPath, sym, ok := ix.FindSymbol("game.fab", syntax.Point{Row: 4, Column: 4})
	require.True(t, ok)
	assert.Equal(t, "game.fab", defPath)
	assert.Equal(t, KindVariable, sym.Kind)
	assert.Equal(t, "U px = 128", sym.Signature)
}

func TestFindSymbol_FunctionShadowsVariable(t *testing.T) {
	ix := New()
	src := "vars\n    U x = 0\n\nfn x()\n    return\n\nmode main()\n    y = x\n"
	require.NoError(t, ix.UpdateFile("game.fab", []byte(src)))

	// Outside a call, functions are still searched before variables.
	_, sym, ok := ix.FindSymbol("game.fab", syntax.Point{Row: 7, Column: 8})
	require.True(t, ok)
	assert.Equal(t, KindFunction, sym.Kind)
}

func TestFindSymbol_NonIdentifierPosition(t *testing.T) {
	ix := New()
	src := "vars\n    U px = 128\n\nmode main()\n    px = 1\n"
	require.NoError(t, ix.UpdateFile("game.fab", []byte(src)))

	// Row 4 column 9 is the literal "1".
	_, _, ok := ix.FindSymbol("game.fab", syntax.Point{Row: 4, Column: 9})
	assert.False(t, ok)
}

func TestFindSymbol_UnindexedFile(t *testing.T) {
	ix := New()
	_, _, ok := ix.FindSymbol("never-seen.fab", syntax.Point{})
	assert.False(t, ok)
}

func TestFindSymbol_PrefersConfigNeighbor(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.fab"), "mode main()\n    shiny()\n")
	lib := writeFile(t, filepath.Join(root, "lib.fab"), "fn shiny()\n    return\n")
	writeFile(t, filepath.Join(root, "game.cfg"), "input = a.fab\ninput = lib.fab\n")

	other := t.TempDir()
	// Sorts before lib.fab but shares no config with a.fab.
	writeFile(t, filepath.Join(other, "aaa.fab"), "fn shiny()\n    return\n")
	writeFile(t, filepath.Join(other, "other.cfg"), "input = aaa.fab\n")

	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root, other}, nil))

	defPath, _, ok := ix.FindSymbol(filepath.Join(root, "a.fab"), syntax.Point{Row: 1, Column: 5})
	require.True(t, ok)
	assert.Equal(t, canonical(t, lib), defPath)
}

func TestCompletion_ScopedToSharedConfig(t *testing.T) {
	root, mainPath, _ := newTestWorkspace(t)
	other := t.TempDir()
	writeFile(t, filepath.Join(other, "secret.fab"), "fn secret()\n    return\n")
	writeFile(t, filepath.Join(other, "other.cfg"), "input = secret.fab\n")

	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root, other}, nil))

	items := ix.Completion(mainPath)
	var names []string
	for _, item := range items {
		names = append(names, item.Name)
	}
	assert.Equal(t, []string{"main", "px", "update_player"}, names)
}

func TestCompletion_UnknownFileIsEmpty(t *testing.T) {
	ix := New()
	assert.Empty(t, ix.Completion("never-seen.fab"))
}

func TestCompletion_CarriesDocumentation(t *testing.T) {
	root, mainPath, _ := newTestWorkspace(t)
	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))

	items := ix.Completion(mainPath)
	byName := make(map[string]CompletionItem, len(items))
	for _, item := range items {
		byName[item.Name] = item
	}
	assert.Equal(t, KindFunction, byName["update_player"].Kind)
	assert.Equal(t, "// Moves the player.\nfn update_player(U dx)", byName["update_player"].Documentation)
	assert.Equal(t, KindVariable, byName["px"].Kind)
}

func TestDependencies_UnknownFile(t *testing.T) {
	ix := New()
	assert.Empty(t, ix.Dependencies("never-seen.fab"))
}

func TestDisplayPath(t *testing.T) {
	root, _, playerPath := newTestWorkspace(t)
	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))

	assert.Equal(t, "player.fab", ix.DisplayPath(canonical(t, playerPath)))
	assert.Equal(t, "/elsewhere/x.fab", ix.DisplayPath("/elsewhere/x.fab"))
}

func TestHoverAt_CrossFileDisplayPath(t *testing.T) {
	root, mainPath, _ := newTestWorkspace(t)
	ix := New()
	require.NoError(t, ix.RefreshWorkspace(context.Background(), []string{root}, nil))

	hover, ok := ix.HoverAt(mainPath, syntax.Point{Row: 1, Column: 8})
	require.True(t, ok)
	assert.Equal(t, "player.fab", hover.Path)
}
