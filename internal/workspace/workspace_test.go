package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeWorkspace(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".vscode"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src", "pkg"), 0755))
	return root
}

func TestDiscoverWalksUp(t *testing.T) {
	root := makeWorkspace(t)
	file := filepath.Join(root, "src", "pkg", "main.cpp")
	require.NoError(t, os.WriteFile(file, []byte("int main(){}"), 0644))

	got, err := Discover(file)
	require.NoError(t, err)
	assert.Equal(t, root, got)

	got, err = Discover(filepath.Join(root, "src"))
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDiscoverMissingFileUsesDirectory(t *testing.T) {
	root := makeWorkspace(t)

	got, err := Discover(filepath.Join(root, "src", "not_yet_written.py"))
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDiscoverIgnoresVSCodeFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".vscode"), []byte("x"), 0644))

	got, err := Discover(root)
	if err == nil {
		// a parent of the temp dir may itself be a workspace
		assert.NotEqual(t, root, got)
	}
}

func TestNewWithExplicitFolder(t *testing.T) {
	root := makeWorkspace(t)

	ctx, err := New(Options{File: filepath.Join(root, "a.rs"), Folder: root})
	require.NoError(t, err)
	assert.True(t, ctx.HasFolder())
	assert.True(t, ctx.HasDocument())
	assert.Equal(t, root, ctx.Folder)
	assert.Equal(t, "rust", ctx.Document.Tag())
}

func TestNewDiscoversFolder(t *testing.T) {
	root := makeWorkspace(t)
	file := filepath.Join(root, "src", "main.go")

	ctx, err := New(Options{File: file})
	require.NoError(t, err)
	assert.Equal(t, root, ctx.Folder)
	assert.Equal(t, "go", ctx.Document.Tag())
}

func TestNewLanguageOverride(t *testing.T) {
	root := makeWorkspace(t)

	ctx, err := New(Options{File: filepath.Join(root, "main.cc"), LanguageID: "cuda-cpp", Folder: root})
	require.NoError(t, err)
	assert.Equal(t, "cuda-cpp", ctx.Document.Tag())
}

func TestNewWithoutDocument(t *testing.T) {
	root := makeWorkspace(t)

	ctx, err := New(Options{Folder: root})
	require.NoError(t, err)
	assert.False(t, ctx.HasDocument())
	assert.Equal(t, "", ctx.Document.Tag())
}

func TestVariables(t *testing.T) {
	ctx := Context{Folder: "/ws", Document: &Document{Path: "/ws/src/main.cpp"}}
	vc := ctx.Variables()
	assert.Equal(t, "/ws", vc.WorkspaceFolder)
	assert.Equal(t, "/ws/src/main.cpp", vc.CurrentFile)

	vc = Context{Folder: "/ws"}.Variables()
	assert.Empty(t, vc.CurrentFile)
}

func TestLanguageForPath(t *testing.T) {
	tests := map[string]string{
		"main.cpp":    "cpp",
		"MAIN.CPP":    "cpp",
		"util.h":      "c",
		"script.py":   "python",
		"lib.rs":      "rust",
		"main.go":     "go",
		"notes.weird": "weird",
		"Makefile":    "",
	}
	for path, want := range tests {
		assert.Equal(t, want, LanguageForPath(path), path)
	}
}
