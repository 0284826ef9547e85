// Package workspace describes the editing context a workflow runs in: the
// workspace folder holding .vscode and the active document.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctagard/launchfile/internal/variables"
)

// VSCodeDirName is the directory whose presence marks a workspace folder.
const VSCodeDirName = ".vscode"

// Document is the file the user is working on.
type Document struct {
	// Path is the absolute path of the file.
	Path string
	// LanguageID is the declared language identifier. When empty it is
	// derived from the file extension.
	LanguageID string
}

// Tag returns the file-type tag used as the naming-convention prefix.
func (d *Document) Tag() string {
	if d == nil {
		return ""
	}
	if d.LanguageID != "" {
		return d.LanguageID
	}
	return LanguageForPath(d.Path)
}

// Context is the explicit environment of one workflow invocation.
type Context struct {
	// Folder is the workspace root, or "" when no workspace is open.
	Folder string
	// Document is the active document, or nil when no file is open.
	Document *Document
}

// HasFolder reports whether a workspace folder is open.
func (c Context) HasFolder() bool {
	return c.Folder != ""
}

// HasDocument reports whether a document is active.
func (c Context) HasDocument() bool {
	return c.Document != nil && (c.Document.Path != "" || c.Document.LanguageID != "")
}

// Variables returns the substitution context for ${...} expressions.
func (c Context) Variables() *variables.Context {
	vc := &variables.Context{WorkspaceFolder: c.Folder}
	if c.Document != nil {
		vc.CurrentFile = c.Document.Path
	}
	return vc
}

// Options selects how New builds a Context.
type Options struct {
	// File is the active document. Relative paths are made absolute.
	File string
	// LanguageID overrides the language derived from File.
	LanguageID string
	// Folder is an explicit workspace folder. When empty, the folder is
	// discovered from File, or from the working directory.
	Folder string
}

// New builds a Context. An undiscoverable workspace yields a Context with an
// empty Folder rather than an error so the workflow can report it.
func New(opts Options) (Context, error) {
	var ctx Context

	if opts.File != "" || opts.LanguageID != "" {
		doc := &Document{LanguageID: opts.LanguageID}
		if opts.File != "" {
			abs, err := filepath.Abs(opts.File)
			if err != nil {
				return Context{}, fmt.Errorf("failed to resolve absolute path: %w", err)
			}
			doc.Path = abs
		}
		ctx.Document = doc
	}

	if opts.Folder != "" {
		abs, err := filepath.Abs(opts.Folder)
		if err != nil {
			return Context{}, fmt.Errorf("failed to resolve workspace folder: %w", err)
		}
		ctx.Folder = abs
		return ctx, nil
	}

	start := ""
	if ctx.Document != nil {
		start = ctx.Document.Path
	}
	folder, err := Discover(start)
	if err == nil {
		ctx.Folder = folder
	}
	return ctx, nil
}

// Discover searches for a directory containing .vscode, starting from the
// given path and walking up the directory tree until found or reaching the root.
func Discover(startPath string) (string, error) {
	if startPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get current directory: %w", err)
		}
		startPath = cwd
	}

	absPath, err := filepath.Abs(startPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	// A file that does not exist yet still has a meaningful directory.
	if info, err := os.Stat(absPath); err != nil || !info.IsDir() {
		absPath = filepath.Dir(absPath)
	}

	current := absPath
	for {
		if info, err := os.Stat(filepath.Join(current, VSCodeDirName)); err == nil && info.IsDir() {
			return current, nil
		}
		parent := filepath.Dir(current)
		if parent == current {
			break
		}
		current = parent
	}

	return "", fmt.Errorf("no %s directory found in %s or parent directories", VSCodeDirName, startPath)
}

// extensionLanguages maps file extensions to editor language identifiers.
var extensionLanguages = map[string]string{
	".c":     "c",
	".h":     "c",
	".cc":    "cpp",
	".cpp":   "cpp",
	".cxx":   "cpp",
	".c++":   "cpp",
	".hh":    "cpp",
	".hpp":   "cpp",
	".hxx":   "cpp",
	".go":    "go",
	".py":    "python",
	".pyw":   "python",
	".rs":    "rust",
	".zig":   "zig",
	".swift": "swift",
	".java":  "java",
	".kt":    "kotlin",
	".cs":    "csharp",
	".js":    "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".rb":    "ruby",
	".sh":    "shellscript",
	".m":     "objective-c",
	".mm":    "objective-cpp",
	".f90":   "fortran",
	".d":     "d",
	".nim":   "nim",
}

// LanguageForPath returns the language identifier for a file path. Unknown
// extensions yield the extension without its dot, and no extension yields "".
func LanguageForPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return ""
	}
	if id, ok := extensionLanguages[ext]; ok {
		return id
	}
	return strings.TrimPrefix(ext, ".")
}
