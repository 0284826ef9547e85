// Package variables substitutes ${...} expressions in task and debug configurations.
package variables

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/ctagard/launchfile/internal/jsonc"
)

// Variable pattern matches ${...} expressions
var variablePattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Context provides the values variables resolve to.
type Context struct {
	WorkspaceFolder string            // Root folder of the workspace
	CurrentFile     string            // Active file (for ${file} variables)
	EnvOverrides    map[string]string // Override environment variables
}

// Resolve replaces all ${...} variables in the given text.
// Unresolvable variables are left in place and the last error is returned.
func Resolve(text string, ctx *Context) (string, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	if !strings.Contains(text, "${") {
		return text, nil
	}

	var lastErr error
	result := variablePattern.ReplaceAllStringFunc(text, func(match string) string {
		expr := match[2 : len(match)-1]

		resolved, err := resolveVariable(expr, ctx)
		if err != nil {
			lastErr = err
			return match
		}
		return resolved
	})

	return result, lastErr
}

func resolveVariable(expr string, ctx *Context) (string, error) {
	switch {
	case expr == "workspaceFolder" || expr == "workspaceRoot":
		return ctx.WorkspaceFolder, nil

	case expr == "workspaceFolderBasename":
		return filepath.Base(ctx.WorkspaceFolder), nil

	case expr == "file":
		return ctx.CurrentFile, nil

	case expr == "fileBasename":
		return filepath.Base(ctx.CurrentFile), nil

	case expr == "fileDirname":
		return filepath.Dir(ctx.CurrentFile), nil

	case expr == "fileBasenameNoExtension":
		base := filepath.Base(ctx.CurrentFile)
		return strings.TrimSuffix(base, filepath.Ext(base)), nil

	case expr == "fileExtname":
		return filepath.Ext(ctx.CurrentFile), nil

	case expr == "relativeFile":
		if ctx.WorkspaceFolder != "" && ctx.CurrentFile != "" {
			if rel, err := filepath.Rel(ctx.WorkspaceFolder, ctx.CurrentFile); err == nil {
				return rel, nil
			}
		}
		return ctx.CurrentFile, nil

	case expr == "relativeFileDirname":
		dir := filepath.Dir(ctx.CurrentFile)
		if ctx.WorkspaceFolder != "" && ctx.CurrentFile != "" {
			if rel, err := filepath.Rel(ctx.WorkspaceFolder, dir); err == nil {
				return rel, nil
			}
		}
		return dir, nil

	case expr == "userHome":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home: %w", err)
		}
		return home, nil

	case expr == "cwd":
		if ctx.WorkspaceFolder != "" {
			return ctx.WorkspaceFolder, nil
		}
		return os.Getwd()

	case expr == "pathSeparator" || expr == "/":
		return string(os.PathSeparator), nil

	case strings.HasPrefix(expr, "env:"):
		name := strings.TrimPrefix(expr, "env:")
		if val, ok := ctx.EnvOverrides[name]; ok {
			return val, nil
		}
		return os.Getenv(name), nil

	case strings.HasPrefix(expr, "config:"):
		return resolveSetting(strings.TrimPrefix(expr, "config:"), ctx.WorkspaceFolder)

	default:
		return "", fmt.Errorf("unsupported variable: ${%s}", expr)
	}
}

// resolveSetting reads a value from .vscode/settings.json. A missing file or
// key resolves to "" the way an unset setting does in the editor.
func resolveSetting(settingID, workspaceFolder string) (string, error) {
	if workspaceFolder == "" {
		return "", fmt.Errorf("workspaceFolder required for ${config:%s}", settingID)
	}

	doc, err := jsonc.ReadFile(filepath.Join(workspaceFolder, ".vscode", "settings.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read settings.json: %w", err)
	}

	// Settings are stored flat ("python.defaultInterpreterPath") or nested.
	v := gjson.GetBytes(doc, gjson.Escape(settingID))
	if !v.Exists() {
		v = gjson.GetBytes(doc, settingID)
	}

	switch v.Type {
	case gjson.Null:
		return "", nil
	case gjson.String:
		return v.Str, nil
	case gjson.Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64), nil
	case gjson.True, gjson.False:
		return strconv.FormatBool(v.Bool()), nil
	default:
		return v.Raw, nil
	}
}

// ResolveSlice resolves variables in all strings in a slice.
func ResolveSlice(values []string, ctx *Context) ([]string, error) {
	if values == nil {
		return nil, nil
	}
	result := make([]string, len(values))
	for i, v := range values {
		resolved, err := Resolve(v, ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve element %d: %w", i, err)
		}
		result[i] = resolved
	}
	return result, nil
}

// ResolveMap resolves variables in all values (not keys) of a string map.
func ResolveMap(values map[string]string, ctx *Context) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}
	result := make(map[string]string, len(values))
	for k, v := range values {
		resolved, err := Resolve(v, ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve value for key %q: %w", k, err)
		}
		result[k] = resolved
	}
	return result, nil
}

// ResolveTree resolves variables in every string of a decoded JSON value.
// Numbers, booleans and nulls pass through unchanged.
func ResolveTree(v interface{}, ctx *Context) (interface{}, error) {
	switch val := v.(type) {
	case string:
		return Resolve(val, ctx)
	case []interface{}:
		result := make([]interface{}, len(val))
		for i, item := range val {
			resolved, err := ResolveTree(item, ctx)
			if err != nil {
				return nil, err
			}
			result[i] = resolved
		}
		return result, nil
	case map[string]interface{}:
		result := make(map[string]interface{}, len(val))
		for k, item := range val {
			resolved, err := ResolveTree(item, ctx)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			result[k] = resolved
		}
		return result, nil
	default:
		return v, nil
	}
}
