package launchconfig

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/pkg/types"
)

const sampleLaunchJSON = `{
	// Use IntelliSense to learn about possible attributes.
	"version": "0.2.0",
	"configurations": [
		{
			"name": "cpp_Debug",
			"type": "cppdbg",
			"request": "launch",
			"program": "${workspaceFolder}/build/app",
			"MIMode": "gdb",
			"preLaunchTask": "cpp_Build",
			"setupCommands": [{"text": "-enable-pretty-printing"}],
		},
		/* attach to a running interpreter */
		{
			"name": "py_Attach",
			"type": "debugpy",
			"request": "attach",
			"connect": {"host": "localhost", "port": 5678}
		},
		"not an object",
		{"type": "go", "request": "launch"},
	],
}`

func writeLaunchJSON(t *testing.T, content string) string {
	t.Helper()
	folder := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(folder, VSCodeDirName), 0755))
	require.NoError(t, os.WriteFile(Path(folder), []byte(content), 0644))
	return folder
}

func TestLoad(t *testing.T) {
	folder := writeLaunchJSON(t, sampleLaunchJSON)

	lj, err := Load(folder)
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", lj.Version)
	require.Len(t, lj.Configurations, 3)

	cpp := lj.Configurations[0]
	assert.Equal(t, "cpp_Debug", cpp.Name)
	assert.Equal(t, "cpp_Build", cpp.PreLaunchTask)
	assert.Equal(t, "cppdbg", cpp.Type())
	assert.Equal(t, "launch", cpp.Request())
	assert.False(t, cpp.IsAttachRequest())

	py := lj.Configurations[1]
	assert.True(t, py.IsAttachRequest())
	assert.Equal(t, int64(5678), py.Get("connect.port").Int())

	assert.Equal(t, "", lj.Configurations[2].Name)
	assert.Equal(t, []string{"cpp_Debug", "py_Attach", ""}, ListConfigurationNames(lj))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeLaunchConfigNotFound))

	folder := writeLaunchJSON(t, `{"configurations": [`)
	_, err = Load(folder)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))

	folder = writeLaunchJSON(t, `["configurations"]`)
	_, err = Load(folder)
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))
}

func TestFindConfiguration(t *testing.T) {
	lj, err := Load(writeLaunchJSON(t, sampleLaunchJSON))
	require.NoError(t, err)

	cfg, err := FindConfiguration(lj, "py_Attach")
	require.NoError(t, err)
	assert.Equal(t, "debugpy", cfg.Type())

	_, err = FindConfiguration(lj, "py_attach")
	assert.Error(t, err)

	first := FindFirst(lj, func(name string) bool { return strings.HasSuffix(name, "_Debug") })
	require.NotNil(t, first)
	assert.Equal(t, "cpp_Debug", first.Name)
	assert.Nil(t, FindFirst(lj, func(string) bool { return false }))
}

func TestListConfigurations(t *testing.T) {
	lj, err := Load(writeLaunchJSON(t, sampleLaunchJSON))
	require.NoError(t, err)

	infos := ListConfigurations(lj)
	require.Len(t, infos, 3)
	assert.Equal(t, ConfigurationInfo{Name: "cpp_Debug", Type: "cppdbg", Request: "launch", PreLaunchTask: "cpp_Build"}, infos[0])
	assert.Equal(t, ConfigurationInfo{Name: "py_Attach", Type: "debugpy", Request: "attach"}, infos[1])
}

func TestConfigurationPassthrough(t *testing.T) {
	lj, err := Load(writeLaunchJSON(t, sampleLaunchJSON))
	require.NoError(t, err)
	cfg := &lj.Configurations[0]

	m, err := cfg.Map()
	require.NoError(t, err)
	assert.Equal(t, "${workspaceFolder}/build/app", m["program"])
	assert.Equal(t, "gdb", m["MIMode"])
	assert.Len(t, m["setupCommands"], 1)

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	assert.JSONEq(t, string(cfg.Raw), string(data))

	bare := DebugConfiguration{Name: "x", PreLaunchTask: "y"}
	m, err = bare.Map()
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"name": "x", "preLaunchTask": "y"}, m)
}

func TestLanguageAndDebugger(t *testing.T) {
	tests := []struct {
		raw      string
		language types.Language
		debugger types.Debugger
	}{
		{`{"type": "go"}`, types.LanguageGo, types.DebuggerDelve},
		{`{"type": "python"}`, types.LanguagePython, types.DebuggerDebugpy},
		{`{"type": "debugpy"}`, types.LanguagePython, types.DebuggerDebugpy},
		{`{"type": "lldb"}`, types.LanguageC, types.DebuggerLLDB},
		{`{"type": "cppdbg"}`, types.LanguageCpp, types.DebuggerGDB},
		{`{"type": "cppdbg", "MIMode": "lldb"}`, types.LanguageCpp, types.DebuggerLLDB},
		{`{"type": "gdb"}`, types.LanguageC, types.DebuggerGDB},
		{`{"type": "rust"}`, types.LanguageRust, types.DebuggerLLDB},
		{`{"type": "node"}`, types.Language("node"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			cfg := DebugConfiguration{Raw: []byte(tt.raw)}
			assert.Equal(t, tt.language, cfg.Language())
			assert.Equal(t, tt.debugger, cfg.Debugger())
		})
	}
}
