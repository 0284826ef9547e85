package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ctagard/launchfile/internal/config"
	apperrors "github.com/ctagard/launchfile/internal/errors"
)

func TestCatalogMatchesTag(t *testing.T) {
	f := newFixture(t)
	f.write("launch.json", `{
		// comment
		"configurations": [
			{"name": "cpp_Debug", "type": "cppdbg", "request": "launch", "preLaunchTask": "cpp_Build"},
			{"name": "py_Debug", "type": "python", "request": "launch"},
			{"name": "cpp (lldb) _Debug", "type": "lldb", "request": "launch"},
		]
	}`)
	f.write("tasks.json", `{"tasks":[{"label":"cpp_Build"},{"label":"py_Build"},{"label":"lint"}]}`)

	c, err := List(f.folder, "cpp", config.DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, config.StrategyLink, c.Strategy)
	assert.Equal(t, "_Debug", c.DebugSuffix)
	assert.Len(t, c.Configurations, 3)
	assert.Equal(t, "cpp_Build", c.Configurations[0].PreLaunchTask)
	assert.Equal(t, []string{"cpp_Build", "py_Build", "lint"}, c.Tasks)
	assert.Empty(t, c.Warnings)

	require.NotNil(t, c.Match)
	assert.Equal(t, "cpp", c.Match.FileType)
	assert.Equal(t, []string{"cpp_Debug", "cpp (lldb) _Debug"}, c.Match.Configurations)
	assert.Equal(t, []string{"cpp_Build"}, c.Match.Tasks)
}

func TestCatalogWithoutTag(t *testing.T) {
	f := newFixture(t)
	f.write("launch.json", `{"configurations":[{"name":"go_Debug","type":"go"}]}`)
	f.write("tasks.json", `{"tasks":[]}`)

	c, err := List(f.folder, "", config.DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, c.Match)
	assert.Len(t, c.Configurations, 1)
}

func TestCatalogUsesConventionSuffix(t *testing.T) {
	f := newFixture(t)
	f.write("launch.json", `{"configurations":[{"name":"go_Debug"},{"name":"go_Dbg"}]}`)
	f.write("tasks.json", `{"tasks":[]}`)

	cfg := config.DefaultConfig()
	cfg.Strategy = config.StrategyConvention
	cfg.DebugSuffix = "_Dbg"

	c, err := List(f.folder, "go", cfg)
	require.NoError(t, err)
	assert.Equal(t, "_Debug", c.DebugSuffix)
	assert.Equal(t, []string{"go_Debug"}, c.Match.Configurations)
}

func TestCatalogMissingTasksIsAWarning(t *testing.T) {
	f := newFixture(t)
	f.write("launch.json", `{"configurations":[{"name":"py_Debug","type":"python"}]}`)

	c, err := List(f.folder, "py", config.DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, c.Tasks)
	assert.Len(t, c.Warnings, 1)
	assert.Equal(t, []string{"py_Debug"}, c.Match.Configurations)
}

func TestCatalogErrors(t *testing.T) {
	_, err := List("", "go", config.DefaultConfig())
	assert.True(t, apperrors.Is(err, apperrors.CodeNoWorkspace))

	f := newFixture(t)
	_, err = List(f.folder, "go", config.DefaultConfig())
	assert.True(t, apperrors.Is(err, apperrors.CodeLaunchConfigNotFound))

	f.write("launch.json", `{"configurations":[]}`)
	f.write("tasks.json", `{"tasks": [`)
	_, err = List(f.folder, "go", config.DefaultConfig())
	assert.True(t, apperrors.Is(err, apperrors.CodeConfigInvalid))
}
