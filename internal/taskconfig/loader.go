package taskconfig

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/tidwall/gjson"

	apperrors "github.com/ctagard/launchfile/internal/errors"
	"github.com/ctagard/launchfile/internal/jsonc"
)

const (
	// TasksJSONFileName is the standard name for VS Code task configuration file.
	TasksJSONFileName = "tasks.json"
	// VSCodeDirName is the VS Code configuration directory name.
	VSCodeDirName = ".vscode"
)

// Path returns the tasks.json location for a workspace folder.
func Path(workspaceFolder string) string {
	return filepath.Join(workspaceFolder, VSCodeDirName, TasksJSONFileName)
}

// Load reads the tasks.json of a workspace folder. A missing file yields a
// TASKS_CONFIG_NOT_FOUND error, an unparsable one CONFIG_INVALID.
func Load(workspaceFolder string) (*TasksJSON, error) {
	path := Path(workspaceFolder)
	tf, err := LoadFromPath(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.TasksConfigNotFound(path).WithCause(err)
		}
		return nil, apperrors.ConfigInvalid(path, err)
	}
	return tf, nil
}

// LoadFromPath loads a tasks.json file from an explicit path.
func LoadFromPath(path string) (*TasksJSON, error) {
	doc, err := jsonc.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tasks.json: %w", err)
	}
	return Parse(doc), nil
}

// Parse builds a TasksJSON from a standardized JSON document, keeping task order.
func Parse(doc []byte) *TasksJSON {
	tf := &TasksJSON{
		Version: jsonc.String(gjson.ParseBytes(doc), "version"),
	}
	for _, obj := range jsonc.Objects(doc, "tasks") {
		tf.Tasks = append(tf.Tasks, parseTask(obj))
	}
	return tf
}

// FindTask finds a task by exact label. The first match wins.
func FindTask(tf *TasksJSON, label string) *TaskDefinition {
	for i := range tf.Tasks {
		if tf.Tasks[i].Label == label {
			return &tf.Tasks[i]
		}
	}
	return nil
}

// FindFirst returns the first task whose label satisfies match, or nil.
func FindFirst(tf *TasksJSON, match func(label string) bool) *TaskDefinition {
	for i := range tf.Tasks {
		if match(tf.Tasks[i].Label) {
			return &tf.Tasks[i]
		}
	}
	return nil
}

// ListLabels returns the labels of all tasks in document order.
func ListLabels(tf *TasksJSON) []string {
	labels := make([]string, len(tf.Tasks))
	for i, t := range tf.Tasks {
		labels[i] = t.Label
	}
	return labels
}
