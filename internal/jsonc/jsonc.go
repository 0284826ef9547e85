// Package jsonc reads the JSON-with-comments dialect used by .vscode files.
//
// Line and block comments and trailing commas are accepted. Documents are
// converted to standard JSON once and then queried with gjson so callers can
// pick the few fields they care about and keep every object as raw JSON.
package jsonc

import (
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"
	tjsonc "github.com/tidwall/jsonc"
)

// ErrInvalid is returned for documents that are not valid even after
// comments and trailing commas are removed.
var ErrInvalid = errors.New("invalid JSON")

// ReadFile reads path and returns its content as standard JSON.
// Errors from the filesystem are returned unwrapped so callers can test
// them with errors.Is(err, fs.ErrNotExist).
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Standardize(data)
}

// Standardize converts a JSON-with-comments document to standard JSON.
func Standardize(data []byte) ([]byte, error) {
	out := tjsonc.ToJSON(data)
	if !gjson.ValidBytes(out) {
		return nil, ErrInvalid
	}
	if !gjson.ParseBytes(out).IsObject() {
		return nil, fmt.Errorf("%w: top-level value must be an object", ErrInvalid)
	}
	return out, nil
}

// Objects returns the objects of the array at path, in document order.
// Array elements that are not objects are skipped. A missing path yields nil.
func Objects(doc []byte, path string) []gjson.Result {
	arr := gjson.GetBytes(doc, path)
	if !arr.IsArray() {
		return nil
	}
	var out []gjson.Result
	arr.ForEach(func(_, value gjson.Result) bool {
		if value.IsObject() {
			out = append(out, value)
		}
		return true
	})
	return out
}

// String returns the string at path in obj, or "" when it is absent or not a string.
func String(obj gjson.Result, path string) string {
	v := obj.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return v.Str
}
