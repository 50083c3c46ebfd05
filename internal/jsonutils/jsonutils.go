// Package jsonutils reads and writes the JSON state files kept next to a deployment.
package jsonutils

import (
	"encoding/json"
	"fmt"
	"io/fs"

	"github.com/smartcontractkit/mailbox-client-deployments/internal/fileutils"
)

// Marshal encodes data as pretty JSON with a two space indent and a trailing newline. Map keys
// are sorted by encoding/json, so the output is deterministic.
func Marshal(data any) ([]byte, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(b, '\n'), nil
}

// WriteFile marshals data into pretty JSON and atomically writes it at path, creating the
// parent directory if needed.
func WriteFile(path string, data any) error {
	b, err := Marshal(data)
	if err != nil {
		return err
	}

	return fileutils.WriteFileAtomic(path, b, 0o600)
}

// LoadFromFS loads a JSON file from the filesystem, instantiates and unmarshals it into T.
func LoadFromFS[T any](fsys fs.ReadFileFS, path string) (T, error) {
	var v T

	f, err := fsys.ReadFile(path)
	if err != nil {
		return v, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if err = json.Unmarshal(f, &v); err != nil {
		return v, fmt.Errorf("failed to unmarshal JSON at path %s: %w", path, err)
	}

	return v, nil
}
