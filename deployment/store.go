package deployment

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/smartcontractkit/mailbox-client-deployments/internal/jsonutils"
)

// DefaultPath is the deployment file used when none is configured.
const DefaultPath = "deployments/mockclient.json"

// Load reads the deployment set at path. A missing file yields an empty set; a file that exists
// but does not hold a valid set yields ErrDeploymentFile.
func Load(path string) (Set, error) {
	fsys, ok := os.DirFS(filepath.Dir(path)).(fs.ReadFileFS)
	if !ok {
		return nil, fmt.Errorf("%w: %s: filesystem does not support reading files", ErrDeploymentFile, path)
	}

	set, err := jsonutils.LoadFromFS[Set](fsys, filepath.Base(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Set{}, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrDeploymentFile, err)
	}
	if set == nil {
		set = Set{}
	}

	if err = set.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDeploymentFile, path, err)
	}

	return set, nil
}

// Save writes the set at path as pretty printed JSON, creating the parent directory if needed.
func Save(path string, set Set) error {
	if set == nil {
		set = Set{}
	}
	if err := set.Validate(); err != nil {
		return fmt.Errorf("%w: refusing to write invalid set to %s: %w", ErrDeploymentFile, path, err)
	}

	if err := jsonutils.WriteFile(path, set); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrDeploymentFile, path, err)
	}

	return nil
}
