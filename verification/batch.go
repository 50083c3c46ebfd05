package verification

import (
	"context"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/smartcontractkit/mailbox-client-deployments/config/network"
	"github.com/smartcontractkit/mailbox-client-deployments/contracts"
	"github.com/smartcontractkit/mailbox-client-deployments/deployment"
)

// BatchEntry selects the client of one network. Artifact overrides the batch artifact.
type BatchEntry struct {
	Network  string `toml:"network"`
	Artifact string `toml:"artifact,omitempty"`
}

// Batch is a list of clients to verify, read from a TOML file such as:
//
//	artifact = "artifacts/contracts/MockClient.sol/MockClient.json"
//
//	[[contracts]]
//	network = "sepolia"
//
//	[[contracts]]
//	network = "arbitrumsepolia"
type Batch struct {
	Artifact  string       `toml:"artifact"`
	Contracts []BatchEntry `toml:"contracts"`
}

// LoadBatch reads a batch file.
func LoadBatch(path string) (Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Batch{}, fmt.Errorf("failed to read file %w", err)
	}

	var batch Batch
	if err = toml.Unmarshal(data, &batch); err != nil {
		return Batch{}, fmt.Errorf("failed to unmarshal toml: %w", err)
	}
	if batch.Artifact == "" {
		batch.Artifact = contracts.DefaultArtifactPath
	}
	for i, c := range batch.Contracts {
		if c.Network == "" {
			return Batch{}, fmt.Errorf("contracts[%d]: network is required", i)
		}
	}

	return batch, nil
}

// NetworkLookup finds the configuration of a network by name.
type NetworkLookup interface {
	Lookup(name string) (network.Network, error)
}

// VerifyBatch verifies every entry of batch. Sources are loaded once per artifact path.
func (v *Verifier) VerifyBatch(
	ctx context.Context, networks NetworkLookup, set deployment.Set, batch Batch,
) map[string]Status {
	sources := make(map[string]Source)
	out := make(map[string]Status, len(batch.Contracts))

	for _, entry := range batch.Contracts {
		path := entry.Artifact
		if path == "" {
			path = batch.Artifact
		}

		source, err := loadCached(sources, path)
		if err != nil {
			v.lggr.Warnw("verification failed; continuing", "network", entry.Network, "error", err)
			out[entry.Network] = StatusFailed

			continue
		}

		net, err := networks.Lookup(entry.Network)
		if err != nil {
			v.lggr.Warnw("verification failed; continuing", "network", entry.Network, "error", err)
			out[entry.Network] = StatusFailed

			continue
		}

		out[entry.Network] = v.VerifyAll(ctx, []network.Network{net}, set, source)[entry.Network]
	}

	return out
}

func loadCached(cache map[string]Source, path string) (Source, error) {
	if s, ok := cache[path]; ok {
		return s, nil
	}

	s, err := LoadSource(path)
	if err != nil {
		return Source{}, fmt.Errorf("load source %s: %w", path, err)
	}
	cache[path] = s

	return s, nil
}
